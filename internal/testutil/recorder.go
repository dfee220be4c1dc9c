package testutil

import (
	"encoding/json"
	"sync"
)

// RecordingListener is a bridge.Listener that captures every payload it is
// invoked with, in order. Compared by pointer identity like any listener.
//
// Thread-safety: safe for concurrent use via internal mutex.
type RecordingListener struct {
	mu       sync.Mutex
	payloads []string
}

// NewRecordingListener creates an empty recorder.
func NewRecordingListener() *RecordingListener {
	return &RecordingListener{}
}

// Notify records the payload.
func (r *RecordingListener) Notify(payload json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, string(payload))
}

// Payloads returns a copy of the recorded payloads, in delivery order.
func (r *RecordingListener) Payloads() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.payloads))
	copy(out, r.payloads)
	return out
}

// Count returns how many notifications were delivered.
func (r *RecordingListener) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payloads)
}

// Reset clears the recording.
func (r *RecordingListener) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = nil
}

// PanicListener is a bridge.Listener that panics on every delivery, for
// failure-isolation tests.
type PanicListener struct {
	Message string
}

// Notify panics with the configured message.
func (p *PanicListener) Notify(json.RawMessage) {
	msg := p.Message
	if msg == "" {
		msg = "listener failure"
	}
	panic(msg)
}
