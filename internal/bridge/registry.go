package bridge

import "encoding/json"

// Listener receives notification payloads for an event it subscribed to.
//
// Listeners are compared by identity, not value: registering the same
// Listener twice for one event is a no-op the second time, and Off removes
// exactly the value that was passed to On. Implement Listener on a pointer
// type (or use Func) so that identity is well defined; two listeners built
// from equivalent functions remain distinct.
type Listener interface {
	Notify(payload json.RawMessage)
}

// funcListener adapts a plain function to Listener. Each value is allocated
// separately, so each Func call yields a distinct identity.
type funcListener struct {
	fn func(payload json.RawMessage)
}

func (l *funcListener) Notify(payload json.RawMessage) {
	l.fn(payload)
}

// Func wraps fn in a registrable Listener handle. Keep the returned value
// if you intend to call Off later.
func Func(fn func(payload json.RawMessage)) Listener {
	return &funcListener{fn: fn}
}

// registry maps event names to ordered listener sequences.
//
// Within one event name no listener identity appears twice, and insertion
// order defines notification order - a set-with-order. The registry itself
// is not synchronized; the Bridge guards it with its own mutex.
type registry struct {
	listeners map[string][]Listener
}

func newRegistry() *registry {
	return &registry{listeners: make(map[string][]Listener)}
}

// add appends l to the sequence for event unless it is already present.
// Returns false on a duplicate. The sequence is created lazily.
func (r *registry) add(event string, l Listener) bool {
	for _, existing := range r.listeners[event] {
		if existing == l {
			return false
		}
	}
	r.listeners[event] = append(r.listeners[event], l)
	return true
}

// remove deletes the occurrence of l from the sequence for event,
// preserving the relative order of the rest. Returns false if event is
// unknown or l is not registered; neither is an error.
func (r *registry) remove(event string, l Listener) bool {
	seq, ok := r.listeners[event]
	if !ok {
		return false
	}
	for i, existing := range seq {
		if existing == l {
			r.listeners[event] = append(seq[:i:i], seq[i+1:]...)
			if len(r.listeners[event]) == 0 {
				delete(r.listeners, event)
			}
			return true
		}
	}
	return false
}

// snapshot returns a copy of the sequence for event, so delivery iterates a
// stable view even if On/Off run mid-notification.
func (r *registry) snapshot(event string) []Listener {
	seq := r.listeners[event]
	if len(seq) == 0 {
		return nil
	}
	out := make([]Listener, len(seq))
	copy(out, seq)
	return out
}

// count returns the number of listeners registered for event.
func (r *registry) count(event string) int {
	return len(r.listeners[event])
}
