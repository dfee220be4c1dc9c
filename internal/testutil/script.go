// Package testutil provides deterministic doubles for bridge and adapter
// tests: a scripted in-memory engine and a recording listener.
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/NikolayTNikolov/stremio-core-web/internal/runtime"
)

// Handler processes one scripted dispatch. It may call emit any number of
// times to fan notifications out through the adapter.
type Handler func(action runtime.Action, emit runtime.EmitFunc) error

// ScriptEngine is a runtime.Engine whose behavior is fully scripted by the
// test. It records every dispatched action and serves state reads from a
// plain map, so tests can assert forwarding without a real engine.
//
// Thread-safety: methods are safe for concurrent use, though the adapter's
// single-writer loop means calls are serialized in practice.
type ScriptEngine struct {
	mu         sync.Mutex
	emit       runtime.EmitFunc
	handler    Handler
	state      map[string]any
	dispatched []runtime.Action
	closed     bool
}

// ScriptOption configures a ScriptEngine.
type ScriptOption func(*ScriptEngine)

// WithHandler scripts the engine's reaction to dispatches. Without it,
// dispatches are recorded and otherwise ignored.
func WithHandler(h Handler) ScriptOption {
	return func(e *ScriptEngine) {
		e.handler = h
	}
}

// WithState seeds the state map served by State.
func WithState(state map[string]any) ScriptOption {
	return func(e *ScriptEngine) {
		e.state = state
	}
}

// NewScriptEngine creates a scripted engine with emit as its notification
// sink, mirroring how a real engine is constructed.
func NewScriptEngine(emit runtime.EmitFunc, opts ...ScriptOption) *ScriptEngine {
	e := &ScriptEngine{
		emit:  emit,
		state: map[string]any{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Factory returns a runtime.Factory that creates one ScriptEngine and
// reports it through engineOut for later inspection by the test.
func Factory(engineOut **ScriptEngine, opts ...ScriptOption) runtime.Factory {
	return func(emit runtime.EmitFunc) (runtime.Engine, error) {
		e := NewScriptEngine(emit, opts...)
		if engineOut != nil {
			*engineOut = e
		}
		return e, nil
	}
}

// FailingFactory returns a runtime.Factory that always fails with err,
// for initialization-failure tests.
func FailingFactory(err error) runtime.Factory {
	return func(runtime.EmitFunc) (runtime.Engine, error) {
		return nil, err
	}
}

// Dispatch records the action and runs the scripted handler, if any.
func (e *ScriptEngine) Dispatch(_ context.Context, action runtime.Action) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return fmt.Errorf("script engine is closed")
	}
	e.dispatched = append(e.dispatched, action)
	handler := e.handler
	emit := e.emit
	e.mu.Unlock()

	if handler != nil {
		return handler(action, emit)
	}
	return nil
}

// State serves the seeded map: the whole map for an empty field, a single
// entry otherwise. Unknown fields serialize as null, matching the
// original bridge's behavior for unrecognized fields.
func (e *ScriptEngine) State(_ context.Context, field string) (json.RawMessage, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, fmt.Errorf("script engine is closed")
	}
	if field == "" {
		return json.Marshal(e.state)
	}
	return json.Marshal(e.state[field])
}

// Close marks the engine closed; further calls fail.
func (e *ScriptEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// SetState replaces one entry in the state map.
func (e *ScriptEngine) SetState(field string, value any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state[field] = value
}

// Dispatched returns a copy of every action received so far, in order.
func (e *ScriptEngine) Dispatched() []runtime.Action {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]runtime.Action, len(e.dispatched))
	copy(out, e.dispatched)
	return out
}

// Closed reports whether Close was called.
func (e *ScriptEngine) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}
