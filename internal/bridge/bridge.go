package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/NikolayTNikolov/stremio-core-web/internal/runtime"
)

// phase tracks the bridge lifecycle. Transitions are one-way:
// uninitialized -> loading -> ready | failed.
type phase int

const (
	phaseUninitialized phase = iota
	phaseLoading
	phaseReady
	phaseFailed
)

// Bridge is the public-facing pub/sub surface over one runtime.Adapter.
//
// Thread-safety: all public methods are safe for concurrent use. The
// listener registry is guarded by a mutex; engine access is serialized by
// the adapter's request queue. Notification fan-out iterates a snapshot of
// the listener sequence, so On/Off from inside a listener take effect from
// the next notification on.
type Bridge struct {
	mu       sync.Mutex
	phase    phase
	initErr  error
	adapter  *runtime.Adapter
	registry *registry

	notifyHook   func(runtime.Notification)
	dispatchHook func(runtime.Action)
	errHook      func(event string, err error)
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithNotificationHook installs an observer invoked for every engine
// notification before listener fan-out, in emission order. Used by the
// journal and the test harness; listeners remain the public surface.
func WithNotificationHook(hook func(runtime.Notification)) Option {
	return func(b *Bridge) {
		b.notifyHook = hook
	}
}

// WithDispatchHook installs an observer invoked for every action accepted
// by Dispatch, before it is forwarded. Used for journaling and analytics.
func WithDispatchHook(hook func(runtime.Action)) Option {
	return func(b *Bridge) {
		b.dispatchHook = hook
	}
}

// WithListenerErrorHook installs a reporter for isolated listener failures.
// Without it, failures are logged via slog and otherwise swallowed.
func WithListenerErrorHook(hook func(event string, err error)) Option {
	return func(b *Bridge) {
		b.errHook = hook
	}
}

// New creates an uninitialized Bridge. Call Initialize before use.
func New(opts ...Option) *Bridge {
	b := &Bridge{registry: newRegistry()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Initialize constructs the engine through factory and makes the bridge
// ready. It may be called at most once per Bridge: a second call fails
// regardless of whether the first succeeded.
//
// On failure the bridge is permanently failed and every public operation
// returns the initialization error - absence of a working container, not a
// silently broken one.
func (b *Bridge) Initialize(factory runtime.Factory) error {
	b.mu.Lock()
	if b.phase != phaseUninitialized {
		b.mu.Unlock()
		return errors.New("bridge: already initialized")
	}
	b.phase = phaseLoading
	b.mu.Unlock()

	adapter, err := runtime.NewAdapter(factory, b.deliver)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.phase = phaseFailed
		b.initErr = err
		return err
	}
	b.adapter = adapter
	b.phase = phaseReady
	return nil
}

// Run drives the adapter's request loop. The bridge spawns no goroutines of
// its own; the host decides where the loop lives. Blocks until ctx is
// cancelled or Close is called. Fails before Initialize succeeds.
func (b *Bridge) Run(ctx context.Context) error {
	adapter, err := b.ready("run")
	if err != nil {
		return err
	}
	return adapter.Run(ctx)
}

// Close stops the adapter loop. Safe to call in any phase.
func (b *Bridge) Close() {
	b.mu.Lock()
	adapter := b.adapter
	b.mu.Unlock()
	if adapter != nil {
		adapter.Close()
	}
}

// Ready reports whether initialization has completed successfully.
func (b *Bridge) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.phase == phaseReady
}

// On registers listener for event. Idempotent per (event, listener):
// registering the same identity twice is a no-op the second time.
func (b *Bridge) On(event string, listener Listener) error {
	if _, err := b.ready("on"); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.registry.add(event, listener)
	return nil
}

// Off removes listener from event. A no-op - not an error - when event is
// unknown or listener was never registered.
func (b *Bridge) Off(event string, listener Listener) error {
	if _, err := b.ready("off"); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.registry.remove(event, listener)
	return nil
}

// Dispatch forwards an action to the engine, fire-and-forget. No local
// validation or buffering; outcomes are observed through notifications
// and later GetState calls only.
func (b *Bridge) Dispatch(action runtime.Action) error {
	adapter, err := b.ready("dispatch")
	if err != nil {
		return err
	}
	if err := adapter.Dispatch(action); err != nil {
		return err
	}
	if b.dispatchHook != nil {
		b.dispatchHook(action)
	}
	return nil
}

// GetState returns the engine's current full snapshot. Never cached or
// transformed: each call is forwarded fresh to the adapter.
func (b *Bridge) GetState(ctx context.Context) (json.RawMessage, error) {
	return b.GetStateField(ctx, "")
}

// GetStateField returns the state of a single model field, or the full
// snapshot when field is empty.
func (b *Bridge) GetStateField(ctx context.Context, field string) (json.RawMessage, error) {
	adapter, err := b.ready("getState")
	if err != nil {
		return nil, err
	}
	return adapter.State(ctx, field)
}

// ListenerCount returns the number of listeners registered for event.
// Useful for diagnostics and testing.
func (b *Bridge) ListenerCount(event string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.registry.count(event)
}

// ready returns the adapter when the bridge is usable, or the applicable
// rejection: the initialization error after a failed Initialize, a
// NOT_READY error before one.
func (b *Bridge) ready(op string) (*runtime.Adapter, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.phase {
	case phaseReady:
		return b.adapter, nil
	case phaseFailed:
		return nil, b.initErr
	default:
		return nil, runtime.NewNotReadyError(op)
	}
}

// deliver is the adapter's notification sink. It re-broadcasts the payload
// to every listener registered for the event name at delivery time, in
// registration order. Absent or empty sequences do nothing.
func (b *Bridge) deliver(n runtime.Notification) {
	if b.notifyHook != nil {
		b.notifyHook(n)
	}

	b.mu.Lock()
	listeners := b.registry.snapshot(n.Event)
	b.mu.Unlock()

	for _, l := range listeners {
		b.invoke(n, l)
	}
}

// invoke runs one listener with panic isolation so a failing listener can
// neither suppress the remaining deliveries nor corrupt the iteration.
func (b *Bridge) invoke(n runtime.Notification, l Listener) {
	defer func() {
		if r := recover(); r != nil {
			err := runtime.NewListenerError(n.Event, r)
			slog.Error("listener failed during delivery",
				"event", n.Event,
				"seq", n.Seq,
				"error", err,
			)
			if b.errHook != nil {
				b.errHook(n.Event, err)
			}
		}
	}()
	l.Notify(n.Payload)
}
