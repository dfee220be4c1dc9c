package runtime

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Adapter is the single chokepoint for engine access.
//
// It creates exactly one Engine through the supplied Factory, registers
// exactly one notification callback with it, and serializes every dispatch
// and state read through a FIFO request queue drained by Run().
//
// Thread-safety model:
//   - Dispatch(), State(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
//
// The engine instance is never reachable from outside the Adapter.
type Adapter struct {
	engine Engine
	clock  *Clock
	queue  *requestQueue
	sink   Sink
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithClock sets the notification clock. Used when resuming on top of an
// existing journal so seq stamps continue instead of restarting at 1.
func WithClock(c *Clock) AdapterOption {
	return func(a *Adapter) {
		a.clock = c
	}
}

// NewAdapter constructs the engine via factory, registering the adapter's
// emission stamp as the engine's sole notification callback. Notifications
// reach sink stamped with a monotonic seq, in emission order.
//
// A construction failure is fatal to the whole bridge: no Adapter is
// returned and there is no degraded mode.
func NewAdapter(factory Factory, sink Sink, opts ...AdapterOption) (*Adapter, error) {
	a := &Adapter{
		clock: NewClock(),
		queue: newRequestQueue(),
		sink:  sink,
	}
	for _, opt := range opts {
		opt(a)
	}

	engine, err := factory(a.handleEmit)
	if err != nil {
		return nil, NewInitError(err)
	}
	a.engine = engine

	return a, nil
}

// handleEmit is the one callback registered with the engine. It stamps the
// notification and forwards it to the sink synchronously, preserving the
// engine's emission order.
func (a *Adapter) handleEmit(event string, payload json.RawMessage) {
	n := Notification{
		Event:   event,
		Payload: payload,
		Seq:     a.clock.Next(),
	}
	if a.sink != nil {
		a.sink(n)
	}
}

// Dispatch submits an action for processing. Fire-and-forget: the return
// value only reflects whether the action was accepted into the queue, never
// the outcome of the state transition.
// Thread-safe: may be called from any goroutine.
func (a *Adapter) Dispatch(action Action) error {
	ok := a.queue.Enqueue(request{kind: requestDispatch, action: action})
	if !ok {
		return NewClosedError("dispatch")
	}
	return nil
}

// State reads the engine's current state. An empty field selects the whole
// model. The read is answered by the Run loop, so it observes every dispatch
// submitted before it. Blocks until answered or ctx is done.
// Thread-safe: may be called from any goroutine.
func (a *Adapter) State(ctx context.Context, field string) (json.RawMessage, error) {
	reply := make(chan stateReply, 1)
	ok := a.queue.Enqueue(request{kind: requestState, field: field, reply: reply})
	if !ok {
		return nil, NewClosedError("getState")
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-reply:
		return r.data, r.err
	}
}

// Run starts the single-writer request loop.
// Blocks until ctx is cancelled or Close() is called.
//
// Must be called from exactly ONE goroutine. All engine access happens in
// this goroutine.
//
// ERROR HANDLING: a failed dispatch is logged with full action context and
// processing continues. Dispatch is fire-and-forget at the public surface,
// so there is no caller to propagate to.
func (a *Adapter) Run(ctx context.Context) error {
	slog.Info("runtime adapter starting")
	defer a.shutdown()

	for {
		req, ok := a.queue.TryDequeue()
		if ok {
			a.process(ctx, req)
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("runtime adapter stopping: context cancelled")
			a.queue.Close()
			return ctx.Err()

		case <-a.queue.Wait():
			// The signal channel closes when the queue is closed, which
			// makes this case fire immediately.
			if a.queue.Len() == 0 {
				slog.Info("runtime adapter stopping: queue closed")
				return nil
			}
		}
	}
}

// process handles one dequeued request on the loop goroutine.
func (a *Adapter) process(ctx context.Context, req request) {
	switch req.kind {
	case requestDispatch:
		if err := a.engine.Dispatch(ctx, req.action); err != nil {
			slog.Error("action dispatch failed",
				"error", err,
				"action", req.action.Type,
				"field", req.action.Field,
			)
		}

	case requestState:
		data, err := a.engine.State(ctx, req.field)
		req.reply <- stateReply{data: data, err: err}

	default:
		slog.Error("unknown request kind", "kind", int(req.kind))
	}
}

// shutdown fails outstanding state reads and releases the engine.
func (a *Adapter) shutdown() {
	for _, req := range a.queue.Drain() {
		if req.kind == requestState {
			req.reply <- stateReply{err: NewClosedError("getState")}
		}
	}
	if err := a.engine.Close(); err != nil {
		slog.Error("engine close failed", "error", err)
	}
}

// Close stops accepting requests, which causes Run() to return once the
// queue is drained.
func (a *Adapter) Close() {
	a.queue.Close()
}

// Clock returns the adapter's logical clock. Used by the journal to stamp
// recorded actions on the same timeline as notifications.
func (a *Adapter) Clock() *Clock {
	return a.clock
}

// QueueLen returns the number of pending requests.
// Useful for monitoring and testing.
func (a *Adapter) QueueLen() int {
	return a.queue.Len()
}
