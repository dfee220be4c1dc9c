package runtime

import (
	"context"
	"encoding/json"
)

// Action is an opaque command forwarded verbatim to the engine. The bridge
// layer never interprets, validates, or transforms it.
type Action struct {
	// Type identifies the action (e.g. "Ctx.InstallAddon").
	Type string `json:"action"`

	// Args is the opaque argument payload, passed through as-is.
	Args json.RawMessage `json:"args,omitempty"`

	// Field optionally targets the action at a single model field.
	// Empty means the whole model.
	Field string `json:"field,omitempty"`
}

// Notification is an event emitted by the engine after processing.
// The payload is opaque; only the event name is used for routing.
type Notification struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`

	// Seq is the adapter's monotonic emission stamp. Notifications with
	// lower seq were emitted earlier.
	Seq int64 `json:"seq"`
}

// EmitFunc is the single notification sink an Engine is given at
// construction time. Engines must call it from the goroutine that is
// executing the triggering Dispatch.
type EmitFunc func(event string, payload json.RawMessage)

// Engine is the opaque state container: it accepts actions, owns the real
// application state, and emits zero or more notifications per dispatch.
// Implementations are NOT required to be thread-safe; the Adapter
// serializes all access.
type Engine interface {
	// Dispatch forwards an action for processing. Notifications may fire
	// before or after it returns; the return value does not reflect the
	// outcome of the state transition.
	Dispatch(ctx context.Context, action Action) error

	// State returns the current state serialized as JSON. An empty field
	// selects the whole model, otherwise a single model field.
	State(ctx context.Context, field string) (json.RawMessage, error)

	// Close releases the engine. Further calls fail.
	Close() error
}

// Factory creates the single engine instance and registers emit as its sole
// notification sink. A Factory is invoked exactly once per Adapter.
type Factory func(emit EmitFunc) (Engine, error)

// Sink receives stamped notifications from the Adapter in emission order.
type Sink func(Notification)
