// Package bridge exposes the shared state container to host code.
//
// The Bridge is a pub/sub façade over one runtime.Adapter. Hosts register
// listeners per event name with On/Off, push opaque actions through
// Dispatch, and read snapshots through GetState. Engine notifications are
// re-broadcast to the listeners registered for the matching event name, in
// registration order, with each listener invocation isolated so one failure
// cannot suppress the others.
//
// Lifecycle: a Bridge is constructed inert and becomes usable only after
// Initialize succeeds. Every public operation before that fails with a
// NOT_READY error; after a failed Initialize every operation keeps
// returning the initialization failure. There is no way back to the
// uninitialized state and no second Initialize.
//
// Construct one Bridge per process during startup and hand the reference to
// all consumers; the single-instance semantics live in the wiring, not in
// package-level state.
package bridge
