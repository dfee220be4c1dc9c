// Package runtime hosts the opaque core engine behind a single serialized
// dispatch channel.
//
// ARCHITECTURE:
//
// Single-Writer Request Loop:
// The Adapter owns exactly one Engine instance and is the only party that
// invokes it. All engine access - action dispatches and state reads - flows
// through one FIFO request queue drained by Run() in a single goroutine.
// This ensures:
// - One notification callback registered for the engine's lifetime
// - Notifications observed in the exact order the engine emits them
// - No concurrent access to the engine, which is not thread-safe
//
// Request Processing Flow:
// 1. Callers submit requests via Dispatch() or State() (safe from any goroutine)
// 2. Run() dequeues requests one at a time
// 3. Dispatches are forwarded fire-and-forget; failures are logged and the
//    loop continues
// 4. State reads are answered through a per-request reply channel
// 5. Notifications emitted while a request is processed are stamped with a
//    monotonic seq and handed to the Sink before the next request starts
//
// Dispatch makes no promise that the underlying state transition has
// completed by the time it returns. Outcomes are observed through
// notifications and later State() calls only.
package runtime
