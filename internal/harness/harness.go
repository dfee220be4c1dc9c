package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/NikolayTNikolov/stremio-core-web/internal/bridge"
	"github.com/NikolayTNikolov/stremio-core-web/internal/luaengine"
	"github.com/NikolayTNikolov/stremio-core-web/internal/runtime"
)

// TraceEvent is one captured notification.
type TraceEvent struct {
	Seq     int64  `json:"seq"`
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// Result holds the outcome of one scenario execution.
type Result struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
	Failures     []string     `json:"failures,omitempty"`
	Passed       bool         `json:"passed"`
}

// Run executes a scenario against a fresh bridge and Lua engine.
//
// Execution flow:
//  1. Build a bridge with a notification hook capturing the trace
//  2. Initialize it with the scenario's chunk (or the default model)
//  3. Dispatch every step in order
//  4. Read state once as a barrier, then evaluate assertions
//
// A scenario whose assertions fail still returns a Result (Passed false);
// an error is reserved for scenarios that could not be executed at all.
func Run(scenario *Scenario) (*Result, error) {
	capture := newTraceCapture(scenario.Subscribe)

	b := bridge.New(bridge.WithNotificationHook(capture.observe))
	if err := b.Initialize(luaengine.Factory(luaengine.Config{
		Chunk: scenario.Chunk,
		Name:  scenario.Name,
	})); err != nil {
		return nil, fmt.Errorf("initialize bridge: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Context cancellation is the expected exit; nothing to report.
		_ = b.Run(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	result := &Result{ScenarioName: scenario.Name}

	for i, step := range scenario.Steps {
		action, err := stepAction(step)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		if err := b.Dispatch(action); err != nil {
			return nil, fmt.Errorf("step %d: dispatch %s: %w", i, step.Dispatch, err)
		}
	}

	// Barrier: the queue is FIFO, so once this read is answered every step
	// has been processed and its notifications delivered.
	if _, err := b.GetState(ctx); err != nil {
		return nil, fmt.Errorf("final state read: %w", err)
	}

	result.Trace = capture.events()

	readState := func(field string) (json.RawMessage, error) {
		return b.GetStateField(ctx, field)
	}
	result.Failures = applyAssertions(scenario, result.Trace, readState)
	result.Passed = len(result.Failures) == 0

	return result, nil
}

// stepAction converts a scenario step into a runtime.Action.
func stepAction(step Step) (runtime.Action, error) {
	action := runtime.Action{Type: step.Dispatch, Field: step.Field}
	if step.Args != nil {
		args, err := json.Marshal(step.Args)
		if err != nil {
			return runtime.Action{}, fmt.Errorf("encode args: %w", err)
		}
		action.Args = args
	}
	return action, nil
}

// traceCapture accumulates notifications in emission order, optionally
// filtered to a subscribed event set.
type traceCapture struct {
	mu     sync.Mutex
	filter map[string]bool
	trace  []TraceEvent
}

func newTraceCapture(subscribe []string) *traceCapture {
	c := &traceCapture{}
	if len(subscribe) > 0 {
		c.filter = make(map[string]bool, len(subscribe))
		for _, event := range subscribe {
			c.filter[event] = true
		}
	}
	return c
}

func (c *traceCapture) observe(n runtime.Notification) {
	if c.filter != nil && !c.filter[n.Event] {
		return
	}

	var payload any
	if len(n.Payload) > 0 {
		// A payload that does not decode stays in the trace as raw text.
		if err := json.Unmarshal(n.Payload, &payload); err != nil {
			payload = string(n.Payload)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.trace = append(c.trace, TraceEvent{Seq: n.Seq, Event: n.Event, Payload: payload})
}

func (c *traceCapture) events() []TraceEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]TraceEvent, len(c.trace))
	copy(out, c.trace)
	return out
}
