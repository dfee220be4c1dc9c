// Package harness runs end-to-end scenarios against a real bridge.
//
// A scenario stands up a bridge over the Lua engine (the embedded default
// model or an inline chunk), dispatches a flow of actions, captures the
// ordered notification trace, and checks assertions plus an optional golden
// trace file. Because the adapter serializes everything through one queue,
// a single state read at the end of the flow is a complete barrier: every
// notification caused by the flow has been delivered by the time it
// returns, so traces are deterministic without sleeps or polling.
package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines one end-to-end bridge test.
type Scenario struct {
	// Name uniquely identifies this scenario; it is also the golden file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// Chunk is an inline Lua chunk overriding the embedded default model.
	Chunk string `yaml:"chunk,omitempty"`

	// Subscribe lists the event names to capture in the trace.
	// Empty captures every notification.
	Subscribe []string `yaml:"subscribe,omitempty"`

	// Steps is the action flow, dispatched in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the trace and the final state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step dispatches one action.
type Step struct {
	// Dispatch is the action type (e.g. "Ctx.InstallAddon").
	Dispatch string `yaml:"dispatch"`

	// Args is the opaque action payload.
	Args map[string]any `yaml:"args,omitempty"`

	// Field optionally targets a single model field.
	Field string `yaml:"field,omitempty"`
}

// Assertion validates the trace or final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Event is the notification name (trace assertions).
	Event string `yaml:"event,omitempty"`

	// Count is the expected number of occurrences (trace_count).
	Count int `yaml:"count,omitempty"`

	// Field selects the state field to read (state_field).
	Field string `yaml:"field,omitempty"`

	// Expect holds expected values. For state_field it is a subset match
	// against the field's state; for trace_contains, against the payload.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceCount    = "trace_count"
	AssertStateField    = "state_field"
)

// LoadScenario reads and validates a scenario file. Decoding is strict:
// unknown YAML fields are an error, catching typos before they silently
// weaken a scenario.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field checking.
func ParseScenario(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	sc := &Scenario{}
	if err := dec.Decode(sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := sc.validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

func (s *Scenario) validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("scenario %s: at least one step is required", s.Name)
	}
	for i, step := range s.Steps {
		if step.Dispatch == "" {
			return fmt.Errorf("scenario %s: step %d: dispatch is required", s.Name, i)
		}
	}
	for i, a := range s.Assertions {
		switch a.Type {
		case AssertTraceContains, AssertTraceCount:
			if a.Event == "" {
				return fmt.Errorf("scenario %s: assertion %d: event is required", s.Name, i)
			}
		case AssertStateField:
			if a.Field == "" {
				return fmt.Errorf("scenario %s: assertion %d: field is required", s.Name, i)
			}
		default:
			return fmt.Errorf("scenario %s: assertion %d: unknown type %q", s.Name, i, a.Type)
		}
	}
	return nil
}
