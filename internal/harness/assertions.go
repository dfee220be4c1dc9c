package harness

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// applyAssertions evaluates every scenario assertion against the captured
// trace and the final state, returning one failure message per unmet
// assertion. Assertions never abort the run; the full list of failures is
// more useful than the first.
func applyAssertions(sc *Scenario, trace []TraceEvent, readState func(field string) (json.RawMessage, error)) []string {
	var failures []string

	for i, a := range sc.Assertions {
		switch a.Type {
		case AssertTraceContains:
			if !traceContains(trace, a) {
				failures = append(failures,
					fmt.Sprintf("assertion %d: trace does not contain event %q matching %v", i, a.Event, a.Expect))
			}

		case AssertTraceCount:
			got := traceCount(trace, a.Event)
			if got != a.Count {
				failures = append(failures,
					fmt.Sprintf("assertion %d: event %q appeared %d times, want %d", i, a.Event, got, a.Count))
			}

		case AssertStateField:
			if msg := stateMatches(a, readState); msg != "" {
				failures = append(failures, fmt.Sprintf("assertion %d: %s", i, msg))
			}
		}
	}

	return failures
}

// traceContains reports whether any captured event has the asserted name
// and, when Expect is set, a payload covering the expected subset.
func traceContains(trace []TraceEvent, a Assertion) bool {
	for _, ev := range trace {
		if ev.Event != a.Event {
			continue
		}
		if a.Expect == nil {
			return true
		}
		payload, ok := ev.Payload.(map[string]any)
		if !ok {
			continue
		}
		if subsetMatch(a.Expect, payload) {
			return true
		}
	}
	return false
}

func traceCount(trace []TraceEvent, event string) int {
	count := 0
	for _, ev := range trace {
		if ev.Event == event {
			count++
		}
	}
	return count
}

// stateMatches reads the asserted field and checks the expected subset.
// Returns an empty string on success, a failure message otherwise.
func stateMatches(a Assertion, readState func(field string) (json.RawMessage, error)) string {
	raw, err := readState(a.Field)
	if err != nil {
		return fmt.Sprintf("read state field %q: %v", a.Field, err)
	}

	var state map[string]any
	if err := json.Unmarshal(raw, &state); err != nil {
		return fmt.Sprintf("state field %q is not an object: %v", a.Field, err)
	}

	if !subsetMatch(a.Expect, state) {
		return fmt.Sprintf("state field %q = %s, want subset %v", a.Field, raw, a.Expect)
	}
	return ""
}

// subsetMatch reports whether every expected key is present in actual with
// an equal value. Values pass through a JSON round trip first so YAML ints
// and JSON floats compare equal.
func subsetMatch(expect, actual map[string]any) bool {
	for key, want := range expect {
		got, ok := actual[key]
		if !ok {
			return false
		}
		if !reflect.DeepEqual(jsonNormalize(want), jsonNormalize(got)) {
			return false
		}
	}
	return true
}

// jsonNormalize round-trips a value through JSON so numeric and nested
// types from YAML decoding compare against JSON decoding.
func jsonNormalize(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}
