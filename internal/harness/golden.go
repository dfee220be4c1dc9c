package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"
)

// TraceSnapshot captures the complete trace for a scenario execution.
// Serialized with MarshalCanonical for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
}

func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         s.Trace,
	}
}

// RunWithGolden executes a scenario and compares the trace against a golden
// file at testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if the scenario could not be executed or its assertions
// failed; a trace mismatch fails the test through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return err
	}

	if !result.Passed {
		t.Errorf("scenario %s assertions failed: %v", scenario.Name, result.Failures)
	}
	return nil
}

// AssertGolden compares an already-obtained result's trace against the
// golden file for scenarioName.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
	}

	traceJSON, err := MarshalCanonical(snapshot.toCanonicalMap())
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
