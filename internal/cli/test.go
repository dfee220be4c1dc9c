package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/NikolayTNikolov/stremio-core-web/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Filter string // scenario name filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run scenario files against the bridge",
		Long: `Run YAML scenarios against a real bridge and engine.

Each scenario dispatches a flow of actions and validates the captured
notification trace and final state.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  stremio-core test ./scenarios
  stremio-core test ./scenarios --filter "addon-*"
  stremio-core test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}

	scenarioFiles, err := findScenarioFiles(scenariosDir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	if len(scenarioFiles) == 0 {
		if opts.Format == "json" {
			return outputTestJSON(cmd, TestResult{Scenarios: []ScenarioResult{}})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	result := TestResult{Scenarios: make([]ScenarioResult, 0, len(scenarioFiles))}

	for _, scenarioFile := range scenarioFiles {
		scenResult := runScenario(scenarioFile, opts)
		if scenResult == nil {
			continue // filtered out
		}
		result.Scenarios = append(result.Scenarios, *scenResult)
		result.Total++

		if scenResult.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Format == "json" {
		if err := outputTestJSON(cmd, result); err != nil {
			return err
		}
	} else {
		for _, scen := range result.Scenarios {
			status := "PASS"
			if !scen.Pass {
				status = "FAIL"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", status, scen.Name)
			for _, msg := range scen.Errors {
				fmt.Fprintf(cmd.OutOrStdout(), "      %s\n", msg)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d passed, %d failed, %d total\n",
			result.Passed, result.Failed, result.Total)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// runScenario loads and executes one scenario file. Returns nil when the
// scenario is excluded by the filter.
func runScenario(path string, opts *TestOptions) *ScenarioResult {
	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return &ScenarioResult{
			Name:   strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
			Errors: []string{err.Error()},
		}
	}

	if opts.Filter != "" {
		matched, err := filepath.Match(opts.Filter, scenario.Name)
		if err != nil || !matched {
			return nil
		}
	}

	result, err := harness.Run(scenario)
	if err != nil {
		return &ScenarioResult{Name: scenario.Name, Errors: []string{err.Error()}}
	}

	return &ScenarioResult{
		Name:   scenario.Name,
		Pass:   result.Passed,
		Errors: result.Failures,
	}
}

// findScenarioFiles lists .yaml/.yml files directly under dir, sorted.
func findScenarioFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	return files, nil
}

func outputTestJSON(cmd *cobra.Command, result TestResult) error {
	formatter := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
	return formatter.Success(result)
}
