package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/NikolayTNikolov/stremio-core-web/internal/manifest"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid      bool     `json:"valid"`
	Name       string   `json:"name,omitempty"`
	Version    string   `json:"version,omitempty"`
	Entrypoint string   `json:"entrypoint,omitempty"`
	Events     []string `json:"events,omitempty"`
	Actions    []string `json:"actions,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <manifest.cue>",
		Short: "Validate an engine manifest",
		Long: `Validate an engine manifest against the descriptor schema.

Checks syntax, required fields, and the declared event/action vocabulary
without loading the engine itself.

Exit codes:
  0 - Manifest is valid
  1 - Manifest is invalid
  2 - Command error (file not found, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	mf, err := manifest.Load(path)
	if err != nil {
		var compileErr *manifest.CompileError
		if errors.As(err, &compileErr) {
			if ferr := formatter.Error("E_MANIFEST", compileErr.Error(), nil); ferr != nil {
				return ferr
			}
			return NewExitError(ExitFailure, "manifest is invalid")
		}
		return WrapExitError(ExitCommandError, "failed to read manifest", err)
	}

	result := ValidationResult{
		Valid:      true,
		Name:       mf.Name,
		Version:    mf.Version,
		Entrypoint: mf.Entrypoint,
		Events:     mf.Events,
		Actions:    mf.Actions,
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Manifest valid: %s %s\n", mf.Name, mf.Version)
	if mf.Entrypoint != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "  entrypoint: %s\n", mf.Entrypoint)
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "  entrypoint: (embedded default model)")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "  events: %d declared, actions: %d declared\n",
		len(mf.Events), len(mf.Actions))
	return nil
}
