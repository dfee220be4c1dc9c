package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// StateOptions holds flags for the state command.
type StateOptions struct {
	*RootOptions
	Engine EngineOptions
	Field  string
}

// NewStateCommand creates the state command.
func NewStateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "state",
		Short: "Print an engine package's initial state",
		Long: `Load an engine package and print its state snapshot.

The snapshot is the engine's initial state - no actions are dispatched.
Useful for inspecting what a chunk's model looks like.

Examples:
  stremio-core state
  stremio-core state --field player
  stremio-core state --manifest ./engine/manifest.cue --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printState(opts, cmd)
		},
	}

	addEngineFlags(cmd, &opts.Engine)
	cmd.Flags().StringVar(&opts.Field, "field", "", "read a single model field")

	return cmd
}

func printState(opts *StateOptions, cmd *cobra.Command) error {
	s, err := openSession(opts.Engine, "", nil)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = s.bridge.Run(ctx)
	}()
	defer func() {
		cancel()
		<-loopDone
	}()

	snapshot, err := s.bridge.GetStateField(ctx, opts.Field)
	if err != nil {
		return WrapExitError(ExitCommandError, "state read failed", err)
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.Success(json.RawMessage(snapshot))
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(snapshot))
	return nil
}
