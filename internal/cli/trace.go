package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/NikolayTNikolov/stremio-core-web/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Kind     string // optional - filter to one entry kind
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Dump a journal database",
		Long: `Dump the bridge journal in append order.

Shows every dispatched action, delivered notification, and derived
analytics message recorded by a run or dispatch session with --db.

Examples:
  stremio-core trace --db ./bridge.db
  stremio-core trace --db ./bridge.db --kind notification
  stremio-core trace --db ./bridge.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to journal database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter by kind (action|notification|analytics)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	switch opts.Kind {
	case "", journal.KindAction, journal.KindNotification, journal.KindAnalytics:
	default:
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown kind %q", opts.Kind))
	}

	j, err := journal.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	var entries []journal.Entry
	if opts.Kind == "" {
		entries, err = j.Entries(ctx)
	} else {
		entries, err = j.EntriesByKind(ctx, opts.Kind)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.Success(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Journal is empty.")
		return nil
	}
	for _, e := range entries {
		line := fmt.Sprintf("%6d  %-12s  %s", e.Seq, e.Kind, e.Name)
		if e.Field != "" {
			line += fmt.Sprintf("  field=%s", e.Field)
		}
		if e.EngineSeq != 0 {
			line += fmt.Sprintf("  engine_seq=%d", e.EngineSeq)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", line, string(e.Payload))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d entries\n", len(entries))
	return nil
}
