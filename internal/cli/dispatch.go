package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/NikolayTNikolov/stremio-core-web/internal/runtime"
)

// DispatchOptions holds flags for the dispatch command.
type DispatchOptions struct {
	*RootOptions
	Engine   EngineOptions
	Database string
	Args     string
	Field    string
}

// DispatchResult is the dispatch command's success payload.
type DispatchResult struct {
	Action        string                 `json:"action"`
	Field         string                 `json:"field,omitempty"`
	Notifications []runtime.Notification `json:"notifications"`
}

// NewDispatchCommand creates the dispatch command.
func NewDispatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DispatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dispatch <action-type>",
		Short: "Dispatch one action against a fresh engine",
		Long: `Dispatch a single action against a freshly loaded engine package and
print the notifications it produced.

The engine starts from its initial state every time; use run for an
interactive session, or --db to journal the traffic.

Examples:
  stremio-core dispatch Player.Play --args '{"video":"v1"}'
  stremio-core dispatch Ctx.InstallAddon --args @addon.json --db ./bridge.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return dispatchOnce(opts, args[0], cmd)
		},
	}

	addEngineFlags(cmd, &opts.Engine)
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to journal database (optional)")
	cmd.Flags().StringVar(&opts.Args, "args", "", "action arguments as JSON")
	cmd.Flags().StringVar(&opts.Field, "field", "", "target a single model field")

	return cmd
}

func dispatchOnce(opts *DispatchOptions, actionType string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	action := runtime.Action{Type: actionType, Field: opts.Field}
	if opts.Args != "" {
		if !json.Valid([]byte(opts.Args)) {
			return NewExitError(ExitCommandError, fmt.Sprintf("invalid --args JSON: %s", opts.Args))
		}
		action.Args = json.RawMessage(opts.Args)
	}

	var mu sync.Mutex
	notifications := []runtime.Notification{}
	s, err := openSession(opts.Engine, opts.Database, func(n runtime.Notification) {
		mu.Lock()
		defer mu.Unlock()
		notifications = append(notifications, n)
	})
	if err != nil {
		return err
	}
	defer s.closeJournal()

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

	if err := s.bridge.Dispatch(action); err != nil {
		return WrapExitError(ExitCommandError, "dispatch failed", err)
	}

	// Barrier so every notification has been delivered.
	if _, err := s.bridge.GetState(ctx); err != nil {
		return WrapExitError(ExitCommandError, "state read failed", err)
	}

	mu.Lock()
	result := DispatchResult{
		Action:        actionType,
		Field:         opts.Field,
		Notifications: notifications,
	}
	mu.Unlock()

	if opts.Format == "json" {
		return formatter.Success(result)
	}

	if len(result.Notifications) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No notifications.")
		return nil
	}
	for _, n := range result.Notifications {
		fmt.Fprintf(cmd.OutOrStdout(), "[%d] %s %s\n", n.Seq, n.Event, string(n.Payload))
	}
	return nil
}
