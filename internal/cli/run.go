package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/NikolayTNikolov/stremio-core-web/internal/runtime"
)

// maxActionLineBytes bounds a single stdin action line. Payloads are opaque
// JSON and can carry large args, so the default 64KB scanner token limit is
// too small.
const maxActionLineBytes = 10 << 20

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Engine   EngineOptions
	Database string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the bridge and stream actions from stdin",
		Long: `Start the bridge over an engine package and process actions interactively.

Each stdin line is one action as JSON: {"action": "...", "args": {...}, "field": "..."}.
Every engine notification is printed as it is delivered. The bridge stops on
EOF or on SIGINT/SIGTERM.

Example:
  echo '{"action":"Player.Play","args":{"video":"v1"}}' | stremio-core run
  stremio-core run --manifest ./engine/manifest.cue --db ./bridge.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBridge(opts, cmd)
		},
	}

	addEngineFlags(cmd, &opts.Engine)
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to journal database (optional)")

	return cmd
}

func runBridge(opts *RunOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	// Notifications are printed from the bridge loop goroutine while line
	// errors are printed from this one; both go to the same writer, so all
	// output takes outMu.
	var outMu sync.Mutex

	printNotification := func(n runtime.Notification) {
		outMu.Lock()
		defer outMu.Unlock()
		if opts.Format == "json" {
			_ = json.NewEncoder(cmd.OutOrStdout()).Encode(n)
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "[%d] %s %s\n", n.Seq, n.Event, string(n.Payload))
	}
	printError := func(code, message string) {
		outMu.Lock()
		defer outMu.Unlock()
		formatter.Error(code, message, nil)
	}

	s, err := openSession(opts.Engine, opts.Database, printNotification)
	if err != nil {
		return err
	}
	defer s.closeJournal()
	slog.Info("bridge ready")

	// Setup signal handling for graceful shutdown.
	// Use the command's context if available (for testing).
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	loopDone := make(chan error, 1)
	go func() {
		loopDone <- s.bridge.Run(ctx)
	}()

	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 0, 64*1024), maxActionLineBytes)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var action runtime.Action
		if err := json.Unmarshal([]byte(line), &action); err != nil {
			printError("E_CLI", fmt.Sprintf("invalid action line: %v", err))
			continue
		}
		if action.Type == "" {
			printError("E_CLI", "action line missing \"action\"")
			continue
		}

		if err := s.bridge.Dispatch(action); err != nil {
			printError(bridgeErrorCode(err), err.Error())
		}

		select {
		case <-ctx.Done():
		default:
			continue
		}
		break
	}
	if err := scanner.Err(); err != nil {
		return WrapExitError(ExitCommandError, "read stdin", err)
	}

	// Barrier: once this read is answered, every dispatched action has been
	// processed and its notifications printed.
	if _, err := s.bridge.GetState(ctx); err != nil && ctx.Err() == nil {
		return WrapExitError(ExitCommandError, "final state read", err)
	}

	cancel()
	<-loopDone
	slog.Info("bridge stopped")
	return nil
}

// bridgeErrorCode extracts a structured code for formatter output.
func bridgeErrorCode(err error) string {
	var be *runtime.BridgeError
	if errors.As(err, &be) {
		return string(be.Code)
	}
	return "E_CLI"
}
