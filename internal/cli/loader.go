package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/NikolayTNikolov/stremio-core-web/internal/analytics"
	"github.com/NikolayTNikolov/stremio-core-web/internal/bridge"
	"github.com/NikolayTNikolov/stremio-core-web/internal/journal"
	"github.com/NikolayTNikolov/stremio-core-web/internal/luaengine"
	"github.com/NikolayTNikolov/stremio-core-web/internal/manifest"
	"github.com/NikolayTNikolov/stremio-core-web/internal/runtime"
)

// EngineOptions selects the engine package commands operate on.
type EngineOptions struct {
	Manifest string // CUE manifest path
	Chunk    string // bare Lua chunk path; mutually exclusive with Manifest
}

// addEngineFlags registers the engine selection flags on cmd.
func addEngineFlags(cmd *cobra.Command, opts *EngineOptions) {
	cmd.Flags().StringVar(&opts.Manifest, "manifest", "", "path to engine manifest (CUE)")
	cmd.Flags().StringVar(&opts.Chunk, "chunk", "", "path to bare Lua chunk (no manifest)")
	cmd.MarkFlagsMutuallyExclusive("manifest", "chunk")
}

// loadEngine resolves the engine factory from flags. With neither flag set,
// the embedded default model is used. The returned manifest is nil unless
// one was loaded.
func loadEngine(opts EngineOptions) (runtime.Factory, *manifest.Manifest, error) {
	switch {
	case opts.Manifest != "":
		mf, err := manifest.Load(opts.Manifest)
		if err != nil {
			return nil, nil, fmt.Errorf("load manifest: %w", err)
		}
		cfg := luaengine.Config{Name: mf.Name}
		if path := mf.EntrypointPath(); path != "" {
			chunk, err := os.ReadFile(path)
			if err != nil {
				return nil, nil, fmt.Errorf("read entrypoint %s: %w", path, err)
			}
			cfg.Chunk = string(chunk)
		}
		return luaengine.Factory(cfg), mf, nil

	case opts.Chunk != "":
		chunk, err := os.ReadFile(opts.Chunk)
		if err != nil {
			return nil, nil, fmt.Errorf("read chunk: %w", err)
		}
		return luaengine.Factory(luaengine.Config{Chunk: string(chunk), Name: opts.Chunk}), nil, nil

	default:
		return luaengine.Factory(luaengine.Config{}), nil, nil
	}
}

// session is an initialized bridge plus its optional journal, assembled the
// same way for run, dispatch, and state commands.
type session struct {
	bridge   *bridge.Bridge
	journal  *journal.Journal
	manifest *manifest.Manifest
}

// openSession loads the engine, opens the journal if dbPath is set, and
// initializes a bridge wired with journaling, analytics derivation, and
// undeclared-event diagnostics. extraNotify, when non-nil, observes every
// notification after the built-in hooks.
func openSession(engOpts EngineOptions, dbPath string, extraNotify func(runtime.Notification)) (*session, error) {
	factory, mf, err := loadEngine(engOpts)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load engine", err)
	}

	s := &session{manifest: mf}

	if dbPath != "" {
		j, err := journal.Open(dbPath)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		s.journal = j
	}

	s.bridge = bridge.New(
		bridge.WithDispatchHook(s.onDispatch),
		bridge.WithNotificationHook(func(n runtime.Notification) {
			s.onNotification(n)
			if extraNotify != nil {
				extraNotify(n)
			}
		}),
	)

	if err := s.bridge.Initialize(factory); err != nil {
		s.closeJournal()
		return nil, WrapExitError(ExitCommandError, "failed to initialize engine", err)
	}

	return s, nil
}

// onDispatch journals the action and derives analytics from it. Neither may
// disturb the dispatch itself, so failures are logged and swallowed.
func (s *session) onDispatch(a runtime.Action) {
	ctx := context.Background()

	if s.manifest != nil && !s.manifest.DeclaresAction(a.Type) {
		slog.Warn("action not declared by manifest", "action", a.Type, "engine", s.manifest.Name)
	}

	if s.journal != nil {
		if err := s.journal.RecordAction(ctx, a.Type, a.Field, a.Args); err != nil {
			slog.Error("journal action failed", "action", a.Type, "error", err)
		}
	}

	msg, matched, err := analytics.FromAction(a)
	if err != nil {
		slog.Error("analytics derivation failed", "action", a.Type, "error", err)
		return
	}
	if !matched {
		return
	}

	slog.Debug("analytics message derived", "name", msg.Name, "addon", msg.Data.AddonID)
	if s.journal != nil {
		payload, err := json.Marshal(msg)
		if err != nil {
			slog.Error("encode analytics message failed", "name", msg.Name, "error", err)
			return
		}
		if err := s.journal.RecordAnalytics(ctx, msg.Name, payload); err != nil {
			slog.Error("journal analytics failed", "name", msg.Name, "error", err)
		}
	}
}

// onNotification journals the notification and flags undeclared events.
func (s *session) onNotification(n runtime.Notification) {
	if s.manifest != nil && !s.manifest.DeclaresEvent(n.Event) {
		slog.Warn("event not declared by manifest", "event", n.Event, "engine", s.manifest.Name)
	}

	if s.journal != nil {
		if err := s.journal.RecordNotification(context.Background(), n.Event, n.Seq, n.Payload); err != nil {
			slog.Error("journal notification failed", "event", n.Event, "error", err)
		}
	}
}

func (s *session) closeJournal() {
	if s.journal == nil {
		return
	}
	if err := s.journal.Close(); err != nil {
		slog.Error("journal close failed", "error", err)
	}
}
