package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NikolayTNikolov/stremio-core-web/internal/journal"
)

func TestDispatch_DefaultModel(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewDispatchCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"Player.Play", "--args", `{"video":"tt0111161"}`})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "[1] NewState")
	assert.Contains(t, output, `"player"`)
}

func TestDispatch_JSONOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewDispatchCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"Ctx.Logout"})

	require.NoError(t, cmd.Execute())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var result DispatchResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, "Ctx.Logout", result.Action)
	require.Len(t, result.Notifications, 1)
	assert.Equal(t, "NewState", result.Notifications[0].Event)
	assert.Equal(t, int64(1), result.Notifications[0].Seq)
}

func TestDispatch_UnknownActionReported(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewDispatchCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"No.Such.Action"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "ActionDropped")
}

func TestDispatch_InvalidArgsJSON(t *testing.T) {
	cmd := NewDispatchCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"Player.Play", "--args", "{broken"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid --args JSON")
}

func TestDispatch_JournalsTraffic(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "bridge.db")

	buf := &bytes.Buffer{}
	cmd := NewDispatchCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{
		"Ctx.InstallAddon",
		"--args", `{"transportUrl":"https://example.com/manifest.json","manifest":{"id":"org.x"}}`,
		"--db", dbPath,
	})

	require.NoError(t, cmd.Execute())

	j, err := journal.Open(dbPath)
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	actions, err := j.EntriesByKind(ctx, journal.KindAction)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, "Ctx.InstallAddon", actions[0].Name)

	notifications, err := j.EntriesByKind(ctx, journal.KindNotification)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, "NewState", notifications[0].Name)

	derived, err := j.EntriesByKind(ctx, journal.KindAnalytics)
	require.NoError(t, err)
	require.Len(t, derived, 1)
	assert.Equal(t, "installAddon", derived[0].Name)
	assert.Contains(t, string(derived[0].Payload), "org.x")
}

func TestDispatch_BrokenChunk(t *testing.T) {
	chunkPath := filepath.Join(t.TempDir(), "broken.lua")
	require.NoError(t, os.WriteFile(chunkPath, []byte("not lua"), 0o644))

	cmd := NewDispatchCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"Anything", "--chunk", chunkPath})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
