package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NikolayTNikolov/stremio-core-web/internal/journal"
)

func seedJournal(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bridge.db")
	ctx := context.Background()

	j, err := journal.Open(path)
	require.NoError(t, err)
	require.NoError(t, j.RecordAction(ctx, "Ctx.InstallAddon", "", json.RawMessage(`{"manifest":{"id":"org.x"}}`)))
	require.NoError(t, j.RecordAnalytics(ctx, "installAddon", json.RawMessage(`{"name":"installAddon"}`)))
	require.NoError(t, j.RecordNotification(ctx, "NewState", 1, json.RawMessage(`{"field":"ctx"}`)))
	require.NoError(t, j.Close())

	return path
}

func TestTrace_MissingDatabaseFlag(t *testing.T) {
	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestTrace_EmptyJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.db")
	j, err := journal.Open(path)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", path})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Journal is empty")
}

func TestTrace_DumpsEntries(t *testing.T) {
	path := seedJournal(t)

	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", path})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "Ctx.InstallAddon")
	assert.Contains(t, output, "installAddon")
	assert.Contains(t, output, "NewState")
	assert.Contains(t, output, "3 entries")
}

func TestTrace_KindFilter(t *testing.T) {
	path := seedJournal(t)

	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", path, "--kind", "notification"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "NewState")
	assert.NotContains(t, output, "Ctx.InstallAddon")
	assert.Contains(t, output, "1 entries")
}

func TestTrace_UnknownKind(t *testing.T) {
	path := seedJournal(t)

	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--db", path, "--kind", "everything"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTrace_JSONOutput(t *testing.T) {
	path := seedJournal(t)

	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", path})

	require.NoError(t, cmd.Execute())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var entries []journal.Entry
	require.NoError(t, json.Unmarshal(data, &entries))
	require.Len(t, entries, 3)
	assert.Equal(t, "Ctx.InstallAddon", entries[0].Name)
}
