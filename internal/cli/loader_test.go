package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEngine_Default(t *testing.T) {
	factory, mf, err := loadEngine(EngineOptions{})
	require.NoError(t, err)
	assert.NotNil(t, factory)
	assert.Nil(t, mf)
}

func TestLoadEngine_BareChunk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.lua")
	chunk := `
		function dispatch(action, args, field) end
		function get_state(field) return {} end
	`
	require.NoError(t, os.WriteFile(path, []byte(chunk), 0o644))

	factory, mf, err := loadEngine(EngineOptions{Chunk: path})
	require.NoError(t, err)
	assert.NotNil(t, factory)
	assert.Nil(t, mf)
}

func TestLoadEngine_MissingChunk(t *testing.T) {
	_, _, err := loadEngine(EngineOptions{Chunk: filepath.Join(t.TempDir(), "nope.lua")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read chunk")
}

func TestLoadEngine_ManifestWithoutEntrypoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.cue")
	require.NoError(t, os.WriteFile(path, []byte(`name: "core", version: "1.0.0"`), 0o644))

	factory, mf, err := loadEngine(EngineOptions{Manifest: path})
	require.NoError(t, err)
	assert.NotNil(t, factory)
	require.NotNil(t, mf)
	assert.Equal(t, "core", mf.Name)
}

func TestLoadEngine_ManifestEntrypointMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.cue")
	content := `name: "core", version: "1.0.0", entrypoint: "gone.lua"`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, _, err := loadEngine(EngineOptions{Manifest: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read entrypoint")
}

func TestOpenSession_BadManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.cue")
	require.NoError(t, os.WriteFile(path, []byte(`name: ""`), 0o644))

	_, err := openSession(EngineOptions{Manifest: path}, "", nil)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestOpenSession_ReadyBridge(t *testing.T) {
	s, err := openSession(EngineOptions{}, "", nil)
	require.NoError(t, err)
	defer s.closeJournal()

	assert.True(t, s.bridge.Ready())
	assert.Nil(t, s.journal)
	assert.Nil(t, s.manifest)
}
