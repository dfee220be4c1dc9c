package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validManifest = `
name:       "core"
version:    "1.4.0"
entrypoint: "core.lua"
events: ["NewState", "ActionDropped"]
actions: ["Ctx.Login", "Ctx.Logout", "Player.Play", "Player.Stop"]
`

func TestParse_Valid(t *testing.T) {
	m, err := Parse([]byte(validManifest), "manifest.cue")
	require.NoError(t, err)

	assert.Equal(t, "core", m.Name)
	assert.Equal(t, "1.4.0", m.Version)
	assert.Equal(t, "core.lua", m.Entrypoint)
	assert.Equal(t, []string{"NewState", "ActionDropped"}, m.Events)
	assert.Len(t, m.Actions, 4)
}

func TestParse_Minimal(t *testing.T) {
	m, err := Parse([]byte(`name: "core", version: "0.1.0"`), "manifest.cue")
	require.NoError(t, err)

	assert.Equal(t, "core", m.Name)
	assert.Empty(t, m.Entrypoint)
	assert.Empty(t, m.Events)
	assert.Empty(t, m.Actions)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"missing name", `version: "1.0.0"`},
		{"empty name", `name: "", version: "1.0.0"`},
		{"missing version", `name: "core"`},
		{"bad version", `name: "core", version: "one"`},
		{"wrong type", `name: "core", version: "1.0.0", events: "NewState"`},
		{"empty event name", `name: "core", version: "1.0.0", events: [""]`},
		{"syntax error", `name: "core" version`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.source), "manifest.cue")
			require.Error(t, err)
		})
	}
}

func TestParse_CompileErrorHasPosition(t *testing.T) {
	_, err := Parse([]byte(`name: "core", version: "nope"`), "bad.cue")
	require.Error(t, err)

	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.NotEmpty(t, ce.Message)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.cue")
	require.NoError(t, os.WriteFile(path, []byte(validManifest), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "core", m.Name)
	assert.Equal(t, filepath.Join(dir, "core.lua"), m.EntrypointPath())
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.cue"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read manifest")
}

func TestEntrypointPath(t *testing.T) {
	// No entrypoint means the embedded default.
	m := &Manifest{}
	assert.Empty(t, m.EntrypointPath())

	// Absolute entrypoints pass through untouched.
	abs := filepath.Join(string(filepath.Separator), "opt", "core.lua")
	m = &Manifest{Entrypoint: abs, dir: "/elsewhere"}
	assert.Equal(t, abs, m.EntrypointPath())

	// Without a source directory the relative path passes through.
	m = &Manifest{Entrypoint: "core.lua"}
	assert.Equal(t, "core.lua", m.EntrypointPath())
}

func TestDeclaresEvent(t *testing.T) {
	m := &Manifest{Events: []string{"NewState"}}
	assert.True(t, m.DeclaresEvent("NewState"))
	assert.False(t, m.DeclaresEvent("ActionDropped"))

	// Empty vocabulary covers everything.
	open := &Manifest{}
	assert.True(t, open.DeclaresEvent("Anything"))
}

func TestDeclaresAction(t *testing.T) {
	m := &Manifest{Actions: []string{"Ctx.Login"}}
	assert.True(t, m.DeclaresAction("Ctx.Login"))
	assert.False(t, m.DeclaresAction("Ctx.Logout"))

	open := &Manifest{}
	assert.True(t, open.DeclaresAction("Anything"))
}
