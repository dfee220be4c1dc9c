// Package manifest loads and validates engine package descriptors.
//
// Manifests are authored in CUE and checked against the embedded #Manifest
// schema using the CUE SDK's Go API directly (not a CLI subprocess), so
// malformed descriptors fail at load time with positions instead of
// surfacing as odd engine behavior later.
package manifest

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaCUE string

// Manifest describes one engine package.
type Manifest struct {
	Name       string   `json:"name"`
	Version    string   `json:"version"`
	Entrypoint string   `json:"entrypoint,omitempty"`
	Events     []string `json:"events,omitempty"`
	Actions    []string `json:"actions,omitempty"`

	// dir is the manifest file's directory, for resolving Entrypoint.
	dir string
}

// CompileError is a manifest validation failure with source position.
type CompileError struct {
	Message string
	Pos     token.Pos
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s", e.Pos, e.Message)
	}
	return e.Message
}

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := Parse(data, path)
	if err != nil {
		return nil, err
	}
	m.dir = filepath.Dir(path)
	return m, nil
}

// Parse validates raw CUE manifest source against the embedded schema.
func Parse(data []byte, filename string) (*Manifest, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("internal schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Manifest"))
	if err := def.Err(); err != nil {
		return nil, fmt.Errorf("internal schema: %w", err)
	}

	val := ctx.CompileBytes(data, cue.Filename(filename))
	if err := val.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	unified := def.Unify(val)
	if err := unified.Validate(cue.Concrete(true), cue.Final()); err != nil {
		return nil, formatCUEError(err)
	}

	m := &Manifest{}
	if err := unified.Decode(m); err != nil {
		return nil, formatCUEError(err)
	}
	return m, nil
}

// EntrypointPath resolves the chunk path relative to the manifest file.
// Empty when the manifest uses the embedded default model.
func (m *Manifest) EntrypointPath() string {
	if m.Entrypoint == "" {
		return ""
	}
	if filepath.IsAbs(m.Entrypoint) || m.dir == "" {
		return m.Entrypoint
	}
	return filepath.Join(m.dir, m.Entrypoint)
}

// DeclaresEvent reports whether the manifest's event vocabulary covers
// event. An absent vocabulary covers everything.
func (m *Manifest) DeclaresEvent(event string) bool {
	if len(m.Events) == 0 {
		return true
	}
	for _, e := range m.Events {
		if e == event {
			return true
		}
	}
	return false
}

// DeclaresAction reports whether the manifest's action vocabulary covers
// action. An absent vocabulary covers everything.
func (m *Manifest) DeclaresAction(action string) bool {
	if len(m.Actions) == 0 {
		return true
	}
	for _, a := range m.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// formatCUEError converts a CUE error into a positioned CompileError,
// keeping only the first error's primary position.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	return &CompileError{
		Message: first.Error(),
		Pos:     first.Position(),
	}
}
