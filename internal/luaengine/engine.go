// Package luaengine implements runtime.Engine on an embedded Lua VM.
//
// The state model and transition logic live entirely in a Lua chunk; Go
// only moves opaque values across the boundary. The chunk contract:
//
//   - dispatch(action, args, field): process one action. args is a table
//     (or nil), field a string (or nil).
//   - get_state(field): return the state for one field, or the whole model
//     when field is nil.
//   - emit(event, payload): host-registered; delivers a notification.
//
// The VM is not thread-safe. The runtime.Adapter serializes all access.
package luaengine

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Shopify/go-lua"

	"github.com/NikolayTNikolov/stremio-core-web/internal/runtime"
)

//go:embed core.lua
var defaultChunk string

// Config selects the chunk the engine runs.
type Config struct {
	// Chunk is the Lua source. Empty selects the embedded default model.
	Chunk string

	// Name labels the chunk in error messages. Defaults to "core".
	Name string
}

// Engine runs the core model inside a go-lua VM.
type Engine struct {
	vm   *lua.State
	name string
}

// Factory adapts Load to the runtime.Factory contract.
func Factory(cfg Config) runtime.Factory {
	return func(emit runtime.EmitFunc) (runtime.Engine, error) {
		return Load(cfg, emit)
	}
}

// Load creates the VM, registers emit as the engine's sole notification
// sink, and executes the chunk. A chunk that fails to run or does not
// define the dispatch/get_state globals is an initialization failure.
func Load(cfg Config, emit runtime.EmitFunc) (*Engine, error) {
	name := cfg.Name
	if name == "" {
		name = "core"
	}
	chunk := cfg.Chunk
	if chunk == "" {
		chunk = defaultChunk
	}

	vm := lua.NewState()
	lua.OpenLibraries(vm)

	vm.Register("emit", func(l *lua.State) int {
		event := lua.CheckString(l, 1)
		payload := json.RawMessage("null")
		if !l.IsNoneOrNil(2) {
			encoded, err := json.Marshal(luaToGo(l, 2))
			if err != nil {
				lua.Errorf(l, "emit %s: unencodable payload", event)
				return 0
			}
			payload = encoded
		}
		emit(event, payload)
		return 0
	})

	if err := lua.DoString(vm, chunk); err != nil {
		return nil, fmt.Errorf("load chunk %s: %w", name, err)
	}

	for _, global := range []string{"dispatch", "get_state"} {
		vm.Global(global)
		typ := vm.TypeOf(-1)
		vm.Pop(1)
		if typ != lua.TypeFunction {
			return nil, fmt.Errorf("chunk %s: global %q is not a function", name, global)
		}
	}

	return &Engine{vm: vm, name: name}, nil
}

// Dispatch invokes the chunk's dispatch function. Notifications fire
// synchronously through emit while the call runs.
func (e *Engine) Dispatch(_ context.Context, action runtime.Action) error {
	if e.vm == nil {
		return errors.New("engine is closed")
	}

	e.vm.Global("dispatch")
	e.vm.PushString(action.Type)

	if len(action.Args) == 0 {
		e.vm.PushNil()
	} else {
		var args any
		if err := json.Unmarshal(action.Args, &args); err != nil {
			e.vm.Pop(2)
			return fmt.Errorf("dispatch %s: decode args: %w", action.Type, err)
		}
		pushGo(e.vm, args)
	}

	if action.Field == "" {
		e.vm.PushNil()
	} else {
		e.vm.PushString(action.Field)
	}

	if err := e.vm.ProtectedCall(3, 0, 0); err != nil {
		return fmt.Errorf("dispatch %s: %w", action.Type, err)
	}
	return nil
}

// State invokes the chunk's get_state function and serializes the result.
func (e *Engine) State(_ context.Context, field string) (json.RawMessage, error) {
	if e.vm == nil {
		return nil, errors.New("engine is closed")
	}

	e.vm.Global("get_state")
	if field == "" {
		e.vm.PushNil()
	} else {
		e.vm.PushString(field)
	}

	if err := e.vm.ProtectedCall(1, 1, 0); err != nil {
		return nil, fmt.Errorf("get_state %s: %w", field, err)
	}

	value := luaToGo(e.vm, -1)
	e.vm.Pop(1)

	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("get_state %s: encode: %w", field, err)
	}
	return encoded, nil
}

// Close drops the VM. go-lua has no explicit teardown; releasing the
// reference is enough.
func (e *Engine) Close() error {
	e.vm = nil
	return nil
}
