package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NikolayTNikolov/stremio-core-web/internal/runtime"
)

func TestScriptEngine_RecordsDispatches(t *testing.T) {
	e := NewScriptEngine(nil)

	require.NoError(t, e.Dispatch(context.Background(), runtime.Action{Type: "A"}))
	require.NoError(t, e.Dispatch(context.Background(), runtime.Action{Type: "B", Field: "ctx"}))

	dispatched := e.Dispatched()
	require.Len(t, dispatched, 2)
	assert.Equal(t, "A", dispatched[0].Type)
	assert.Equal(t, "ctx", dispatched[1].Field)
}

func TestScriptEngine_HandlerEmits(t *testing.T) {
	var events []string
	emit := func(event string, payload json.RawMessage) {
		events = append(events, event)
	}
	handler := func(action runtime.Action, emit runtime.EmitFunc) error {
		emit("Echo", nil)
		return nil
	}

	e := NewScriptEngine(emit, WithHandler(handler))
	require.NoError(t, e.Dispatch(context.Background(), runtime.Action{Type: "X"}))
	assert.Equal(t, []string{"Echo"}, events)
}

func TestScriptEngine_State(t *testing.T) {
	e := NewScriptEngine(nil, WithState(map[string]any{"player": map[string]any{"active": true}}))

	full, err := e.State(context.Background(), "")
	require.NoError(t, err)
	assert.JSONEq(t, `{"player":{"active":true}}`, string(full))

	field, err := e.State(context.Background(), "player")
	require.NoError(t, err)
	assert.JSONEq(t, `{"active":true}`, string(field))

	missing, err := e.State(context.Background(), "nope")
	require.NoError(t, err)
	assert.Equal(t, "null", string(missing))

	e.SetState("player", map[string]any{"active": false})
	field, err = e.State(context.Background(), "player")
	require.NoError(t, err)
	assert.JSONEq(t, `{"active":false}`, string(field))
}

func TestScriptEngine_Closed(t *testing.T) {
	e := NewScriptEngine(nil)
	require.NoError(t, e.Close())
	assert.True(t, e.Closed())

	require.Error(t, e.Dispatch(context.Background(), runtime.Action{Type: "A"}))
	_, err := e.State(context.Background(), "")
	require.Error(t, err)
}

func TestFactory_ReportsEngine(t *testing.T) {
	var engine *ScriptEngine
	factory := Factory(&engine)

	created, err := factory(nil)
	require.NoError(t, err)
	require.NotNil(t, engine)
	assert.Same(t, created, runtime.Engine(engine))
}

func TestFailingFactory(t *testing.T) {
	cause := errors.New("nope")
	_, err := FailingFactory(cause)(nil)
	assert.ErrorIs(t, err, cause)
}

func TestRecordingListener(t *testing.T) {
	r := NewRecordingListener()
	r.Notify(json.RawMessage(`{"a":1}`))
	r.Notify(json.RawMessage(`{"b":2}`))

	assert.Equal(t, 2, r.Count())
	assert.Equal(t, []string{`{"a":1}`, `{"b":2}`}, r.Payloads())

	r.Reset()
	assert.Equal(t, 0, r.Count())
}

func TestPanicListener(t *testing.T) {
	assert.PanicsWithValue(t, "boom", func() {
		(&PanicListener{Message: "boom"}).Notify(nil)
	})
	assert.PanicsWithValue(t, "listener failure", func() {
		(&PanicListener{}).Notify(nil)
	})
}
