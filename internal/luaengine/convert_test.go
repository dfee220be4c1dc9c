package luaengine

import (
	"testing"

	"github.com/Shopify/go-lua"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// evalLua runs an expression and returns its converted result.
func evalLua(t *testing.T, expr string) any {
	t.Helper()
	l := lua.NewState()
	lua.OpenLibraries(l)
	require.NoError(t, lua.DoString(l, "result = "+expr))
	l.Global("result")
	defer l.Pop(1)
	return luaToGo(l, -1)
}

func TestLuaToGo_Scalars(t *testing.T) {
	assert.Equal(t, "hello", evalLua(t, `"hello"`))
	assert.Equal(t, 42, evalLua(t, `42`))
	assert.Equal(t, 2.5, evalLua(t, `2.5`))
	assert.Equal(t, true, evalLua(t, `true`))
	assert.Equal(t, false, evalLua(t, `false`))
	assert.Nil(t, evalLua(t, `nil`))
}

func TestLuaToGo_Array(t *testing.T) {
	got := evalLua(t, `{1, 2, 3}`)
	assert.Equal(t, []any{1, 2, 3}, got)
}

func TestLuaToGo_Map(t *testing.T) {
	got := evalLua(t, `{name = "core", ready = true}`)
	assert.Equal(t, map[string]any{"name": "core", "ready": true}, got)
}

func TestLuaToGo_Nested(t *testing.T) {
	got := evalLua(t, `{items = {{id = 1}, {id = 2}}, meta = {count = 2}}`)
	assert.Equal(t, map[string]any{
		"items": []any{
			map[string]any{"id": 1},
			map[string]any{"id": 2},
		},
		"meta": map[string]any{"count": 2},
	}, got)
}

func TestLuaToGo_EmptyTableIsMap(t *testing.T) {
	// An empty table has no 1..n keys, so it converts to an empty map.
	assert.Equal(t, map[string]any{}, evalLua(t, `{}`))
}

func TestLuaToGo_SparseTableIsMap(t *testing.T) {
	// Holes break the contiguous 1..n contract; non-string keys are dropped.
	got := evalLua(t, `{[1] = "a", [3] = "c"}`)
	assert.Equal(t, map[string]any{}, got)
}

func TestLuaToGo_MixedKeysIsMap(t *testing.T) {
	got := evalLua(t, `{[1] = "a", name = "x"}`)
	assert.Equal(t, map[string]any{"name": "x"}, got)
}

func TestPushGo_RoundTrip(t *testing.T) {
	l := lua.NewState()
	lua.OpenLibraries(l)

	input := map[string]any{
		"name":  "core",
		"count": 3,
		"ratio": 0.5,
		"on":    true,
		"tags":  []any{"a", "b"},
		"inner": map[string]any{"deep": 1},
	}

	pushGo(l, input)
	got := luaToGo(l, -1)
	l.Pop(1)

	assert.Equal(t, input, got)
}

func TestPushGo_Nil(t *testing.T) {
	l := lua.NewState()
	pushGo(l, nil)
	assert.True(t, l.IsNoneOrNil(-1))
	l.Pop(1)
}

func TestNormalizeNumber(t *testing.T) {
	assert.Equal(t, 0, normalizeNumber(0))
	assert.Equal(t, 7, normalizeNumber(7.0))
	assert.Equal(t, -3, normalizeNumber(-3.0))
	assert.Equal(t, 1.5, normalizeNumber(1.5))

	// Beyond 2^53 integer precision is gone; keep the float.
	huge := float64(1 << 60)
	assert.Equal(t, huge, normalizeNumber(huge))
}
