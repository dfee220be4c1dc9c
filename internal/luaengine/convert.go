package luaengine

import (
	"math"

	"github.com/Shopify/go-lua"
)

// luaToGo converts the Lua value at index into plain Go values suitable for
// JSON marshalling: string, int, float64, bool, []any, map[string]any, nil.
func luaToGo(l *lua.State, index int) any {
	switch l.TypeOf(index) {
	case lua.TypeString:
		value, _ := l.ToString(index)
		return value
	case lua.TypeNumber:
		value, _ := l.ToNumber(index)
		return normalizeNumber(value)
	case lua.TypeBoolean:
		return l.ToBoolean(index)
	case lua.TypeTable:
		return tableToGo(l, index)
	default:
		return nil
	}
}

// tableToGo converts a Lua table into either a []any (when keyed 1..n
// contiguously) or a map[string]any.
func tableToGo(l *lua.State, index int) any {
	if l.TypeOf(index) != lua.TypeTable {
		return nil
	}

	index = l.AbsIndex(index)
	isArray := true
	maxIndex := 0
	count := 0
	l.PushNil()
	for l.Next(index) {
		if isArray {
			if l.TypeOf(-2) != lua.TypeNumber {
				isArray = false
			} else if idx, ok := l.ToInteger(-2); ok && idx > 0 {
				count++
				if idx > maxIndex {
					maxIndex = idx
				}
			} else {
				isArray = false
			}
		}
		l.Pop(1)
	}

	if isArray && count > 0 && maxIndex == count {
		result := make([]any, 0, maxIndex)
		for i := 1; i <= maxIndex; i++ {
			l.RawGetInt(index, i)
			result = append(result, luaToGo(l, -1))
			l.Pop(1)
		}
		return result
	}

	return tableToMap(l, index)
}

// tableToMap converts a Lua table's string-keyed entries into a map.
func tableToMap(l *lua.State, index int) map[string]any {
	output := map[string]any{}
	if l.TypeOf(index) != lua.TypeTable {
		return output
	}

	index = l.AbsIndex(index)
	l.PushNil()
	for l.Next(index) {
		if l.TypeOf(-2) == lua.TypeString {
			key, _ := l.ToString(-2)
			output[key] = luaToGo(l, -1)
		}
		l.Pop(1)
	}
	return output
}

// pushGo pushes a decoded JSON value onto the Lua stack. Objects become
// tables with string keys, arrays become 1-based sequences.
func pushGo(l *lua.State, v any) {
	switch val := v.(type) {
	case nil:
		l.PushNil()
	case bool:
		l.PushBoolean(val)
	case string:
		l.PushString(val)
	case float64:
		l.PushNumber(val)
	case int:
		l.PushInteger(val)
	case []any:
		l.CreateTable(len(val), 0)
		for i, elem := range val {
			pushGo(l, elem)
			l.RawSetInt(-2, i+1)
		}
	case map[string]any:
		l.CreateTable(0, len(val))
		for key, elem := range val {
			pushGo(l, elem)
			l.SetField(-2, key)
		}
	default:
		l.PushNil()
	}
}

// normalizeNumber keeps integral Lua numbers as Go ints so JSON output
// stays free of spurious decimal points.
func normalizeNumber(value float64) any {
	if math.Mod(value, 1) == 0 && math.Abs(value) < 1<<53 {
		return int(value)
	}
	return value
}
