package bridge

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFunc_DistinctIdentities(t *testing.T) {
	fn := func(json.RawMessage) {}

	l1 := Func(fn)
	l2 := Func(fn)
	assert.NotEqual(t, l1, l2, "each Func call yields a distinct identity")
}

func TestRegistry_AddDeduplicates(t *testing.T) {
	r := newRegistry()
	l := Func(func(json.RawMessage) {})

	assert.True(t, r.add("NewState", l))
	assert.False(t, r.add("NewState", l), "same identity twice is a no-op")
	assert.Equal(t, 1, r.count("NewState"))

	// Same listener under a different event is a separate registration.
	assert.True(t, r.add("NewModel", l))
	assert.Equal(t, 1, r.count("NewModel"))
}

func TestRegistry_RemovePreservesOrder(t *testing.T) {
	r := newRegistry()
	l1 := Func(func(json.RawMessage) {})
	l2 := Func(func(json.RawMessage) {})
	l3 := Func(func(json.RawMessage) {})

	r.add("NewState", l1)
	r.add("NewState", l2)
	r.add("NewState", l3)

	assert.True(t, r.remove("NewState", l2))

	seq := r.snapshot("NewState")
	require.Len(t, seq, 2)
	assert.Same(t, l1, seq[0])
	assert.Same(t, l3, seq[1])
}

func TestRegistry_RemoveUnknown(t *testing.T) {
	r := newRegistry()
	l := Func(func(json.RawMessage) {})

	assert.False(t, r.remove("NoSuchEvent", l))

	r.add("NewState", Func(func(json.RawMessage) {}))
	assert.False(t, r.remove("NewState", l), "unregistered listener is a no-op")
	assert.Equal(t, 1, r.count("NewState"))
}

func TestRegistry_RemoveLastDeletesSequence(t *testing.T) {
	r := newRegistry()
	l := Func(func(json.RawMessage) {})

	r.add("NewState", l)
	require.True(t, r.remove("NewState", l))

	assert.Equal(t, 0, r.count("NewState"))
	assert.Nil(t, r.snapshot("NewState"))
	_, exists := r.listeners["NewState"]
	assert.False(t, exists, "empty sequence is dropped from the map")
}

func TestRegistry_SnapshotIsStable(t *testing.T) {
	r := newRegistry()
	l1 := Func(func(json.RawMessage) {})
	l2 := Func(func(json.RawMessage) {})
	r.add("NewState", l1)
	r.add("NewState", l2)

	snap := r.snapshot("NewState")
	r.remove("NewState", l1)
	r.remove("NewState", l2)

	// Mutations after the snapshot do not affect it.
	require.Len(t, snap, 2)
	assert.Same(t, l1, snap[0])
	assert.Same(t, l2, snap[1])
}

func TestRegistry_SnapshotUnknownEvent(t *testing.T) {
	r := newRegistry()
	assert.Nil(t, r.snapshot("NoSuchEvent"))
}
