package tag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/sigflow/property"
)

func TestQueue_PushKeepsOrder(t *testing.T) {
	var q Queue
	q.Push(New(5, property.Pair{Key: "n", Value: "a"}))
	q.Push(New(1, property.Pair{Key: "n", Value: "b"}))
	q.Push(New(5, property.Pair{Key: "n", Value: "c"}))
	q.Push(New(3, property.Pair{Key: "n", Value: "d"}))

	all := q.Drain()
	require.Len(t, all, 4)

	var names []any
	for _, tg := range all {
		v, _ := tg.Map.Get("n")
		names = append(names, v)
	}
	assert.Equal(t, []any{"b", "d", "a", "c"}, names)
	assert.Equal(t, 0, q.Len())
}

func TestQueue_PopDue(t *testing.T) {
	var q Queue
	for _, idx := range []int64{0, 2, 2, 7} {
		q.Push(New(idx))
	}

	assert.Empty(t, q.PopDue(-1))
	due := q.PopDue(2)
	require.Len(t, due, 3)
	assert.Equal(t, int64(0), due[0].Index)
	assert.Equal(t, int64(2), due[2].Index)

	// exactly once
	assert.Empty(t, q.PopDue(2))
	assert.Empty(t, q.PopDue(6))
	assert.Equal(t, 1, q.Len())

	due = q.PopDue(100)
	require.Len(t, due, 1)
	assert.Equal(t, int64(7), due[0].Index)
	assert.Equal(t, 0, q.Len())
}

func TestMerge_LaterWins(t *testing.T) {
	first := New(3, property.Pair{Key: "shared", Value: "in0"}, property.Pair{Key: "a", Value: 1})
	second := New(3, property.Pair{Key: "shared", Value: "in1"}, property.Pair{Key: "b", Value: 2})

	merged, ok := Merge(first, second)
	require.True(t, ok)

	assert.Equal(t, int64(3), merged.Index)
	assert.Equal(t, []string{"shared", "a", "b"}, merged.Map.Keys())
	v, _ := merged.Map.Get("shared")
	assert.Equal(t, "in1", v)

	_, ok = Merge()
	assert.False(t, ok)
}

func TestTag_CloneAndEqual(t *testing.T) {
	orig := New(2, property.Pair{Key: "k", Value: "v"})
	c := orig.Clone()
	c.Map.Set("k", "changed")

	assert.False(t, orig.Equal(c))
	v, _ := orig.Map.Get("k")
	assert.Equal(t, "v", v)
	assert.Equal(t, "tag@2{k: v}", orig.String())
}

func TestQueue_BeforeDoesNotRemove(t *testing.T) {
	var q Queue
	for _, idx := range []int64{2, 4, 4, 9} {
		q.Push(New(idx))
	}

	got := q.Before(5)
	require.Len(t, got, 3)
	assert.Equal(t, int64(4), got[2].Index)
	assert.Equal(t, 4, q.Len())
	assert.Empty(t, q.Before(2))
}
