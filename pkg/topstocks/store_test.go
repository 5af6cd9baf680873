package topstocks

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_LazyAllocation(t *testing.T) {
	s := NewStore(100, false)
	assert.Equal(t, 0, s.Len())

	_, ok := s.Lookup(5)
	assert.False(t, ok, "Lookup must not allocate")
	assert.Equal(t, 0, s.Len())

	ref := s.GetOrCreate(5)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, uint64(5), s.At(ref).ID)
	assert.False(t, s.At(ref).Ranked())

	again := s.GetOrCreate(5)
	assert.Equal(t, ref, again)
	assert.Equal(t, 1, s.Len())
}

func TestStore_GrowBeyondMaxID(t *testing.T) {
	s := NewStore(10, false)

	ids := []uint64{3, 11, 500, 70000}
	refs := make(map[uint64]Ref)
	for _, id := range ids {
		refs[id] = s.GetOrCreate(id)
	}

	for _, id := range ids {
		ref, ok := s.Lookup(id)
		require.True(t, ok, "id %d", id)
		assert.Equal(t, refs[id], ref)
		assert.Equal(t, id, s.At(ref).ID)
	}
	assert.Equal(t, len(ids), s.Len())
}

func TestStore_SparseIDs(t *testing.T) {
	s := NewStore(10, false)

	big := uint64(DenseLimit) * 1000
	ref := s.GetOrCreate(big)
	assert.Equal(t, big, s.At(ref).ID)

	got, ok := s.Lookup(big)
	require.True(t, ok)
	assert.Equal(t, ref, got)

	_, ok = s.Lookup(big + 1)
	assert.False(t, ok)
	assert.LessOrEqual(t, len(s.dense), DenseLimit)
}

func TestStore_Eager(t *testing.T) {
	s := NewStore(9, true)
	assert.Equal(t, 10, s.Len())

	for id := uint64(0); id <= 9; id++ {
		_, ok := s.Lookup(id)
		assert.True(t, ok, "id %d", id)
	}

	seen := 0
	for v := range s.All() {
		assert.Equal(t, float64(0), v.Open)
		seen++
	}
	assert.Equal(t, 10, seen)
}

func TestStore_RefsSurviveGrowth(t *testing.T) {
	s := NewStore(1, false)
	first := s.GetOrCreate(1)
	s.At(first).open(42)

	for id := uint64(2); id < 5000; id++ {
		s.GetOrCreate(id)
	}

	assert.Equal(t, 42.0, s.At(first).Open)
	assert.Equal(t, uint64(1), s.View(first).ID)
}

func TestStore_EagerCapped(t *testing.T) {
	s := NewStore(5, true)
	assert.Equal(t, 6, s.Len())
	_, ok := s.Lookup(5)
	assert.True(t, ok)

	// 预分配不超过 dense 表长度
	s = NewStore(math.MaxUint64, true)
	assert.Equal(t, DenseLimit, s.Len())
	assert.Len(t, s.dense, DenseLimit)
}
