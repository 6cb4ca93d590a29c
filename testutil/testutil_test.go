package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tilego/array"
)

func TestUniqueCoords(t *testing.T) {
	rng := NewRNG(4711)
	domain := array.NewRect[int64](0, 9, 0, 9)

	coords := rng.UniqueCoords(50, domain)

	require.Len(t, coords, 50)
	seen := make(map[string]struct{})
	for _, p := range coords {
		require.Len(t, p, 2)
		assert.GreaterOrEqual(t, p[0], int64(0))
		assert.LessOrEqual(t, p[0], int64(9))
		k := CoordKey(p)
		_, dup := seen[k]
		assert.False(t, dup)
		seen[k] = struct{}{}
	}
}

func TestSubarrayStaysInDomain(t *testing.T) {
	rng := NewRNG(4711)
	domain := array.NewRect[int64](-5, 20, 3, 8)

	for range 100 {
		sub := rng.Subarray(domain)
		require.Len(t, sub, 2)
		for d, rg := range sub {
			assert.LessOrEqual(t, rg.Lo, rg.Hi)
			assert.GreaterOrEqual(t, rg.Lo, domain[d].Lo)
			assert.LessOrEqual(t, rg.Hi, domain[d].Hi)
		}
	}
}

func TestRNGDeterminism(t *testing.T) {
	a := NewRNG(99)
	b := NewRNG(99)

	assert.Equal(t, a.Uint64(), b.Uint64())
	assert.Equal(t, a.Int64InRange(0, 100), b.Int64InRange(0, 100))

	a.Reset()
	c := NewRNG(99)
	assert.Equal(t, c.Uint64(), a.Uint64())
}

func TestZipfSkewsLow(t *testing.T) {
	rng := NewRNG(4711)

	counts := make([]int, 10)
	for range 1000 {
		counts[rng.Zipf(10, 1.5)]++
	}

	assert.Greater(t, counts[0], counts[9])
	assert.Greater(t, counts[0], 300)
}

func TestReferenceMergeLatestWins(t *testing.T) {
	k := CoordKey([]int64{2, 2})
	got := ReferenceMerge([]map[string]int32{
		{k: 10, CoordKey([]int64{0, 0}): 1},
		{k: 20},
	})

	assert.Equal(t, int32(20), got[k])
	assert.Equal(t, int32(1), got[CoordKey([]int64{0, 0})])
	assert.Len(t, got, 2)
}
