package array

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRectOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Rect[int64]
		want bool
	}{
		{"identical", NewRect[int64](0, 9, 0, 9), NewRect[int64](0, 9, 0, 9), true},
		{"corner touch", NewRect[int64](0, 4, 0, 4), NewRect[int64](4, 9, 4, 9), true},
		{"disjoint one dim", NewRect[int64](0, 4, 0, 9), NewRect[int64](5, 9, 0, 9), false},
		{"contained", NewRect[int64](0, 9, 0, 9), NewRect[int64](2, 4, 2, 4), true},
		{"dim mismatch", NewRect[int64](0, 9), NewRect[int64](0, 9, 0, 9), false},
		{"degenerate never overlaps", NewRect[int64](5, 2, 0, 9), NewRect[int64](0, 9, 0, 9), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b))
			assert.Equal(t, tt.want, tt.b.Overlaps(tt.a))
		})
	}
}

func TestRectContains(t *testing.T) {
	outer := NewRect[int64](0, 9, 0, 9)

	assert.True(t, outer.Contains(NewRect[int64](2, 4, 2, 4)))
	assert.True(t, outer.Contains(outer))
	assert.False(t, outer.Contains(NewRect[int64](2, 4, 8, 12)))
	assert.False(t, NewRect[int64](2, 4, 2, 4).Contains(outer))
}

func TestRectContainsPoint(t *testing.T) {
	r := NewRect[float64](0.5, 2.5, -1, 1)

	assert.True(t, r.ContainsPoint([]float64{0.5, 0}))
	assert.True(t, r.ContainsPoint([]float64{2.5, 1}))
	assert.False(t, r.ContainsPoint([]float64{2.6, 0}))
	assert.False(t, r.ContainsPoint([]float64{1}))
}

func TestRectIntersect(t *testing.T) {
	a := NewRect[int64](0, 9, 0, 9)
	b := NewRect[int64](5, 15, 3, 4)

	got, ok := a.Intersect(b)
	require.True(t, ok)
	assert.Equal(t, NewRect[int64](5, 9, 3, 4), got)

	_, ok = a.Intersect(NewRect[int64](10, 20, 0, 9))
	assert.False(t, ok)
}
