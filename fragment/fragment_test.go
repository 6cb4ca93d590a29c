package fragment

import (
	"context"
	"encoding/binary"
	"math"
	"testing"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tilego/array"
)

func sparseSchema(t *testing.T, capacity uint64) *array.Schema[int64] {
	t.Helper()
	s, err := array.NewSchema(false,
		[]array.Dimension[int64]{
			{Name: "rows", Domain: array.Range[int64]{Lo: 0, Hi: 9}, Extent: 5},
			{Name: "cols", Domain: array.Range[int64]{Lo: 0, Hi: 9}, Extent: 5},
		},
		[]array.Attribute{
			array.NewAttribute("v", array.Int32),
			array.NewVarAttribute("s", array.Bytes),
		},
		array.WithCapacity(capacity),
	)
	require.NoError(t, err)
	return s
}

func denseSchema(t *testing.T) *array.Schema[int64] {
	t.Helper()
	s, err := array.NewSchema(true,
		[]array.Dimension[int64]{
			{Name: "d", Domain: array.Range[int64]{Lo: 0, Hi: 9}, Extent: 5},
		},
		[]array.Attribute{array.NewAttribute("v", array.Int32)},
	)
	require.NoError(t, err)
	return s
}

func int32Cell(v int32) []byte {
	return binary.LittleEndian.AppendUint32(nil, uint32(v))
}

func cells(v int32, s string) map[string][]byte {
	return map[string][]byte{"v": int32Cell(v), "s": []byte(s)}
}

func TestBuilderSparseSortsAndTiles(t *testing.T) {
	ctx := context.Background()
	s := sparseSchema(t, 3)
	b := NewBuilder(s, 0)

	// Insertion order deliberately differs from the global order.
	require.NoError(t, b.Add([]int64{9, 9}, cells(5, "eeeee")))
	require.NoError(t, b.Add([]int64{0, 7}, cells(3, "ccc")))
	require.NoError(t, b.Add([]int64{0, 0}, cells(1, "a")))
	require.NoError(t, b.Add([]int64{7, 0}, cells(4, "dddd")))
	require.NoError(t, b.Add([]int64{1, 1}, cells(2, "bb")))

	f, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, 0, f.Index())
	assert.False(t, f.Dense())
	require.Equal(t, 2, f.TileCount())
	assert.Equal(t, 3, f.CellCount(0))
	assert.Equal(t, 2, f.CellCount(1))

	// Global order over 5x5 tiles: (0,0) (1,1) (0,7) | (7,0) (9,9).
	coords0, err := f.Coords(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 0, 1, 1, 0, 7}, coords0)
	coords1, err := f.Coords(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 0, 9, 9}, coords1)

	assert.Equal(t, array.Rect[int64]{{Lo: 0, Hi: 1}, {Lo: 0, Hi: 7}}, f.MBR(0))
	assert.Equal(t, array.Rect[int64]{{Lo: 7, Hi: 9}, {Lo: 0, Hi: 9}}, f.MBR(1))

	v0, err := f.Attr(ctx, 0, "v")
	require.NoError(t, err)
	assert.False(t, v0.Var())
	want := append(append(int32Cell(1), int32Cell(2)...), int32Cell(3)...)
	assert.Equal(t, want, v0.Values)

	s0, err := f.Attr(ctx, 0, "s")
	require.NoError(t, err)
	require.True(t, s0.Var())
	assert.Equal(t, []uint64{0, 1, 3}, s0.Offsets)
	assert.Equal(t, "abbccc", string(s0.Values))

	lo, hi := s0.CellBounds(1)
	assert.Equal(t, "bb", string(s0.Values[lo:hi]))
	lo, hi = s0.CellBounds(2)
	assert.Equal(t, "ccc", string(s0.Values[lo:hi]))

	_, err = f.Attr(ctx, 0, "missing")
	assert.Error(t, err)
	_, err = f.DenseRanges(ctx, 0)
	assert.Error(t, err)
	_, ok := f.DenseTile([]uint64{0, 0})
	assert.False(t, ok)
}

func TestBuilderDenseWrittenRanges(t *testing.T) {
	ctx := context.Background()
	s := denseSchema(t)
	b := NewBuilder(s, 1)

	for _, p := range []int64{3, 4, 5} {
		require.NoError(t, b.WriteCell([]int64{p}, map[string][]byte{"v": int32Cell(int32(p * 10))}))
	}

	f, err := b.Build()
	require.NoError(t, err)

	assert.True(t, f.Dense())
	require.Equal(t, 2, f.TileCount())
	assert.Equal(t, 5, f.CellCount(0))

	t0, ok := f.DenseTile([]uint64{0})
	require.True(t, ok)
	t1, ok := f.DenseTile([]uint64{1})
	require.True(t, ok)
	assert.Equal(t, array.Rect[int64]{{Lo: 0, Hi: 4}}, f.MBR(t0))
	assert.Equal(t, array.Rect[int64]{{Lo: 5, Hi: 9}}, f.MBR(t1))

	it, err := f.DenseRanges(ctx, t0)
	require.NoError(t, err)
	start, end, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, uint64(3), start)
	assert.Equal(t, uint64(4), end)
	_, _, ok = it.Next()
	assert.False(t, ok)

	it, err = f.DenseRanges(ctx, t1)
	require.NoError(t, err)
	start, end, ok = it.Next()
	require.True(t, ok)
	assert.Equal(t, uint64(0), start)
	assert.Equal(t, uint64(0), end)

	v, err := f.Attr(ctx, t0, "v")
	require.NoError(t, err)
	require.Len(t, v.Values, 5*4)
	assert.Equal(t, int32Cell(30), v.Values[12:16])
	assert.Equal(t, int32Cell(40), v.Values[16:20])

	_, err = f.Coords(ctx, t0)
	assert.Error(t, err)
}

func TestBuilderRejectsBadCells(t *testing.T) {
	s := sparseSchema(t, 3)
	b := NewBuilder(s, 0)

	assert.Error(t, b.Add([]int64{1}, cells(1, "a")), "dimensionality mismatch")
	assert.Error(t, b.Add([]int64{1, 42}, cells(1, "a")), "outside domain")
	assert.Error(t, b.Add([]int64{1, 1}, map[string][]byte{"v": int32Cell(1)}), "missing attribute")
	assert.Error(t, b.Add([]int64{1, 1}, map[string][]byte{"v": {1, 2}, "s": nil}), "short cell")
	assert.Error(t, b.WriteCell([]int64{1, 1}, cells(1, "a")), "dense write on sparse builder")

	db := NewBuilder(denseSchema(t), 0)
	assert.Error(t, db.Add([]int64{1}, map[string][]byte{"v": int32Cell(1)}))
}

func TestBitmapRangesCoalesces(t *testing.T) {
	bm := roaring64.New()
	for _, p := range []uint64{1, 2, 3, 7, 9, 10} {
		bm.Add(p)
	}
	it := newBitmapRanges(bm)

	var got [][2]uint64
	for {
		start, end, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, [2]uint64{start, end})
	}
	assert.Equal(t, [][2]uint64{{1, 3}, {7, 7}, {9, 10}}, got)

	empty := newBitmapRanges(roaring64.New())
	_, _, ok := empty.Next()
	assert.False(t, ok)
}

// NaN compares false against both domain bounds, so it needs its own check;
// letting it through would break the sort comparator's total order.
func TestBuilderRejectsNaNCoordinate(t *testing.T) {
	s, err := array.NewSchema(false,
		[]array.Dimension[float64]{
			{Name: "x", Domain: array.Range[float64]{Lo: 0, Hi: 1}, Extent: 0.5},
		},
		[]array.Attribute{array.NewAttribute("v", array.Int32)},
	)
	require.NoError(t, err)

	b := NewBuilder(s, 0)
	require.NoError(t, b.Add([]float64{0.25}, map[string][]byte{"v": int32Cell(1)}))

	err = b.Add([]float64{math.NaN()}, map[string][]byte{"v": int32Cell(2)})
	assert.ErrorContains(t, err, "NaN coordinate")
}
