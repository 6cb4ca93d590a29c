package tilego

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tilego/array"
	"github.com/hupe1980/tilego/fragment"
)

func int32Cell(v int32) []byte {
	return binary.LittleEndian.AppendUint32(nil, uint32(v))
}

func int32sOf(t *testing.T, b []byte) []int32 {
	t.Helper()
	require.Zero(t, len(b)%4)
	out := make([]int32, len(b)/4)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

func dense1D(t *testing.T) *array.Schema[int64] {
	t.Helper()
	s, err := array.NewSchema(true,
		[]array.Dimension[int64]{{Name: "d", Domain: array.Range[int64]{Lo: 0, Hi: 9}, Extent: 5}},
		[]array.Attribute{array.NewAttribute("v", array.Int32)},
	)
	require.NoError(t, err)
	return s
}

func sparse2D(t *testing.T) *array.Schema[int64] {
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
	)
	require.NoError(t, err)
	return s
}

func denseFragment(t *testing.T, s *array.Schema[int64], index int, lo, hi int64, v int32) fragment.Fragment[int64] {
	t.Helper()
	b := fragment.NewBuilder(s, index)
	for p := lo; p <= hi; p++ {
		require.NoError(t, b.WriteCell([]int64{p}, map[string][]byte{"v": int32Cell(v)}))
	}
	f, err := b.Build()
	require.NoError(t, err)
	return f
}

func sparseFragment(t *testing.T, s *array.Schema[int64], index int, coords [2]int64, v int32, str string) fragment.Fragment[int64] {
	t.Helper()
	b := fragment.NewBuilder(s, index)
	require.NoError(t, b.Add([]int64{coords[0], coords[1]}, map[string][]byte{"v": int32Cell(v), "s": []byte(str)}))
	f, err := b.Build()
	require.NoError(t, err)
	return f
}

func TestQueryDenseRecencyMerge(t *testing.T) {
	s := dense1D(t)
	q := NewQuery(s, []fragment.Fragment[int64]{
		denseFragment(t, s, 1, 0, 9, 1),
		denseFragment(t, s, 2, 3, 5, 2),
	})

	buf := make([]byte, 40)
	require.NoError(t, q.SetBuffer("v", buf))
	require.NoError(t, q.Submit(context.Background()))

	assert.Equal(t, StatusCompleted, q.Status())
	assert.False(t, q.Overflow("v"))
	assert.Equal(t, []int32{1, 1, 1, 2, 2, 2, 1, 1, 1, 1}, int32sOf(t, buf[:q.BytesWritten("v")]))
}

func TestQueryResumesAfterOverflow(t *testing.T) {
	s := dense1D(t)
	q := NewQuery(s, []fragment.Fragment[int64]{
		denseFragment(t, s, 1, 0, 9, 1),
		denseFragment(t, s, 2, 3, 5, 2),
	})

	buf := make([]byte, 12) // three cells per round
	require.NoError(t, q.SetBuffer("v", buf))

	var got []int32
	rounds := 0
	for {
		require.NoError(t, q.Submit(context.Background()))
		got = append(got, int32sOf(t, buf[:q.BytesWritten("v")])...)
		rounds++
		if q.Status() == StatusCompleted {
			break
		}
		require.Equal(t, StatusIncomplete, q.Status())
		require.True(t, q.Overflow("v"))
	}

	assert.Equal(t, 4, rounds)
	assert.False(t, q.Overflow("v"))
	assert.Equal(t, []int32{1, 1, 1, 2, 2, 2, 1, 1, 1, 1}, got)
}

func TestQuerySparseDedupAndCoords(t *testing.T) {
	s := sparse2D(t)
	q := NewQuery(s, []fragment.Fragment[int64]{
		sparseFragment(t, s, 1, [2]int64{2, 2}, 10, "old"),
		sparseFragment(t, s, 2, [2]int64{2, 2}, 20, "new"),
	})

	values := make([]byte, 16)
	offsets := make([]uint64, 4)
	strs := make([]byte, 16)
	coords := make([]int64, 8)
	require.NoError(t, q.SetBuffer("v", values))
	require.NoError(t, q.SetBufferVar("s", offsets, strs))
	require.NoError(t, q.SetCoordsBuffer(coords))

	require.NoError(t, q.Submit(context.Background()))
	require.Equal(t, StatusCompleted, q.Status())

	assert.Equal(t, []int32{20}, int32sOf(t, values[:q.BytesWritten("v")]))
	assert.Equal(t, 1, q.OffsetsWritten("s"))
	assert.Equal(t, []byte("new"), strs[:q.BytesWritten("s")])
	assert.Equal(t, uint64(0), offsets[0])
	assert.Equal(t, 16, q.BytesWritten(CoordsName))
	assert.Equal(t, []int64{2, 2}, coords[:2])
}

func TestQuerySubarrayFilters(t *testing.T) {
	s := sparse2D(t)
	q := NewQuery(s, []fragment.Fragment[int64]{
		sparseFragment(t, s, 1, [2]int64{1, 1}, 7, "in"),
		sparseFragment(t, s, 2, [2]int64{8, 8}, 9, "out"),
	})
	require.NoError(t, q.SetSubarray(array.NewRect[int64](0, 4, 0, 4)))

	values := make([]byte, 16)
	require.NoError(t, q.SetBuffer("v", values))
	require.NoError(t, q.Submit(context.Background()))

	require.Equal(t, StatusCompleted, q.Status())
	assert.Equal(t, []int32{7}, int32sOf(t, values[:q.BytesWritten("v")]))
}

func TestQueryBufferValidation(t *testing.T) {
	s := sparse2D(t)
	q := NewQuery(s, nil)

	var unknown *UnknownAttributeError
	require.ErrorAs(t, q.SetBuffer("nope", make([]byte, 4)), &unknown)
	assert.Equal(t, "nope", unknown.Name)

	var mismatch *BufferMismatchError
	require.ErrorAs(t, q.SetBuffer("s", make([]byte, 4)), &mismatch)
	require.ErrorAs(t, q.SetBufferVar("v", make([]uint64, 1), make([]byte, 4)), &mismatch)

	require.ErrorIs(t, q.Submit(context.Background()), ErrNoBuffers)

	var bad *array.ErrInvalidSubarray
	require.ErrorAs(t, q.SetSubarray(array.NewRect[int64](4, 0, 0, 4)), &bad)
}

func TestQueryCoordsRejectedOnDense(t *testing.T) {
	s := dense1D(t)
	q := NewQuery(s, nil)

	var mismatch *BufferMismatchError
	require.ErrorAs(t, q.SetCoordsBuffer(make([]int64, 4)), &mismatch)
}

func TestQuerySubarrayLockedAfterSubmit(t *testing.T) {
	s := dense1D(t)
	q := NewQuery(s, []fragment.Fragment[int64]{denseFragment(t, s, 0, 0, 9, 1)})

	require.NoError(t, q.SetBuffer("v", make([]byte, 40)))
	require.NoError(t, q.Submit(context.Background()))

	require.ErrorIs(t, q.SetSubarray(array.NewRect[int64](0, 4)), ErrQueryInProgress)
}

func TestQueryFailureIsSticky(t *testing.T) {
	s := dense1D(t)
	q := NewQuery(s, nil, WithLayout(array.Layout(99)))

	require.NoError(t, q.SetBuffer("v", make([]byte, 40)))

	var bad *array.ErrUnsupportedLayout
	require.ErrorAs(t, q.Submit(context.Background()), &bad)
	require.Equal(t, StatusFailed, q.Status())

	require.ErrorIs(t, q.Submit(context.Background()), ErrQueryFailed)
}

func TestQueryMetrics(t *testing.T) {
	s := dense1D(t)
	mc := NewBasicMetricsCollector()
	q := NewQuery(s, []fragment.Fragment[int64]{
		denseFragment(t, s, 1, 0, 9, 1),
	}, WithMetricsCollector(mc))

	require.NoError(t, q.SetBuffer("v", make([]byte, 12)))
	require.NoError(t, q.Submit(context.Background()))
	require.Equal(t, StatusIncomplete, q.Status())

	stats := mc.GetStats()
	assert.Equal(t, int64(1), stats.Submits)
	assert.Zero(t, stats.SubmitErrors)
	assert.Positive(t, stats.RangesEmitted)
	assert.Equal(t, int64(12), stats.BytesCopied)
	assert.Equal(t, int64(1), stats.Overflows)
}
