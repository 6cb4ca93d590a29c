package engine

import (
	"context"

	"github.com/hupe1980/tilego/array"
	"github.com/hupe1980/tilego/internal/arena"
	"github.com/hupe1980/tilego/internal/pool"
)

// Execution is the per-read state: the resolved tile arena, the merged
// range list, and per-attribute copy cursors. It is built once by Plan and
// drained by one or more Copy calls; after an overflow, a later Copy with
// larger buffers resumes at the recorded cursor.
type Execution[T array.Coord] struct {
	eng      *Engine[T]
	layout   array.Layout
	subarray array.Rect[T]

	tiles   *arena.Arena[Tile[T]]
	ranges  []CellRange
	cursors map[string]*cursor
}

// cursor records how far one attribute's copy has progressed: the next
// range to consume and how many of its cells were already copied.
type cursor struct {
	rangeIdx int
	cellOff  uint64
}

// Plan validates the request and runs the merge pipeline, producing the
// ordered cell-range list every attribute copy consumes. A nil subarray
// means the whole domain.
func (e *Engine[T]) Plan(ctx context.Context, layout array.Layout, subarray array.Rect[T]) (*Execution[T], error) {
	if subarray == nil {
		subarray = e.schema.Domain()
	}
	if err := e.schema.ValidateSubarray(subarray); err != nil {
		return nil, err
	}
	if _, err := e.schema.LayoutCmp(layout); err != nil {
		return nil, err
	}

	ex := &Execution[T]{
		eng:      e,
		layout:   layout,
		subarray: subarray,
		tiles:    arena.New[Tile[T]](16),
		cursors:  make(map[string]*cursor),
	}

	sc := pool.Get()
	defer pool.Put(sc)

	var err error
	if e.schema.Dense() {
		ex.ranges, err = e.denseMerge(ctx, ex, sc)
	} else {
		ex.ranges, err = e.sparseMerge(ctx, ex, sc)
	}
	if err != nil {
		return nil, err
	}

	e.obs.RangesEmitted(len(ex.ranges))
	e.logger.DebugContext(ctx, "read planned",
		"layout", layout.String(),
		"tiles", ex.tiles.Len(),
		"ranges", len(ex.ranges),
	)
	return ex, nil
}

// sparseMerge runs resolve, collect, sort, dedup and compact.
func (e *Engine[T]) sparseMerge(ctx context.Context, ex *Execution[T], sc *pool.ScanContext) ([]CellRange, error) {
	if err := e.resolveSparse(ctx, ex); err != nil {
		return nil, err
	}
	cs := e.collect(ex)
	e.obs.CoordsCollected(len(cs))

	if err := e.sortCoords(ex, cs); err != nil {
		return nil, err
	}
	dropped := e.dedup(ex, cs, sc)
	e.obs.CoordsDropped(dropped)

	return compact(cs, sc), nil
}

// Ranges returns the merged range list, in output order.
func (ex *Execution[T]) Ranges() []CellRange { return ex.ranges }

// Done reports whether every attribute copied so far has drained the range
// list.
func (ex *Execution[T]) Done() bool {
	for _, c := range ex.cursors {
		if c.rangeIdx < len(ex.ranges) {
			return false
		}
	}
	return true
}
