package engine

import (
	"context"
	"slices"

	"github.com/hupe1980/tilego/array"
	"github.com/hupe1980/tilego/internal/pool"
)

// interval is an inclusive run of cell positions within one tile.
type interval struct {
	lo, hi uint64
}

// window is a maximal run of output cells that are consecutive positions
// within one output tile, in the query layout order.
type window struct {
	tc         []uint64
	tilePos    uint64
	start, end uint64
}

// denseMerge walks the subarray in the query layout, grouped into
// per-tile windows, and resolves each window against the fragments'
// written intervals from the most recent fragment down. Cells no fragment
// wrote become fill ranges. The ranges of one window form a contiguous,
// non-overlapping partition of its positions.
func (e *Engine[T]) denseMerge(ctx context.Context, ex *Execution[T], sc *pool.ScanContext) ([]CellRange, error) {
	type tileKey struct {
		frag int
		pos  uint64
	}
	spans := make(map[tileKey][]interval) // written intervals per fragment tile
	refs := make(map[tileKey]TileRef)
	resolved := 0

	var out []CellRange
	emit := make([]CellRange, 0, 8)

	err := e.walkWindows(ex, func(w window) error {
		pending := append(sc.Spans[:0], [2]uint64{w.start, w.end})
		emit = emit[:0]

		for _, fi := range e.byRecency {
			if len(pending) == 0 {
				break
			}
			f := e.frags[fi]
			local, ok := f.DenseTile(w.tc)
			if !ok {
				continue
			}
			key := tileKey{frag: fi, pos: w.tilePos}
			ivs, cached := spans[key]
			if !cached {
				it, err := f.DenseRanges(ctx, local)
				if err != nil {
					return err
				}
				for {
					lo, hi, ok := it.Next()
					if !ok {
						break
					}
					ivs = append(ivs, interval{lo: lo, hi: hi})
				}
				spans[key] = ivs

				refs[key] = ex.tiles.Append(Tile[T]{
					Frag:       fi,
					FragIndex:  f.Index(),
					TileIdx:    local,
					TileCoords: slices.Clone(w.tc),
				})
				resolved++
			}
			ref := refs[key]

			var next [][2]uint64
			for _, p := range pending {
				next = subtractInto(next, p, ivs, ref, &emit)
			}
			pending = append(pending[:0], next...)
		}

		for _, p := range pending {
			emit = append(emit, CellRange{Tile: TileNone, Start: p[0], End: p[1]})
		}
		slices.SortFunc(emit, func(a, b CellRange) int {
			switch {
			case a.Start < b.Start:
				return -1
			case a.Start > b.Start:
				return 1
			default:
				return 0
			}
		})
		out = append(out, emit...)
		sc.Spans = pending[:0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.obs.TilesResolved(resolved)
	return out, nil
}

// subtractInto intersects the pending interval p against the sorted written
// intervals ivs, appending covered pieces to emit (tagged with ref) and
// returning the uncovered remainder appended to rest.
func subtractInto(rest [][2]uint64, p [2]uint64, ivs []interval, ref TileRef, emit *[]CellRange) [][2]uint64 {
	a, b := p[0], p[1]
	// first written interval that can reach a
	i, _ := slices.BinarySearchFunc(ivs, a, func(iv interval, pos uint64) int {
		switch {
		case iv.hi < pos:
			return -1
		case iv.hi > pos:
			return 1
		default:
			return 0
		}
	})
	for ; i < len(ivs) && ivs[i].lo <= b; i++ {
		lo := max(ivs[i].lo, a)
		hi := min(ivs[i].hi, b)
		if lo > a {
			rest = append(rest, [2]uint64{a, lo - 1})
		}
		*emit = append(*emit, CellRange{Tile: ref, Start: lo, End: hi})
		if hi == ^uint64(0) {
			return rest
		}
		a = hi + 1
		if a > b {
			return rest
		}
	}
	rest = append(rest, [2]uint64{a, b})
	return rest
}

// walkWindows enumerates the subarray cells in the query layout and groups
// consecutive cells that land on consecutive positions of the same tile.
func (e *Engine[T]) walkWindows(ex *Execution[T], fn func(w window) error) error {
	s := e.schema
	g := windowGrouper{fn: fn}
	tc := make([]uint64, 0, s.DimNum())

	feed := func(p []T) error {
		tc = s.TileCoords(p, tc[:0])
		return g.feed(tc, s.TilePos(tc), s.CellPosInTile(p))
	}

	if ex.layout == array.GlobalOrder {
		lo := make([]uint64, s.DimNum())
		hi := make([]uint64, s.DimNum())
		for d, dim := range s.Dims() {
			lo[d] = uint64((ex.subarray[d].Lo - dim.Domain.Lo) / dim.Extent)
			hi[d] = uint64((ex.subarray[d].Hi - dim.Domain.Lo) / dim.Extent)
		}
		err := walkGrid(lo, hi, s.TileOrder(), func(t []uint64) error {
			rect, ok := s.TileRect(t).Intersect(ex.subarray)
			if !ok {
				return nil
			}
			return walkRect(rect, s.CellOrder(), feed)
		})
		if err != nil {
			return err
		}
		return g.flush()
	}

	if err := walkRect(ex.subarray, ex.layout, feed); err != nil {
		return err
	}
	return g.flush()
}

type windowGrouper struct {
	fn     func(w window) error
	cur    window
	active bool
}

func (g *windowGrouper) feed(tc []uint64, tilePos, cellPos uint64) error {
	if g.active && tilePos == g.cur.tilePos && cellPos == g.cur.end+1 {
		g.cur.end = cellPos
		return nil
	}
	if err := g.flush(); err != nil {
		return err
	}
	g.cur = window{tc: slices.Clone(tc), tilePos: tilePos, start: cellPos, end: cellPos}
	g.active = true
	return nil
}

func (g *windowGrouper) flush() error {
	if !g.active {
		return nil
	}
	g.active = false
	return g.fn(g.cur)
}

// walkRect visits every coordinate tuple of rect in row- or column-major
// order. The callback must not retain p.
func walkRect[T array.Coord](rect array.Rect[T], l array.Layout, fn func(p []T) error) error {
	p := make([]T, len(rect))
	for d := range rect {
		p[d] = rect[d].Lo
	}
	for {
		if err := fn(p); err != nil {
			return err
		}
		if l == array.ColMajor {
			d := 0
			for d < len(rect) {
				if p[d] < rect[d].Hi {
					p[d]++
					break
				}
				p[d] = rect[d].Lo
				d++
			}
			if d == len(rect) {
				return nil
			}
			continue
		}
		d := len(rect) - 1
		for d >= 0 {
			if p[d] < rect[d].Hi {
				p[d]++
				break
			}
			p[d] = rect[d].Lo
			d--
		}
		if d < 0 {
			return nil
		}
	}
}

// walkGrid visits every tile coordinate in [lo, hi] per dimension, in row-
// or column-major order.
func walkGrid(lo, hi []uint64, l array.Layout, fn func(t []uint64) error) error {
	t := slices.Clone(lo)
	for {
		if err := fn(t); err != nil {
			return err
		}
		if l == array.ColMajor {
			d := 0
			for d < len(t) {
				if t[d] < hi[d] {
					t[d]++
					break
				}
				t[d] = lo[d]
				d++
			}
			if d == len(t) {
				return nil
			}
			continue
		}
		d := len(t) - 1
		for d >= 0 {
			if t[d] < hi[d] {
				t[d]++
				break
			}
			t[d] = lo[d]
			d--
		}
		if d < 0 {
			return nil
		}
	}
}
