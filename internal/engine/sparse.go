package engine

import (
	"context"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/tilego/array"
	"github.com/hupe1980/tilego/internal/pool"
)

// resolveSparse finds every fragment tile whose bounds intersect the
// subarray and materializes its coordinate tile. A tile fully contained in
// the subarray skips per-coordinate filtering later.
func (e *Engine[T]) resolveSparse(ctx context.Context, ex *Execution[T]) error {
	for fi, f := range e.frags {
		if f.Dense() {
			continue
		}
		for t := 0; t < f.TileCount(); t++ {
			mbr := f.MBR(t)
			if !ex.subarray.Overlaps(mbr) {
				continue
			}
			ex.tiles.Append(Tile[T]{
				Frag:      fi,
				FragIndex: f.Index(),
				TileIdx:   t,
				Full:      ex.subarray.Contains(mbr),
			})
		}
	}
	e.obs.TilesResolved(ex.tiles.Len())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxConc)
	for i := 0; i < ex.tiles.Len(); i++ {
		rec := ex.tiles.Get(TileRef(i))
		g.Go(func() error {
			coords, err := e.frags[rec.Frag].Coords(gctx, rec.TileIdx)
			if err != nil {
				return err
			}
			rec.Coords = coords
			return nil
		})
	}
	return g.Wait()
}

// collect produces the cross-fragment coordinate set: every cell of a fully
// contained tile, and the in-rectangle cells of partially overlapping ones.
func (e *Engine[T]) collect(ex *Execution[T]) []Coords {
	dims := e.schema.DimNum()
	var out []Coords
	for i := 0; i < ex.tiles.Len(); i++ {
		rec := ex.tiles.Get(TileRef(i))
		n := len(rec.Coords) / dims
		for p := 0; p < n; p++ {
			if !rec.Full && !ex.subarray.ContainsPoint(rec.Coords[p*dims:(p+1)*dims]) {
				continue
			}
			out = append(out, Coords{Tile: TileRef(i), Pos: uint64(p)})
		}
	}
	return out
}

// sortCoords orders the collected set in the query layout. Equal tuples
// stay adjacent; their precedence is resolved by dedup, not here.
func (e *Engine[T]) sortCoords(ex *Execution[T], cs []Coords) error {
	cmp, err := e.schema.LayoutCmp(ex.layout)
	if err != nil {
		return err
	}
	slices.SortFunc(cs, func(a, b Coords) int {
		return cmp(ex.tuple(a), ex.tuple(b))
	})
	return nil
}

// dedup marks every member of an equal-coordinate run dead except the one
// from the most recent fragment. Slots stay in place so positions remain
// valid. Returns the number of cells dropped.
func (e *Engine[T]) dedup(ex *Execution[T], cs []Coords, sc *pool.ScanContext) int {
	dropped := 0
	for i := 0; i < len(cs); {
		j := i + 1
		for j < len(cs) && array.CmpRowMajor(ex.tuple(cs[i]), ex.tuple(cs[j])) == 0 {
			j++
		}
		if j-i > 1 {
			best := i
			for k := i + 1; k < j; k++ {
				if ex.tiles.Get(cs[k].Tile).FragIndex > ex.tiles.Get(cs[best].Tile).FragIndex {
					best = k
				}
			}
			for k := i; k < j; k++ {
				if k != best {
					sc.MarkDead(uint(k))
					dropped++
				}
			}
		}
		i = j
	}
	return dropped
}

// compact merges surviving adjacent coordinates from the same tile with
// consecutive positions into maximal cell ranges. Concatenating the output
// ranges reproduces the surviving sequence exactly.
func compact(cs []Coords, sc *pool.ScanContext) []CellRange {
	var out []CellRange
	for i, c := range cs {
		if sc.IsDead(uint(i)) {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Tile == c.Tile && c.Pos == out[n-1].End+1 {
			out[n-1].End = c.Pos
			continue
		}
		out = append(out, CellRange{Tile: c.Tile, Start: c.Pos, End: c.Pos})
	}
	return out
}

// tuple returns the coordinate tuple of one collected cell.
func (ex *Execution[T]) tuple(c Coords) []T {
	dims := ex.eng.schema.DimNum()
	rec := ex.tiles.Get(c.Tile)
	return rec.Coords[int(c.Pos)*dims : (int(c.Pos)+1)*dims]
}
