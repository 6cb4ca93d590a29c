package engine

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/tilego/array"
	"github.com/hupe1980/tilego/fragment"
)

// AttrBuffer is one attribute's caller-supplied output space. Capacity is
// the slice length; the copier never writes past it. Var-sized attributes
// use both slices, fixed ones only Values.
type AttrBuffer struct {
	Values  []byte
	Offsets []uint64
}

// CopyRequest names the buffers one Copy call fills. Coords, when non-nil,
// receives the result's coordinate tuples (sparse reads only).
type CopyRequest[T array.Coord] struct {
	Attrs  map[string]AttrBuffer
	Coords []T
}

// AttrResult reports one attribute's outcome for one Copy call.
type AttrResult struct {
	// BytesWritten counts value bytes written in this call.
	BytesWritten int
	// OffsetsWritten counts offset entries written in this call (var-sized
	// attributes only).
	OffsetsWritten int
	// Overflow reports that the buffers filled up before the attribute's
	// remaining ranges were drained; a later Copy resumes them.
	Overflow bool
}

// CoordsKey indexes the coordinate pseudo-attribute in Copy results.
const CoordsKey = array.CoordsName

// Copy drains the execution's cell ranges into the request's buffers, one
// worker per attribute. Buffers are filled from their start on every call;
// cursors persist across calls, so a retry after overflow continues with
// the first uncopied cell.
func (ex *Execution[T]) Copy(ctx context.Context, req CopyRequest[T]) (map[string]AttrResult, error) {
	e := ex.eng

	for name := range req.Attrs {
		if _, ok := e.schema.Attribute(name); !ok {
			return nil, fmt.Errorf("engine: unknown attribute %q", name)
		}
	}
	if req.Coords != nil && e.schema.Dense() {
		return nil, fmt.Errorf("engine: coordinate buffers are a sparse-read feature")
	}

	results := make(map[string]AttrResult, len(req.Attrs)+1)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxConc)

	for name, buf := range req.Attrs {
		attr, _ := e.schema.Attribute(name)
		cur := ex.cursor(name)
		g.Go(func() error {
			var (
				res AttrResult
				err error
			)
			if attr.Var() {
				res, err = ex.copyVar(gctx, attr, buf, cur)
			} else {
				res, err = ex.copyFixed(gctx, attr, buf, cur)
			}
			if err != nil {
				return err
			}
			ex.observe(name, res)
			mu.Lock()
			results[name] = res
			mu.Unlock()
			return nil
		})
	}

	if req.Coords != nil {
		cur := ex.cursor(CoordsKey)
		g.Go(func() error {
			res := ex.copyCoords(req.Coords, cur)
			ex.observe(CoordsKey, res)
			mu.Lock()
			results[CoordsKey] = res
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (ex *Execution[T]) cursor(name string) *cursor {
	c, ok := ex.cursors[name]
	if !ok {
		c = &cursor{}
		ex.cursors[name] = c
	}
	return c
}

func (ex *Execution[T]) observe(name string, res AttrResult) {
	ex.eng.obs.BytesCopied(name, res.BytesWritten+res.OffsetsWritten*8)
	if res.Overflow {
		ex.eng.obs.OverflowDetected(name)
	}
}

// copyFixed block-copies whole cells, or repeats the fill cell for
// unwritten ranges. It stops at the last whole cell that fits.
func (ex *Execution[T]) copyFixed(ctx context.Context, attr array.Attribute, buf AttrBuffer, cur *cursor) (AttrResult, error) {
	var res AttrResult
	cellSize := uint64(attr.CellSize())
	fill := attr.FillCell()
	tiles := make(map[TileRef]fragment.Tile)

	for cur.rangeIdx < len(ex.ranges) {
		r := ex.ranges[cur.rangeIdx]
		remaining := r.Cells() - cur.cellOff
		space := (uint64(len(buf.Values)) - uint64(res.BytesWritten)) / cellSize
		take := min(remaining, space)

		if take > 0 {
			dst := buf.Values[res.BytesWritten:]
			if r.Tile == TileNone {
				for i := uint64(0); i < take; i++ {
					copy(dst[i*cellSize:], fill)
				}
			} else {
				tile, err := ex.attrTile(ctx, tiles, r.Tile, attr.Name)
				if err != nil {
					return res, err
				}
				from := (r.Start + cur.cellOff) * cellSize
				copy(dst, tile.Values[from:from+take*cellSize])
			}
			res.BytesWritten += int(take * cellSize)
			cur.cellOff += take
		}

		if cur.cellOff < r.Cells() {
			res.Overflow = true
			return res, nil
		}
		cur.rangeIdx++
		cur.cellOff = 0
	}
	return res, nil
}

// copyVar copies cells one at a time: an offset entry rebased to the output
// values space, then the cell payload. A cell is copied whole or not at
// all.
func (ex *Execution[T]) copyVar(ctx context.Context, attr array.Attribute, buf AttrBuffer, cur *cursor) (AttrResult, error) {
	var res AttrResult
	fill := attr.FillCell()
	tiles := make(map[TileRef]fragment.Tile)

	for cur.rangeIdx < len(ex.ranges) {
		r := ex.ranges[cur.rangeIdx]

		var tile fragment.Tile
		if r.Tile != TileNone {
			var err error
			tile, err = ex.attrTile(ctx, tiles, r.Tile, attr.Name)
			if err != nil {
				return res, err
			}
		}

		for ; cur.cellOff < r.Cells(); cur.cellOff++ {
			payload := fill
			if r.Tile != TileNone {
				lo, hi := tile.CellBounds(int(r.Start + cur.cellOff))
				payload = tile.Values[lo:hi]
			}
			if res.OffsetsWritten == len(buf.Offsets) ||
				res.BytesWritten+len(payload) > len(buf.Values) {
				res.Overflow = true
				return res, nil
			}
			buf.Offsets[res.OffsetsWritten] = uint64(res.BytesWritten)
			res.OffsetsWritten++
			copy(buf.Values[res.BytesWritten:], payload)
			res.BytesWritten += len(payload)
		}
		cur.rangeIdx++
		cur.cellOff = 0
	}
	return res, nil
}

// copyCoords writes coordinate tuples in result order. Sparse ranges always
// have a source tile, so there is no fill case.
func (ex *Execution[T]) copyCoords(buf []T, cur *cursor) AttrResult {
	var res AttrResult
	dims := uint64(ex.eng.schema.DimNum())
	elSize := array.DatatypeOf[T]().Size()
	written := uint64(0)

	for cur.rangeIdx < len(ex.ranges) {
		r := ex.ranges[cur.rangeIdx]
		remaining := r.Cells() - cur.cellOff
		space := (uint64(len(buf)) - written) / dims
		take := min(remaining, space)

		if take > 0 {
			rec := ex.tiles.Get(r.Tile)
			from := (r.Start + cur.cellOff) * dims
			copy(buf[written:], rec.Coords[from:from+take*dims])
			written += take * dims
			cur.cellOff += take
		}

		if cur.cellOff < r.Cells() {
			res.Overflow = true
			break
		}
		cur.rangeIdx++
		cur.cellOff = 0
	}
	res.BytesWritten = int(written) * elSize
	return res
}

// attrTile materializes one attribute tile, memoized for the duration of a
// single attribute's copy.
func (ex *Execution[T]) attrTile(ctx context.Context, cache map[TileRef]fragment.Tile, ref TileRef, attr string) (fragment.Tile, error) {
	if t, ok := cache[ref]; ok {
		return t, nil
	}
	rec := ex.tiles.Get(ref)
	t, err := ex.eng.frags[rec.Frag].Attr(ctx, rec.TileIdx, attr)
	if err != nil {
		return fragment.Tile{}, err
	}
	cache[ref] = t
	return t, nil
}
