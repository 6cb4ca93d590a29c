package fragment

import (
	"context"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/tilego/array"
)

// Tile is one materialized attribute tile: the raw cell values, plus a
// per-cell byte-offset table for variable-sized attributes. Offsets[i] is
// the start of cell i within Values; the cell ends where the next cell
// starts, or at len(Values) for the last one.
type Tile struct {
	Values  []byte
	Offsets []uint64
}

// Var reports whether the tile carries variable-sized cells.
func (t Tile) Var() bool { return t.Offsets != nil }

// CellBounds returns the byte span [start, end) of cell i in a var-sized
// tile.
func (t Tile) CellBounds(i int) (start, end uint64) {
	start = t.Offsets[i]
	if i+1 < len(t.Offsets) {
		return start, t.Offsets[i+1]
	}
	return start, uint64(len(t.Values))
}

// RangeIterator yields ascending, non-overlapping, inclusive intervals of
// written cell positions within one dense tile.
type RangeIterator interface {
	Next() (start, end uint64, ok bool)
}

// Fragment is one immutable write of array cells, read-only and safe for
// concurrent use.
//
// Sparse fragments expose their cells through per-tile coordinate buffers
// (Coords) and spatial bounds (MBR). Dense fragments have no coordinate
// storage; they expose which output tiles they touch (DenseTile) and which
// cell positions within a tile they wrote (DenseRanges). Attr serves both.
type Fragment[T array.Coord] interface {
	// Index is the fragment's position in write order; higher is more
	// recent.
	Index() int

	// Dense reports whether the fragment was written through the dense
	// path.
	Dense() bool

	// TileCount returns the number of tiles in the fragment.
	TileCount() int

	// CellCount returns the number of cells in a tile. For dense tiles
	// this is the full tile size, written or not.
	CellCount(tile int) int

	// MBR returns the spatial bounds of a tile's cells.
	MBR(tile int) array.Rect[T]

	// Coords returns the interleaved coordinate tuples of a sparse tile,
	// dimNum values per cell.
	Coords(ctx context.Context, tile int) ([]T, error)

	// Attr returns the materialized tile of one attribute.
	Attr(ctx context.Context, tile int, name string) (Tile, error)

	// DenseTile maps global tile coordinates to the fragment's local tile
	// index, reporting whether the fragment touches that tile.
	DenseTile(tc []uint64) (int, bool)

	// DenseRanges iterates the written cell positions of a dense tile.
	DenseRanges(ctx context.Context, tile int) (RangeIterator, error)
}

// errUnknownAttribute is shared by both implementations.
func errUnknownAttribute(name string) error {
	return fmt.Errorf("fragment: unknown attribute %q", name)
}

// bitmapRanges coalesces a roaring iterator's positions into maximal runs.
type bitmapRanges struct {
	it      roaring64.IntIterable64
	pending uint64
	primed  bool
}

func newBitmapRanges(bm *roaring64.Bitmap) *bitmapRanges {
	r := &bitmapRanges{it: bm.Iterator()}
	if r.it.HasNext() {
		r.pending = r.it.Next()
		r.primed = true
	}
	return r
}

func (r *bitmapRanges) Next() (start, end uint64, ok bool) {
	if !r.primed {
		return 0, 0, false
	}
	start, end = r.pending, r.pending
	r.primed = false
	for r.it.HasNext() {
		p := r.it.Next()
		if p == end+1 {
			end = p
			continue
		}
		r.pending, r.primed = p, true
		break
	}
	return start, end, true
}
