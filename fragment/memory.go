package fragment

import (
	"context"
	"fmt"
	"slices"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/tilego/array"
)

// MemFragment is an in-memory Fragment, produced by a Builder. It backs
// transient arrays and tests, and is the unit BlobFragment serialization
// works on.
type MemFragment[T array.Coord] struct {
	schema *array.Schema[T]
	index  int
	dense  bool
	tiles  []memTile[T]
	byPos  map[uint64]int // dense: global tile position -> tiles index
}

type memTile[T array.Coord] struct {
	mbr        array.Rect[T]
	tileCoords []uint64 // dense only
	cellCount  int
	coords     []T               // sparse only, interleaved
	written    *roaring64.Bitmap // dense only
	attrs      map[string]Tile
}

// Index returns the fragment's position in write order.
func (f *MemFragment[T]) Index() int { return f.index }

// Dense reports whether the fragment was written through the dense path.
func (f *MemFragment[T]) Dense() bool { return f.dense }

// TileCount returns the number of tiles in the fragment.
func (f *MemFragment[T]) TileCount() int { return len(f.tiles) }

// CellCount returns the number of cells in a tile.
func (f *MemFragment[T]) CellCount(tile int) int { return f.tiles[tile].cellCount }

// MBR returns the spatial bounds of a tile's cells.
func (f *MemFragment[T]) MBR(tile int) array.Rect[T] { return f.tiles[tile].mbr }

// Coords returns the interleaved coordinate tuples of a sparse tile.
func (f *MemFragment[T]) Coords(_ context.Context, tile int) ([]T, error) {
	if f.dense {
		return nil, fmt.Errorf("fragment: coordinates requested from dense fragment %d", f.index)
	}
	return f.tiles[tile].coords, nil
}

// Attr returns the materialized tile of one attribute.
func (f *MemFragment[T]) Attr(_ context.Context, tile int, name string) (Tile, error) {
	t, ok := f.tiles[tile].attrs[name]
	if !ok {
		return Tile{}, errUnknownAttribute(name)
	}
	return t, nil
}

// DenseTile maps global tile coordinates to the fragment's local tile index.
func (f *MemFragment[T]) DenseTile(tc []uint64) (int, bool) {
	if !f.dense {
		return 0, false
	}
	i, ok := f.byPos[f.schema.TilePos(tc)]
	return i, ok
}

// DenseRanges iterates the written cell positions of a dense tile.
func (f *MemFragment[T]) DenseRanges(_ context.Context, tile int) (RangeIterator, error) {
	if !f.dense {
		return nil, fmt.Errorf("fragment: dense ranges requested from sparse fragment %d", f.index)
	}
	return newBitmapRanges(f.tiles[tile].written), nil
}

// Builder accumulates one fragment's cells and materializes a MemFragment.
// Sparse cells go in through Add, dense cells through WriteCell; a builder
// is one or the other, fixed by the schema. Not safe for concurrent use.
type Builder[T array.Coord] struct {
	schema *array.Schema[T]
	index  int

	rows []sparseRow[T] // sparse

	denseTiles map[uint64]*denseTile // dense, keyed by global tile position
}

type sparseRow[T array.Coord] struct {
	coords []T
	cells  map[string][]byte
}

type denseTile struct {
	tileCoords []uint64
	written    *roaring64.Bitmap
	fixed      map[string][]byte   // full tile buffers
	varCells   map[string][][]byte // one payload per cell position
}

// NewBuilder creates a builder for a fragment with the given write-order
// index.
func NewBuilder[T array.Coord](s *array.Schema[T], index int) *Builder[T] {
	return &Builder[T]{
		schema:     s,
		index:      index,
		denseTiles: make(map[uint64]*denseTile),
	}
}

// Add appends one sparse cell: its coordinate tuple and one value per
// attribute (raw cell bytes; var-sized attributes take the cell payload).
func (b *Builder[T]) Add(coords []T, cells map[string][]byte) error {
	if b.schema.Dense() {
		return fmt.Errorf("fragment: Add on dense fragment builder")
	}
	if err := b.checkCell(coords, cells); err != nil {
		return err
	}
	row := sparseRow[T]{coords: slices.Clone(coords), cells: make(map[string][]byte, len(cells))}
	for name, cell := range cells {
		row.cells[name] = slices.Clone(cell)
	}
	b.rows = append(b.rows, row)
	return nil
}

// WriteCell writes one dense cell at coordinate p. Writing the same cell
// again overwrites it.
func (b *Builder[T]) WriteCell(p []T, cells map[string][]byte) error {
	if !b.schema.Dense() {
		return fmt.Errorf("fragment: WriteCell on sparse fragment builder")
	}
	if err := b.checkCell(p, cells); err != nil {
		return err
	}
	tc := b.schema.TileCoords(p, make([]uint64, 0, len(p)))
	dt, ok := b.denseTiles[b.schema.TilePos(tc)]
	if !ok {
		dt = &denseTile{
			tileCoords: tc,
			written:    roaring64.New(),
			fixed:      make(map[string][]byte),
			varCells:   make(map[string][][]byte),
		}
		b.denseTiles[b.schema.TilePos(tc)] = dt
	}
	pos := b.schema.CellPosInTile(p)
	n := b.schema.CellsPerTile()
	dt.written.Add(pos)
	for _, attr := range b.schema.Attributes() {
		cell := cells[attr.Name]
		if attr.Var() {
			vc := dt.varCells[attr.Name]
			if vc == nil {
				vc = make([][]byte, n)
				dt.varCells[attr.Name] = vc
			}
			vc[pos] = slices.Clone(cell)
			continue
		}
		buf := dt.fixed[attr.Name]
		if buf == nil {
			buf = make([]byte, uint64(attr.CellSize())*n)
			dt.fixed[attr.Name] = buf
		}
		copy(buf[pos*uint64(attr.CellSize()):], cell)
	}
	return nil
}

func (b *Builder[T]) checkCell(p []T, cells map[string][]byte) error {
	if len(p) != b.schema.DimNum() {
		return fmt.Errorf("fragment: coordinate tuple has %d dimensions, schema has %d", len(p), b.schema.DimNum())
	}
	for d, dim := range b.schema.Dims() {
		// NaN compares false against both bounds and would slip through
		if p[d] != p[d] {
			return fmt.Errorf("fragment: NaN coordinate on dimension %q", dim.Name)
		}
		if p[d] < dim.Domain.Lo || p[d] > dim.Domain.Hi {
			return fmt.Errorf("fragment: coordinate outside domain on dimension %q", dim.Name)
		}
	}
	for _, attr := range b.schema.Attributes() {
		cell, ok := cells[attr.Name]
		if !ok {
			return fmt.Errorf("fragment: missing value for attribute %q", attr.Name)
		}
		if !attr.Var() && len(cell) != attr.CellSize() {
			return fmt.Errorf("fragment: attribute %q cell is %d bytes, want %d", attr.Name, len(cell), attr.CellSize())
		}
	}
	return nil
}

// Build materializes the fragment. Sparse cells are sorted into the
// schema's global order and chunked into tiles of the schema capacity;
// dense tiles are ordered by their global tile position.
func (b *Builder[T]) Build() (*MemFragment[T], error) {
	f := &MemFragment[T]{schema: b.schema, index: b.index, dense: b.schema.Dense()}
	if f.dense {
		b.buildDense(f)
	} else {
		b.buildSparse(f)
	}
	return f, nil
}

func (b *Builder[T]) buildSparse(f *MemFragment[T]) {
	s := b.schema
	slices.SortStableFunc(b.rows, func(a, c sparseRow[T]) int {
		return s.CmpGlobal(a.coords, c.coords)
	})
	capacity := int(s.Capacity())
	for lo := 0; lo < len(b.rows); lo += capacity {
		hi := min(lo+capacity, len(b.rows))
		chunk := b.rows[lo:hi]

		t := memTile[T]{
			cellCount: len(chunk),
			mbr:       chunkMBR(s, chunk),
			coords:    make([]T, 0, len(chunk)*s.DimNum()),
			attrs:     make(map[string]Tile, len(s.Attributes())),
		}
		for _, row := range chunk {
			t.coords = append(t.coords, row.coords...)
		}
		for _, attr := range s.Attributes() {
			if attr.Var() {
				tile := Tile{Offsets: make([]uint64, 0, len(chunk))}
				for _, row := range chunk {
					tile.Offsets = append(tile.Offsets, uint64(len(tile.Values)))
					tile.Values = append(tile.Values, row.cells[attr.Name]...)
				}
				t.attrs[attr.Name] = tile
				continue
			}
			values := make([]byte, 0, len(chunk)*attr.CellSize())
			for _, row := range chunk {
				values = append(values, row.cells[attr.Name]...)
			}
			t.attrs[attr.Name] = Tile{Values: values}
		}
		f.tiles = append(f.tiles, t)
	}
}

func chunkMBR[T array.Coord](s *array.Schema[T], chunk []sparseRow[T]) array.Rect[T] {
	mbr := make(array.Rect[T], s.DimNum())
	for d := range mbr {
		mbr[d] = array.Range[T]{Lo: chunk[0].coords[d], Hi: chunk[0].coords[d]}
	}
	for _, row := range chunk[1:] {
		for d, v := range row.coords {
			if v < mbr[d].Lo {
				mbr[d].Lo = v
			}
			if v > mbr[d].Hi {
				mbr[d].Hi = v
			}
		}
	}
	return mbr
}

func (b *Builder[T]) buildDense(f *MemFragment[T]) {
	s := b.schema
	positions := make([]uint64, 0, len(b.denseTiles))
	for pos := range b.denseTiles {
		positions = append(positions, pos)
	}
	slices.Sort(positions)

	n := s.CellsPerTile()
	f.byPos = make(map[uint64]int, len(positions))
	for _, pos := range positions {
		dt := b.denseTiles[pos]
		t := memTile[T]{
			mbr:        s.TileRect(dt.tileCoords),
			tileCoords: dt.tileCoords,
			cellCount:  int(n),
			written:    dt.written,
			attrs:      make(map[string]Tile, len(s.Attributes())),
		}
		for _, attr := range s.Attributes() {
			if attr.Var() {
				cells := dt.varCells[attr.Name]
				tile := Tile{Offsets: make([]uint64, 0, n)}
				for c := uint64(0); c < n; c++ {
					tile.Offsets = append(tile.Offsets, uint64(len(tile.Values)))
					if cells != nil {
						tile.Values = append(tile.Values, cells[c]...)
					}
				}
				t.attrs[attr.Name] = tile
				continue
			}
			buf := dt.fixed[attr.Name]
			if buf == nil {
				buf = make([]byte, uint64(attr.CellSize())*n)
			}
			t.attrs[attr.Name] = Tile{Values: buf}
		}
		f.byPos[pos] = len(f.tiles)
		f.tiles = append(f.tiles, t)
	}
}
