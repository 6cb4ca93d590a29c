package array

import (
	"fmt"
)

// DefaultCapacity is the default number of cells per sparse data tile.
const DefaultCapacity = 1024

// Dimension describes one axis of the array domain.
type Dimension[T Coord] struct {
	Name string
	// Domain is the inclusive range of valid coordinates along this axis.
	Domain Range[T]
	// Extent is the tile size along this axis.
	Extent T
}

// Schema fixes the logical shape of an array: its dimensions, tiling,
// physical orders and attributes. A Schema is immutable after construction
// and safe for concurrent use.
type Schema[T Coord] struct {
	dims      []Dimension[T]
	attrs     []Attribute
	attrIdx   map[string]int
	dense     bool
	tileOrder Layout
	cellOrder Layout
	capacity  uint64
}

// SchemaOption configures optional schema properties.
type SchemaOption func(*schemaConfig)

type schemaConfig struct {
	tileOrder Layout
	cellOrder Layout
	capacity  uint64
}

// WithTileOrder sets the order of tiles in the global order. Only RowMajor
// and ColMajor are accepted.
func WithTileOrder(l Layout) SchemaOption {
	return func(c *schemaConfig) { c.tileOrder = l }
}

// WithCellOrder sets the order of cells within a tile. Only RowMajor and
// ColMajor are accepted.
func WithCellOrder(l Layout) SchemaOption {
	return func(c *schemaConfig) { c.cellOrder = l }
}

// WithCapacity sets the cell capacity of sparse data tiles.
func WithCapacity(n uint64) SchemaOption {
	return func(c *schemaConfig) { c.capacity = n }
}

// NewSchema builds a schema. Dense arrays require an integer coordinate
// type. Attribute names must be unique and must not collide with the
// reserved coordinates name.
func NewSchema[T Coord](dense bool, dims []Dimension[T], attrs []Attribute, opts ...SchemaOption) (*Schema[T], error) {
	cfg := schemaConfig{tileOrder: RowMajor, cellOrder: RowMajor, capacity: DefaultCapacity}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.tileOrder != RowMajor && cfg.tileOrder != ColMajor {
		return nil, fmt.Errorf("array: tile order must be row- or col-major, got %s", cfg.tileOrder)
	}
	if cfg.cellOrder != RowMajor && cfg.cellOrder != ColMajor {
		return nil, fmt.Errorf("array: cell order must be row- or col-major, got %s", cfg.cellOrder)
	}
	if len(dims) == 0 {
		return nil, fmt.Errorf("array: schema requires at least one dimension")
	}
	if dense && !IsIntegral[T]() {
		return nil, fmt.Errorf("array: dense arrays require an integer coordinate type, got %s", DatatypeOf[T]())
	}
	if cfg.capacity == 0 {
		return nil, fmt.Errorf("array: capacity must be positive")
	}
	for _, dim := range dims {
		if dim.Domain.Empty() {
			return nil, fmt.Errorf("array: dimension %q has inverted domain", dim.Name)
		}
		if dim.Extent <= 0 {
			return nil, fmt.Errorf("array: dimension %q has non-positive tile extent", dim.Name)
		}
	}
	if len(attrs) == 0 {
		return nil, fmt.Errorf("array: schema requires at least one attribute")
	}
	idx := make(map[string]int, len(attrs))
	for i, a := range attrs {
		if a.Name == "" || a.Name == CoordsName {
			return nil, fmt.Errorf("array: invalid attribute name %q", a.Name)
		}
		if _, dup := idx[a.Name]; dup {
			return nil, fmt.Errorf("array: duplicate attribute %q", a.Name)
		}
		if a.CellValNum == 0 {
			return nil, fmt.Errorf("array: attribute %q has zero cell val num", a.Name)
		}
		idx[a.Name] = i
	}
	s := &Schema[T]{
		dims:      append([]Dimension[T](nil), dims...),
		attrs:     append([]Attribute(nil), attrs...),
		attrIdx:   idx,
		dense:     dense,
		tileOrder: cfg.tileOrder,
		cellOrder: cfg.cellOrder,
		capacity:  cfg.capacity,
	}
	return s, nil
}

// Dense reports whether every domain cell has a value.
func (s *Schema[T]) Dense() bool { return s.dense }

// DimNum returns the dimensionality of the array.
func (s *Schema[T]) DimNum() int { return len(s.dims) }

// Dims returns the dimensions in declaration order.
func (s *Schema[T]) Dims() []Dimension[T] { return s.dims }

// Attributes returns the attributes in declaration order.
func (s *Schema[T]) Attributes() []Attribute { return s.attrs }

// Attribute looks up an attribute by name.
func (s *Schema[T]) Attribute(name string) (Attribute, bool) {
	i, ok := s.attrIdx[name]
	if !ok {
		return Attribute{}, false
	}
	return s.attrs[i], true
}

// TileOrder returns the order of tiles in the global order.
func (s *Schema[T]) TileOrder() Layout { return s.tileOrder }

// CellOrder returns the order of cells within a tile.
func (s *Schema[T]) CellOrder() Layout { return s.cellOrder }

// Capacity returns the sparse data tile cell capacity.
func (s *Schema[T]) Capacity() uint64 { return s.capacity }

// Domain returns the whole array domain as a Rect.
func (s *Schema[T]) Domain() Rect[T] {
	r := make(Rect[T], len(s.dims))
	for d, dim := range s.dims {
		r[d] = dim.Domain
	}
	return r
}

// TileGrid returns the number of tiles along each dimension.
func (s *Schema[T]) TileGrid() []uint64 {
	g := make([]uint64, len(s.dims))
	for d, dim := range s.dims {
		g[d] = tileIndex(dim.Domain.Hi, dim.Domain.Lo, dim.Extent) + 1
	}
	return g
}

// CellsPerTile returns the number of cells in one dense tile.
func (s *Schema[T]) CellsPerTile() uint64 {
	n := uint64(1)
	for _, dim := range s.dims {
		n *= uint64(dim.Extent)
	}
	return n
}

// TileCoords computes the per-dimension tile indices of the coordinate
// tuple p, appending into dst (which may be nil).
func (s *Schema[T]) TileCoords(p []T, dst []uint64) []uint64 {
	for d, dim := range s.dims {
		dst = append(dst, tileIndex(p[d], dim.Domain.Lo, dim.Extent))
	}
	return dst
}

// TilePos flattens tile coordinates into the tile's position in the global
// tile ordering.
func (s *Schema[T]) TilePos(tc []uint64) uint64 {
	grid := s.TileGrid()
	return flatten(tc, grid, s.tileOrder)
}

// TileRect returns the bounding rectangle of the tile with the given tile
// coordinates, clamped to the domain.
func (s *Schema[T]) TileRect(tc []uint64) Rect[T] {
	r := make(Rect[T], len(s.dims))
	for d, dim := range s.dims {
		lo := dim.Domain.Lo + T(tc[d])*dim.Extent
		hi := lo + dim.Extent - 1
		if hi > dim.Domain.Hi {
			hi = dim.Domain.Hi
		}
		r[d] = Range[T]{Lo: lo, Hi: hi}
	}
	return r
}

// CellPosInTile flattens the coordinate tuple p into its cell position
// within its tile, following the schema cell order. Meaningful for integer
// coordinate types only.
func (s *Schema[T]) CellPosInTile(p []T) uint64 {
	idx := make([]uint64, len(s.dims))
	ext := make([]uint64, len(s.dims))
	for d, dim := range s.dims {
		tc := tileIndex(p[d], dim.Domain.Lo, dim.Extent)
		tileLo := dim.Domain.Lo + T(tc)*dim.Extent
		idx[d] = uint64(p[d] - tileLo)
		ext[d] = uint64(dim.Extent)
	}
	return flatten(idx, ext, s.cellOrder)
}

// CmpRowMajor compares two coordinate tuples in row-major order.
func CmpRowMajor[T Coord](a, b []T) int {
	for d := range a {
		if a[d] < b[d] {
			return -1
		}
		if a[d] > b[d] {
			return 1
		}
	}
	return 0
}

// CmpColMajor compares two coordinate tuples in column-major order.
func CmpColMajor[T Coord](a, b []T) int {
	for d := len(a) - 1; d >= 0; d-- {
		if a[d] < b[d] {
			return -1
		}
		if a[d] > b[d] {
			return 1
		}
	}
	return 0
}

// CmpGlobal compares two coordinate tuples in the array's global order:
// first by tile position in the tile order, then by the cell order within
// the tile.
func (s *Schema[T]) CmpGlobal(a, b []T) int {
	ta := s.TileCoords(a, make([]uint64, 0, len(a)))
	tb := s.TileCoords(b, make([]uint64, 0, len(b)))
	if c := cmpIdx(ta, tb, s.tileOrder); c != 0 {
		return c
	}
	if s.cellOrder == ColMajor {
		return CmpColMajor(a, b)
	}
	return CmpRowMajor(a, b)
}

// LayoutCmp returns the coordinate comparator for the given read layout.
func (s *Schema[T]) LayoutCmp(l Layout) (func(a, b []T) int, error) {
	switch l {
	case RowMajor:
		return CmpRowMajor[T], nil
	case ColMajor:
		return CmpColMajor[T], nil
	case GlobalOrder:
		return s.CmpGlobal, nil
	default:
		return nil, &ErrUnsupportedLayout{Layout: l}
	}
}

// ValidateSubarray checks a query subarray against the schema: matching
// dimensionality, non-inverted bounds, and containment in the domain.
func (s *Schema[T]) ValidateSubarray(r Rect[T]) error {
	if len(r) != len(s.dims) {
		return &ErrInvalidSubarray{
			Reason: fmt.Sprintf("dimensionality mismatch: subarray has %d dimensions, schema has %d", len(r), len(s.dims)),
			Dim:    -1,
		}
	}
	for d, rng := range r {
		if rng.Empty() {
			return &ErrInvalidSubarray{Reason: "inverted bounds", Dim: d}
		}
		if rng.Lo < s.dims[d].Domain.Lo || rng.Hi > s.dims[d].Domain.Hi {
			return &ErrInvalidSubarray{Reason: "bounds outside domain", Dim: d}
		}
	}
	return nil
}

// tileIndex returns the tile index of coordinate p along a dimension with
// lower bound lo and tile extent extent. Truncating division equals floor
// here because p >= lo.
func tileIndex[T Coord](p, lo, extent T) uint64 {
	return uint64((p - lo) / extent)
}

// flatten converts a per-dimension index vector into a scalar position given
// per-dimension sizes, in row- or column-major order.
func flatten(idx, sizes []uint64, order Layout) uint64 {
	var pos uint64
	if order == ColMajor {
		for d := len(idx) - 1; d >= 0; d-- {
			pos = pos*sizes[d] + idx[d]
		}
		return pos
	}
	for d := range idx {
		pos = pos*sizes[d] + idx[d]
	}
	return pos
}

// cmpIdx compares index vectors in row- or column-major order.
func cmpIdx(a, b []uint64, order Layout) int {
	if order == ColMajor {
		for d := len(a) - 1; d >= 0; d-- {
			if a[d] < b[d] {
				return -1
			}
			if a[d] > b[d] {
				return 1
			}
		}
		return 0
	}
	for d := range a {
		if a[d] < b[d] {
			return -1
		}
		if a[d] > b[d] {
			return 1
		}
	}
	return 0
}
