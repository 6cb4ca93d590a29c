package engine

import (
	"log/slog"

	"github.com/hupe1980/tilego/array"
	"github.com/hupe1980/tilego/fragment"
	"github.com/hupe1980/tilego/internal/arena"
)

// TileRef is an arena handle to one resolved tile record.
type TileRef = arena.Index

// TileNone marks cell ranges with no source tile; the copier substitutes
// the attribute's fill value.
const TileNone = arena.None

// Tile is one (fragment, tile) pair relevant to a query. Records are
// append-only within an execution's arena; coordinate and range records
// refer to them by TileRef.
type Tile[T array.Coord] struct {
	Frag      int  // position in the execution's fragment set
	FragIndex int  // fragment recency index
	TileIdx   int  // fragment-local tile index
	Full      bool // subarray fully contains the tile's bounds

	TileCoords []uint64 // dense path: output tile coordinates
	Coords     []T      // sparse path: materialized interleaved coordinate tuples
}

// Coords is one collected sparse cell: the tile it came from and its
// position within that tile's buffers. The coordinate tuple itself lives in
// the tile record.
type Coords struct {
	Tile TileRef
	Pos  uint64
}

// CellRange is a maximal run of contiguous cell positions within one source
// tile, the unit the copier consumes. Tile == TileNone means the range was
// never written and is filled with the attribute's fill value.
type CellRange struct {
	Tile       TileRef
	Start, End uint64 // inclusive positions
}

// Cells returns the number of cells in the range.
func (r CellRange) Cells() uint64 { return r.End - r.Start + 1 }

// Observer receives pipeline measurements. Implementations must be safe for
// concurrent use.
type Observer interface {
	TilesResolved(n int)
	CoordsCollected(n int)
	CoordsDropped(n int)
	RangesEmitted(n int)
	BytesCopied(attr string, n int)
	OverflowDetected(attr string)
}

// NoopObserver discards all measurements.
type NoopObserver struct{}

func (NoopObserver) TilesResolved(int)      {}
func (NoopObserver) CoordsCollected(int)    {}
func (NoopObserver) CoordsDropped(int)      {}
func (NoopObserver) RangesEmitted(int)      {}
func (NoopObserver) BytesCopied(string, int) {}
func (NoopObserver) OverflowDetected(string) {}

// Config carries the engine's collaborators.
type Config struct {
	Logger         *slog.Logger
	Observer       Observer
	MaxConcurrency int
}

// Engine runs read queries against one schema and fragment set.
type Engine[T array.Coord] struct {
	schema  *array.Schema[T]
	frags   []fragment.Fragment[T]
	logger  *slog.Logger
	obs     Observer
	maxConc int

	// fragment positions ordered most recent first
	byRecency []int
}

// New creates an engine over the given fragment set. Fragments are
// consulted in recency order regardless of slice order.
func New[T array.Coord](s *array.Schema[T], frags []fragment.Fragment[T], cfg Config) *Engine[T] {
	e := &Engine[T]{
		schema:  s,
		frags:   frags,
		logger:  cfg.Logger,
		obs:     cfg.Observer,
		maxConc: cfg.MaxConcurrency,
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	if e.obs == nil {
		e.obs = NoopObserver{}
	}
	if e.maxConc <= 0 {
		e.maxConc = 4
	}
	e.byRecency = make([]int, len(frags))
	for i := range frags {
		e.byRecency[i] = i
	}
	// insertion sort by descending fragment index; fragment sets are small
	for i := 1; i < len(e.byRecency); i++ {
		for j := i; j > 0 && frags[e.byRecency[j]].Index() > frags[e.byRecency[j-1]].Index(); j-- {
			e.byRecency[j], e.byRecency[j-1] = e.byRecency[j-1], e.byRecency[j]
		}
	}
	return e
}

// Schema returns the schema the engine reads against.
func (e *Engine[T]) Schema() *array.Schema[T] { return e.schema }
