// Package pool provides reusable per-read scratch state. Read queries churn
// through liveness bitmaps and small interval buffers; pooling them keeps
// repeated submits allocation-free.
package pool

import (
	"sync"

	"github.com/bits-and-blooms/bitset"
)

// DefaultMaxCells is the initial capacity of the liveness bitmap.
const DefaultMaxCells = 1 << 16

// ScanContext holds scratch buffers for one read execution's merge phase.
type ScanContext struct {
	// Dead marks coordinate slots eliminated by deduplication.
	Dead *bitset.BitSet

	// Spans is interval scratch for dense range subtraction, [lo, hi] pairs.
	Spans [][2]uint64

	// TileCoords is per-cell tile coordinate scratch.
	TileCoords []uint64

	maxCells uint
}

var scanContextPool = sync.Pool{
	New: func() any {
		return &ScanContext{
			Dead:     bitset.New(DefaultMaxCells),
			Spans:    make([][2]uint64, 0, 64),
			maxCells: DefaultMaxCells,
		}
	},
}

// Get retrieves a clean ScanContext from the pool.
func Get() *ScanContext {
	sc := scanContextPool.Get().(*ScanContext)
	sc.Reset()
	return sc
}

// Put returns a ScanContext to the pool. Oversized bitmaps are dropped so
// one huge read does not pin memory for every later one.
func Put(sc *ScanContext) {
	if sc == nil {
		return
	}
	if sc.Dead.Len() > DefaultMaxCells*8 {
		sc.Dead = bitset.New(DefaultMaxCells)
		sc.maxCells = DefaultMaxCells
	}
	scanContextPool.Put(sc)
}

// Reset clears the ScanContext for reuse.
func (sc *ScanContext) Reset() {
	sc.Dead.ClearAll()
	sc.Spans = sc.Spans[:0]
	sc.TileCoords = sc.TileCoords[:0]
}

// MarkDead marks a coordinate slot dead, growing the bitmap as needed.
func (sc *ScanContext) MarkDead(i uint) {
	if i >= sc.maxCells {
		sc.maxCells = max(i+1, sc.maxCells*2)
	}
	sc.Dead.Set(i)
}

// IsDead reports whether a coordinate slot was marked dead.
func (sc *ScanContext) IsDead(i uint) bool {
	return sc.Dead.Test(i)
}
