package tilego

import (
	"sync/atomic"
	"time"
)

// MetricsCollector receives read-path events. Implementations must be
// safe for concurrent use; attribute copies run in parallel.
type MetricsCollector interface {
	// RecordSubmit is called once per Submit with its wall time.
	RecordSubmit(dur time.Duration, err error)

	// RecordTilesResolved is called with the number of tiles whose
	// bounding rectangles intersect the subarray.
	RecordTilesResolved(n int)

	// RecordCellsCollected is called with the number of candidate
	// cells gathered before deduplication.
	RecordCellsCollected(n int)

	// RecordCellsDropped is called with the number of cells shadowed
	// by a more recent fragment.
	RecordCellsDropped(n int)

	// RecordRangesEmitted is called with the number of cell ranges
	// produced by the merge.
	RecordRangesEmitted(n int)

	// RecordBytesCopied is called per attribute with the bytes written
	// into user buffers.
	RecordBytesCopied(attr string, n int)

	// RecordOverflow is called when an attribute buffer fills before
	// the result is exhausted.
	RecordOverflow(attr string)
}

// NoopMetricsCollector discards all events.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordSubmit(time.Duration, error) {}
func (NoopMetricsCollector) RecordTilesResolved(int)           {}
func (NoopMetricsCollector) RecordCellsCollected(int)          {}
func (NoopMetricsCollector) RecordCellsDropped(int)            {}
func (NoopMetricsCollector) RecordRangesEmitted(int)           {}
func (NoopMetricsCollector) RecordBytesCopied(string, int)     {}
func (NoopMetricsCollector) RecordOverflow(string)             {}

// BasicMetricsCollector counts events with atomics.
type BasicMetricsCollector struct {
	submits        atomic.Int64
	submitErrors   atomic.Int64
	submitNanos    atomic.Int64
	tilesResolved  atomic.Int64
	cellsCollected atomic.Int64
	cellsDropped   atomic.Int64
	rangesEmitted  atomic.Int64
	bytesCopied    atomic.Int64
	overflows      atomic.Int64
}

// NewBasicMetricsCollector creates a zeroed collector.
func NewBasicMetricsCollector() *BasicMetricsCollector {
	return &BasicMetricsCollector{}
}

func (c *BasicMetricsCollector) RecordSubmit(dur time.Duration, err error) {
	c.submits.Add(1)
	c.submitNanos.Add(int64(dur))
	if err != nil {
		c.submitErrors.Add(1)
	}
}

func (c *BasicMetricsCollector) RecordTilesResolved(n int)  { c.tilesResolved.Add(int64(n)) }
func (c *BasicMetricsCollector) RecordCellsCollected(n int) { c.cellsCollected.Add(int64(n)) }
func (c *BasicMetricsCollector) RecordCellsDropped(n int)   { c.cellsDropped.Add(int64(n)) }
func (c *BasicMetricsCollector) RecordRangesEmitted(n int)  { c.rangesEmitted.Add(int64(n)) }

func (c *BasicMetricsCollector) RecordBytesCopied(_ string, n int) {
	c.bytesCopied.Add(int64(n))
}

func (c *BasicMetricsCollector) RecordOverflow(string) { c.overflows.Add(1) }

// BasicMetricsStats is a point-in-time snapshot.
type BasicMetricsStats struct {
	Submits        int64
	SubmitErrors   int64
	SubmitTime     time.Duration
	TilesResolved  int64
	CellsCollected int64
	CellsDropped   int64
	RangesEmitted  int64
	BytesCopied    int64
	Overflows      int64
}

// GetStats returns a snapshot of the counters.
func (c *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		Submits:        c.submits.Load(),
		SubmitErrors:   c.submitErrors.Load(),
		SubmitTime:     time.Duration(c.submitNanos.Load()),
		TilesResolved:  c.tilesResolved.Load(),
		CellsCollected: c.cellsCollected.Load(),
		CellsDropped:   c.cellsDropped.Load(),
		RangesEmitted:  c.rangesEmitted.Load(),
		BytesCopied:    c.bytesCopied.Load(),
		Overflows:      c.overflows.Load(),
	}
}

// collectorObserver adapts a MetricsCollector to the merge pipeline's
// observer hooks.
type collectorObserver struct {
	mc MetricsCollector
}

func (o collectorObserver) TilesResolved(n int)           { o.mc.RecordTilesResolved(n) }
func (o collectorObserver) CoordsCollected(n int)         { o.mc.RecordCellsCollected(n) }
func (o collectorObserver) CoordsDropped(n int)           { o.mc.RecordCellsDropped(n) }
func (o collectorObserver) RangesEmitted(n int)           { o.mc.RecordRangesEmitted(n) }
func (o collectorObserver) BytesCopied(attr string, n int) { o.mc.RecordBytesCopied(attr, n) }
func (o collectorObserver) OverflowDetected(attr string)  { o.mc.RecordOverflow(attr) }
