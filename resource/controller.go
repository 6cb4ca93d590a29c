// Package resource provides admission control for read queries: a cap on
// memory held by materialized tile buffers, a cap on concurrent tile
// fetches, and a byte-rate throttle for fetch I/O.
//
// A single Controller is typically shared by all fragments backed by the
// same storage so the limits hold array-wide. A nil *Controller is valid and
// enforces nothing.
package resource

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits. Zero values disable the respective limit.
type Config struct {
	// TileMemoryBytes caps the total bytes of materialized tile buffers
	// held at once.
	TileMemoryBytes int64

	// MaxFetches caps the number of concurrent tile fetches.
	MaxFetches int64

	// FetchBytesPerSec throttles tile fetch I/O throughput.
	FetchBytesPerSec int64
}

// Controller enforces the configured limits.
type Controller struct {
	memSem   *semaphore.Weighted // nil if unlimited
	memUsed  atomic.Int64
	fetchSem *semaphore.Weighted // nil if unlimited
	ioLimit  *rate.Limiter       // nil if unlimited
}

// NewController creates a controller for the given limits.
func NewController(cfg Config) *Controller {
	c := &Controller{}
	if cfg.TileMemoryBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.TileMemoryBytes)
	}
	if cfg.MaxFetches > 0 {
		c.fetchSem = semaphore.NewWeighted(cfg.MaxFetches)
	}
	if cfg.FetchBytesPerSec > 0 {
		c.ioLimit = rate.NewLimiter(rate.Limit(cfg.FetchBytesPerSec), int(cfg.FetchBytesPerSec))
	}
	return c
}

// AcquireTileMemory reserves memory for a materialized tile, blocking until
// the reservation fits under the limit or ctx is canceled.
func (c *Controller) AcquireTileMemory(ctx context.Context, bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}
	if c.memSem != nil {
		if err := c.memSem.Acquire(ctx, bytes); err != nil {
			return err
		}
	}
	c.memUsed.Add(bytes)
	return nil
}

// ReleaseTileMemory returns a reservation made by AcquireTileMemory.
func (c *Controller) ReleaseTileMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}
	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// TileMemoryUsage returns the bytes currently reserved for tile buffers.
func (c *Controller) TileMemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// AcquireFetch reserves a tile-fetch slot, blocking while all slots are
// busy.
func (c *Controller) AcquireFetch(ctx context.Context) error {
	if c == nil || c.fetchSem == nil {
		return nil
	}
	return c.fetchSem.Acquire(ctx, 1)
}

// ReleaseFetch returns a fetch slot.
func (c *Controller) ReleaseFetch() {
	if c == nil || c.fetchSem == nil {
		return
	}
	c.fetchSem.Release(1)
}

// WaitIO blocks until the fetch throughput budget allows the given number
// of bytes.
func (c *Controller) WaitIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimit == nil {
		return nil
	}
	return c.ioLimit.WaitN(ctx, bytes)
}
