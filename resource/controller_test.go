package resource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilControllerIsUnlimited(t *testing.T) {
	var c *Controller

	require.NoError(t, c.AcquireTileMemory(context.Background(), 1<<40))
	c.ReleaseTileMemory(1 << 40)
	require.NoError(t, c.AcquireFetch(context.Background()))
	c.ReleaseFetch()
	require.NoError(t, c.WaitIO(context.Background(), 1<<30))
	assert.Equal(t, int64(0), c.TileMemoryUsage())
}

func TestTileMemoryLimit(t *testing.T) {
	c := NewController(Config{TileMemoryBytes: 100})

	require.NoError(t, c.AcquireTileMemory(context.Background(), 80))
	assert.Equal(t, int64(80), c.TileMemoryUsage())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := c.AcquireTileMemory(ctx, 40)
	assert.Error(t, err)

	c.ReleaseTileMemory(80)
	require.NoError(t, c.AcquireTileMemory(context.Background(), 40))
	c.ReleaseTileMemory(40)
	assert.Equal(t, int64(0), c.TileMemoryUsage())
}

func TestFetchSlots(t *testing.T) {
	c := NewController(Config{MaxFetches: 1})

	require.NoError(t, c.AcquireFetch(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, c.AcquireFetch(ctx))

	c.ReleaseFetch()
	require.NoError(t, c.AcquireFetch(context.Background()))
	c.ReleaseFetch()
}

func TestWaitIOThrottles(t *testing.T) {
	c := NewController(Config{FetchBytesPerSec: 1000})

	// First burst fits; an oversized request must fail fast.
	require.NoError(t, c.WaitIO(context.Background(), 1000))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, c.WaitIO(ctx, 500))
}
