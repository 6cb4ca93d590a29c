package blobstore

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Put(ctx, "frag_0/t0", []byte("hello tile")))

	b, err := s.Open(ctx, "frag_0/t0")
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, int64(10), b.Size())

	p := make([]byte, 4)
	n, err := b.ReadAt(ctx, p, 6)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "tile", string(p))

	_, err = s.Open(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Put(ctx, "a", []byte("one")))

	b, err := s.Open(ctx, "a")
	require.NoError(t, err)
	defer b.Close()

	// Overwrite after open; the open handle keeps the original bytes.
	require.NoError(t, s.Put(ctx, "a", []byte("two")))
	data, err := ReadAll(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))
}

func TestMemoryStoreList(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Put(ctx, "frag_0/meta", nil))
	require.NoError(t, s.Put(ctx, "frag_1/meta", nil))

	names, err := s.List(ctx, "frag_1")
	require.NoError(t, err)
	assert.Equal(t, []string{"frag_1/meta"}, names)
}

func TestLocalStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStore(t.TempDir())

	require.NoError(t, s.Put(ctx, "frag_0/t0", []byte("mapped tile")))

	b, err := s.Open(ctx, "frag_0/t0")
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, int64(11), b.Size())

	data, err := ReadAll(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, "mapped tile", string(data))

	// Local blobs are zero-copy.
	_, ok := b.(Mappable)
	assert.True(t, ok)

	names, err := s.List(ctx, "frag_0/")
	require.NoError(t, err)
	assert.Equal(t, []string{"frag_0/t0"}, names)

	require.NoError(t, s.Delete(ctx, "frag_0/t0"))
	_, err = s.Open(ctx, "frag_0/t0")
	assert.Error(t, err)
}

func TestCachingStoreServesFromCache(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore()
	require.NoError(t, inner.Put(ctx, "t0", []byte("cached")))

	c := NewCachingStore(inner, 1<<20)

	b, err := c.Open(ctx, "t0")
	require.NoError(t, err)
	data, err := ReadAll(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, "cached", string(data))
	assert.Equal(t, 1, c.Len())

	// Delete from the inner store; the cache still serves it.
	require.NoError(t, inner.Delete(ctx, "t0"))
	b2, err := c.Open(ctx, "t0")
	require.NoError(t, err)
	data, err = ReadAll(ctx, b2)
	require.NoError(t, err)
	assert.Equal(t, "cached", string(data))
}

func TestCachingStoreEvicts(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore()
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, inner.Put(ctx, name, make([]byte, 40)))
	}

	c := NewCachingStore(inner, 100)
	for _, name := range []string{"a", "b", "c"} {
		_, err := c.Open(ctx, name)
		require.NoError(t, err)
	}
	// 3*40 > 100: the least recently used blob was evicted.
	assert.Equal(t, 2, c.Len())
}

func TestCachingStorePrefetch(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore()
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, inner.Put(ctx, name, []byte(name)))
	}

	c := NewCachingStore(inner, 1<<20)
	require.NoError(t, c.Prefetch(ctx, []string{"a", "b", "c"}, 2))
	assert.Equal(t, 3, c.Len())

	err := c.Prefetch(ctx, []string{"missing"}, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReadAllShortBlob(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Put(ctx, "empty", nil))

	b, err := s.Open(ctx, "empty")
	require.NoError(t, err)
	data, err := ReadAll(ctx, b)
	require.NoError(t, err)
	assert.Empty(t, data)
	assert.NotErrorIs(t, err, io.EOF)
}
