package blobstore

import (
	"container/list"
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// CachingStore wraps a BlobStore with a whole-blob LRU cache. Tile blobs
// are small and immutable, so the blob is the natural cache unit; repeated
// reads of hot tiles (overlapping queries, overflow retries) skip the inner
// store entirely.
type CachingStore struct {
	inner    BlobStore
	capacity int64

	mu    sync.Mutex
	size  int64
	order *list.List // front = most recent
	items map[string]*list.Element
}

type cacheEntry struct {
	name string
	data []byte
}

// NewCachingStore wraps inner with a cache holding up to capacity bytes.
func NewCachingStore(inner BlobStore, capacity int64) *CachingStore {
	return &CachingStore{
		inner:    inner,
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element),
	}
}

// Open returns a blob served from cache, faulting it in from the inner
// store on miss.
func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	if data, ok := s.get(name); ok {
		return &memoryBlob{data: data}, nil
	}
	data, err := Fetch(ctx, s.inner, name)
	if err != nil {
		return nil, err
	}
	s.add(name, data)
	return &memoryBlob{data: data}, nil
}

// Prefetch warms the cache for the given blobs, fetching misses
// concurrently. parallelism <= 0 means one fetch per blob.
func (s *CachingStore) Prefetch(ctx context.Context, names []string, parallelism int) error {
	g, ctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for _, name := range names {
		if _, ok := s.get(name); ok {
			continue
		}
		g.Go(func() error {
			data, err := Fetch(ctx, s.inner, name)
			if err != nil {
				return err
			}
			s.add(name, data)
			return nil
		})
	}
	return g.Wait()
}

// Len returns the number of cached blobs.
func (s *CachingStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *CachingStore) get(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.items[name]
	if !ok {
		return nil, false
	}
	s.order.MoveToFront(el)
	return el.Value.(*cacheEntry).data, true
}

func (s *CachingStore) add(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.items[name]; ok {
		s.order.MoveToFront(el)
		return
	}
	s.items[name] = s.order.PushFront(&cacheEntry{name: name, data: data})
	s.size += int64(len(data))

	for s.size > s.capacity && s.order.Len() > 1 {
		el := s.order.Back()
		entry := el.Value.(*cacheEntry)
		s.order.Remove(el)
		delete(s.items, entry.name)
		s.size -= int64(len(entry.data))
	}
}
