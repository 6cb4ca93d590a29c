package testutil

import (
	"encoding/binary"
	"math"
	"math/rand"
	"sync"

	"github.com/hupe1980/tilego/array"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uint64 returns a pseudo-random uint64.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64()
}

// Int64InRange returns a pseudo-random int64 in [lo, hi].
func (r *RNG) Int64InRange(lo, hi int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo + r.rand.Int63n(hi-lo+1)
}

// Int32Cell returns a random int32 attribute cell in little-endian form.
func (r *RNG) Int32Cell() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return binary.LittleEndian.AppendUint32(nil, r.rand.Uint32())
}

// Bytes returns a random payload whose length is drawn from [0, maxLen].
// Zero-length payloads are produced on purpose; var-sized attributes
// must round-trip empty cells.
func (r *RNG) Bytes(maxLen int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := make([]byte, r.rand.Intn(maxLen+1))
	r.rand.Read(b)
	return b
}

// Coords returns a random coordinate tuple inside rect. Locks only
// once per call.
func (r *RNG) Coords(rect array.Rect[int64]) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := make([]int64, len(rect))
	for d, rg := range rect {
		p[d] = rg.Lo + r.rand.Int63n(rg.Hi-rg.Lo+1)
	}
	return p
}

// UniqueCoords returns n distinct coordinate tuples inside rect.
// It panics if rect holds fewer than n cells.
func (r *RNG) UniqueCoords(n int, rect array.Rect[int64]) [][]int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{}, n)
	out := make([][]int64, 0, n)
	key := make([]byte, 0, len(rect)*8)

	for len(out) < n {
		p := make([]int64, len(rect))
		key = key[:0]
		for d, rg := range rect {
			p[d] = rg.Lo + r.rand.Int63n(rg.Hi-rg.Lo+1)
			key = binary.LittleEndian.AppendUint64(key, uint64(p[d]))
		}
		if _, dup := seen[string(key)]; dup {
			continue
		}
		seen[string(key)] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Subarray returns a random non-empty subarray of the given domain.
func (r *RNG) Subarray(domain array.Rect[int64]) array.Rect[int64] {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub := make(array.Rect[int64], len(domain))
	for d, rg := range domain {
		span := rg.Hi - rg.Lo + 1
		lo := rg.Lo + r.rand.Int63n(span)
		hi := lo + r.rand.Int63n(rg.Hi-lo+1)
		sub[d] = array.Range[int64]{Lo: lo, Hi: hi}
	}
	return sub
}

// Zipf returns a Zipfian-distributed value in [0, n). P(k) is
// proportional to 1/k^s; s=1.0 gives standard Zipf. Useful for
// skewing cell writes across fragments the way real overwrite
// workloads do.
func (r *RNG) Zipf(n int, s float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.zipfLocked(n, s)
}

// zipfLocked is the internal implementation (caller must hold lock).
func (r *RNG) zipfLocked(n int, s float64) int {
	if n <= 1 {
		return 0
	}

	var hns float64
	for i := 1; i <= n; i++ {
		hns += 1.0 / math.Pow(float64(i), s)
	}

	u := r.rand.Float64() * hns
	var cumulative float64
	for k := 1; k <= n; k++ {
		cumulative += 1.0 / math.Pow(float64(k), s)
		if u <= cumulative {
			return k - 1
		}
	}

	return n - 1
}

// ZipfBuckets generates n bucket assignments with Zipfian distribution.
func (r *RNG) ZipfBuckets(n, bucketCount int, s float64) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	buckets := make([]int64, n)
	for i := range n {
		buckets[i] = int64(r.zipfLocked(bucketCount, s))
	}

	return buckets
}

// ReferenceMerge computes the expected read result cell by cell:
// writes is one map per fragment, ordered oldest first, keyed by
// coordinate tuple. The latest write per key wins.
func ReferenceMerge(writes []map[string]int32) map[string]int32 {
	out := make(map[string]int32)
	for _, w := range writes {
		for k, v := range w {
			out[k] = v
		}
	}
	return out
}

// CoordKey flattens a coordinate tuple into a map key for ReferenceMerge.
func CoordKey(p []int64) string {
	b := make([]byte, 0, len(p)*8)
	for _, c := range p {
		b = binary.LittleEndian.AppendUint64(b, uint64(c))
	}
	return string(b)
}
