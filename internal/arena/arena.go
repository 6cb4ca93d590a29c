// Package arena provides a per-query arena for tile records.
//
// All OverlappingTile records created while answering one read query are
// owned by a single Arena and addressed by small integer handles. Coordinate
// and cell-range records store handles instead of pointers, which removes
// lifetime ambiguity: the records cannot outlive the arena, and the arena is
// dropped wholesale when the query finishes.
//
// An Arena is not safe for concurrent appends. Records are read-only once
// constructed and may then be read concurrently by any number of workers.
package arena

// Index is a handle to a record in an Arena.
type Index int32

// None is the null handle. Cell ranges carrying None are fill ranges with no
// source tile.
const None Index = -1

// Valid reports whether the handle refers to a record.
func (i Index) Valid() bool { return i >= 0 }

// Arena owns all records of type V for one query execution.
type Arena[V any] struct {
	items []V
}

// New returns an arena with the given initial capacity.
func New[V any](capacity int) *Arena[V] {
	return &Arena[V]{items: make([]V, 0, capacity)}
}

// Append adds a record and returns its handle.
func (a *Arena[V]) Append(v V) Index {
	a.items = append(a.items, v)
	return Index(len(a.items) - 1)
}

// Get returns a pointer to the record at i. A later Append may move the
// records, so handles, not pointers, are what callers store.
func (a *Arena[V]) Get(i Index) *V {
	return &a.items[i]
}

// Len returns the number of records.
func (a *Arena[V]) Len() int { return len(a.items) }

// Reset discards all records, retaining capacity for reuse.
func (a *Arena[V]) Reset() {
	clear(a.items)
	a.items = a.items[:0]
}
