package array

// Range is a closed interval [Lo, Hi] along one dimension.
type Range[T Coord] struct {
	Lo, Hi T
}

// Empty reports whether the range contains no value.
func (r Range[T]) Empty() bool { return r.Lo > r.Hi }

// Rect is a hyper-rectangle: one closed range per dimension. A query
// subarray and a tile's minimum bounding rectangle are both Rects.
type Rect[T Coord] []Range[T]

// NewRect builds a Rect from interleaved bounds lo1, hi1, lo2, hi2, ...
// It panics if the number of bounds is odd.
func NewRect[T Coord](bounds ...T) Rect[T] {
	if len(bounds)%2 != 0 {
		panic("array: NewRect requires an even number of bounds")
	}
	r := make(Rect[T], len(bounds)/2)
	for d := range r {
		r[d] = Range[T]{Lo: bounds[2*d], Hi: bounds[2*d+1]}
	}
	return r
}

// Valid reports whether every dimension's range is non-empty.
func (r Rect[T]) Valid() bool {
	for _, rng := range r {
		if rng.Empty() {
			return false
		}
	}
	return len(r) > 0
}

// Overlaps reports whether r and o intersect. Two hyper-rectangles overlap
// iff every dimension's projections intersect. Degenerate rectangles never
// overlap anything.
func (r Rect[T]) Overlaps(o Rect[T]) bool {
	if len(r) != len(o) || !r.Valid() || !o.Valid() {
		return false
	}
	for d := range r {
		if r[d].Lo > o[d].Hi || r[d].Hi < o[d].Lo {
			return false
		}
	}
	return true
}

// Contains reports whether o lies entirely within r.
func (r Rect[T]) Contains(o Rect[T]) bool {
	if len(r) != len(o) || !r.Valid() || !o.Valid() {
		return false
	}
	for d := range r {
		if o[d].Lo < r[d].Lo || o[d].Hi > r[d].Hi {
			return false
		}
	}
	return true
}

// ContainsPoint reports whether the coordinate tuple p lies within r.
func (r Rect[T]) ContainsPoint(p []T) bool {
	if len(p) != len(r) {
		return false
	}
	for d := range r {
		if p[d] < r[d].Lo || p[d] > r[d].Hi {
			return false
		}
	}
	return true
}

// Intersect returns the intersection of r and o. ok is false when the
// rectangles do not overlap.
func (r Rect[T]) Intersect(o Rect[T]) (Rect[T], bool) {
	if !r.Overlaps(o) {
		return nil, false
	}
	out := make(Rect[T], len(r))
	for d := range r {
		out[d] = Range[T]{Lo: max(r[d].Lo, o[d].Lo), Hi: min(r[d].Hi, o[d].Hi)}
	}
	return out, true
}

// Clone returns a copy of r.
func (r Rect[T]) Clone() Rect[T] {
	out := make(Rect[T], len(r))
	copy(out, r)
	return out
}
