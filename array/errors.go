package array

import "fmt"

// ErrInvalidSubarray indicates that a query subarray does not fit the
// schema: wrong dimensionality, inverted bounds, or bounds outside the
// domain. It is detected eagerly, before any tile work begins.
type ErrInvalidSubarray struct {
	// Reason is a short human-readable cause.
	Reason string
	// Dim is the offending dimension, or -1 when the error is structural.
	Dim int
}

func (e *ErrInvalidSubarray) Error() string {
	if e.Dim < 0 {
		return fmt.Sprintf("invalid subarray: %s", e.Reason)
	}
	return fmt.Sprintf("invalid subarray: %s (dimension %d)", e.Reason, e.Dim)
}

// ErrUnsupportedLayout indicates a layout that cannot be used for the
// requested operation, e.g. an Unordered read.
type ErrUnsupportedLayout struct {
	Layout Layout
}

func (e *ErrUnsupportedLayout) Error() string {
	return fmt.Sprintf("unsupported layout: %s", e.Layout)
}
