// Package array defines the logical model of a multi-dimensional array:
// dimensions, tile extents, cell layouts, attribute datatypes and the
// hyper-rectangle math used for subarray and tile overlap tests.
//
// The coordinate primitive is a type parameter constrained by Coord and is
// fixed once per schema. Dense arrays require an integer coordinate type;
// sparse arrays may additionally use float coordinates.
package array
