// Package testutil provides testing utilities for tilego.
//
// This package is intended for use in tests and benchmarks only.
// It provides helpers for generating random coordinates, cells, and
// subarrays, and for computing expected merge results cell by cell.
//
// # Random Data Generation
//
//	rng := testutil.NewRNG(seed)
//	coords := rng.UniqueCoords(100, schema.Domain())
//	sub := rng.Subarray(schema.Domain())
//
// # Expected Results (Ground Truth)
//
//	want := testutil.ReferenceMerge(writesPerFragment)
package testutil
