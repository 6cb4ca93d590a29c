// Package engine implements the read-merge pipeline: it resolves which
// fragment tiles a subarray touches, collects and orders the matching
// coordinates, resolves cross-fragment duplicates by write recency, compacts
// the survivors into contiguous cell ranges (or, for dense arrays, merges
// per-fragment written intervals directly into a covering range partition),
// and copies attribute cells into caller buffers.
//
// The pipeline runs per execution: Plan builds the merged range list once,
// Copy drains it into buffers and can be called again after an overflow with
// larger buffers to resume where it stopped.
package engine
