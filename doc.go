// Package tilego reads multi-dimensional arrays written as immutable,
// timestamped fragments. A read merges all fragments that overlap the
// requested subarray, resolving cells written more than once in favor
// of the most recent fragment, and delivers the surviving cells into
// caller-owned buffers in row-major, column-major, or global order.
//
// Arrays are described by a Schema (dimensions, tile extents, and
// fixed- or var-sized attributes). Dense reads return a value for
// every cell of the subarray, substituting fill values for cells no
// fragment has written. Sparse reads return only written cells, with
// optional coordinates.
//
// Buffers can be smaller than the result: when one fills, Submit
// reports StatusIncomplete and the next Submit resumes at the exact
// cell where the copy stopped.
//
//	q := tilego.NewQuery(schema, fragments, tilego.WithLayout(array.RowMajor))
//	_ = q.SetSubarray(array.NewRect[int64](0, 9, 0, 9))
//	_ = q.SetBuffer("a", buf)
//	for {
//		if err := q.Submit(ctx); err != nil {
//			return err
//		}
//		process(buf[:q.BytesWritten("a")])
//		if q.Status() == tilego.StatusCompleted {
//			break
//		}
//	}
package tilego
