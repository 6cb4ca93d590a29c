// Package fragment models immutable array writes. A fragment is one
// timestamp-ordered write of cells; higher fragment indices are more recent
// and take precedence when the same cell appears in several fragments.
//
// Two implementations are provided. MemFragment holds its tiles in memory
// and is built with a Builder; BlobFragment reads tiles lazily from a
// blobstore, decoding them through the codec package under resource
// admission control. The read engine consumes both through the Fragment
// interface.
package fragment
