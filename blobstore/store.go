// Package blobstore abstracts access to immutable fragment blobs: tile
// data, coordinate tiles and fragment metadata. Implementations cover the
// local filesystem (memory-mapped), plain memory, and object storage (S3,
// MinIO), plus a caching wrapper.
//
// Blobs are immutable once written, which is what makes whole-blob caching
// and concurrent readers safe.
package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error satisfying
// errors.Is(err, ErrNotFound). The default maps to os.ErrNotExist.
var ErrNotFound = os.ErrNotExist

// BlobStore is read access to immutable blobs.
type BlobStore interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
}

// WritableStore is the optional write surface, used when fragments are
// serialized into a store.
type WritableStore interface {
	BlobStore
	// Put writes a blob atomically under the given name.
	Put(ctx context.Context, name string, data []byte) error
	// Delete removes a blob.
	Delete(ctx context.Context, name string) error
	// List returns the names of all blobs with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to one blob.
type Blob interface {
	// ReadAt reads len(p) bytes at offset off.
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	io.Closer
	// Size returns the blob size in bytes.
	Size() int64
}

// Mappable is an optional interface for Blobs that expose their contents
// zero-copy. The slice is valid until the Blob is closed.
type Mappable interface {
	Bytes() ([]byte, error)
}

// ReadAll reads the entire blob. It uses zero-copy access when the blob is
// Mappable; the returned slice must then not outlive the blob.
func ReadAll(ctx context.Context, b Blob) ([]byte, error) {
	if m, ok := b.(Mappable); ok {
		return m.Bytes()
	}
	data := make([]byte, b.Size())
	n, err := b.ReadAt(ctx, data, 0)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return data[:n], nil
}

// Fetcher is an optional interface for stores with a faster whole-blob
// download path than Open+ReadAt (e.g. multipart object downloads).
type Fetcher interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// Fetch opens, fully reads and closes the named blob. Stores implementing
// Fetcher serve the read directly.
func Fetch(ctx context.Context, s BlobStore, name string) ([]byte, error) {
	if f, ok := s.(Fetcher); ok {
		return f.Fetch(ctx, name)
	}
	b, err := s.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	data, err := ReadAll(ctx, b)
	if err != nil {
		return nil, err
	}
	// Zero-copy blobs alias store memory that dies with the handle.
	if _, mapped := b.(Mappable); mapped {
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	}
	return data, nil
}
