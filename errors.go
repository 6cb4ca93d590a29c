package tilego

import (
	"errors"
	"fmt"

	"github.com/hupe1980/tilego/blobstore"
)

var (
	// ErrNotFound is returned when a fragment or blob does not exist.
	ErrNotFound = errors.New("tilego: not found")

	// ErrNoBuffers is returned when Submit is called before any result
	// buffer has been set.
	ErrNoBuffers = errors.New("tilego: no result buffers set")

	// ErrQueryFailed is returned when a query enters the failed state;
	// the original cause is attached via Unwrap.
	ErrQueryFailed = errors.New("tilego: query failed")

	// ErrQueryInProgress is returned when the subarray is changed after
	// the first Submit.
	ErrQueryInProgress = errors.New("tilego: query already submitted")
)

// UnknownAttributeError is returned when a buffer is set for an
// attribute the schema does not define.
type UnknownAttributeError struct {
	Name string
}

func (e *UnknownAttributeError) Error() string {
	return fmt.Sprintf("tilego: unknown attribute %q", e.Name)
}

// BufferMismatchError is returned when a buffer shape does not match
// the attribute it is set for, e.g. a var-sized attribute without an
// offsets buffer.
type BufferMismatchError struct {
	Name   string
	Reason string
}

func (e *BufferMismatchError) Error() string {
	return fmt.Sprintf("tilego: buffer for %q: %s", e.Name, e.Reason)
}

// translateError normalizes errors from internal packages into the
// root-level error vocabulary so callers can match with errors.Is/As.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, blobstore.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	return err
}
