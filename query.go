package tilego

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/tilego/array"
	"github.com/hupe1980/tilego/fragment"
	"github.com/hupe1980/tilego/internal/engine"
)

// QueryStatus describes the lifecycle state of a Query.
type QueryStatus uint8

const (
	// StatusUninitialized means Submit has not been called yet.
	StatusUninitialized QueryStatus = iota

	// StatusIncomplete means the last Submit filled at least one buffer
	// before the result was exhausted. Drain the buffers and call
	// Submit again to continue where the copy left off.
	StatusIncomplete

	// StatusCompleted means the full result has been delivered.
	StatusCompleted

	// StatusFailed means a Submit returned an error. The query cannot
	// be resubmitted.
	StatusFailed
)

func (s QueryStatus) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusIncomplete:
		return "incomplete"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// CoordsName is the reserved buffer name reporting, for sparse reads,
// the coordinates of the cells delivered alongside attribute values.
const CoordsName = array.CoordsName

// Query reads a slice of an array across its fragments, newest write
// winning per cell. A Query is not safe for concurrent use.
type Query[T array.Coord] struct {
	schema *array.Schema[T]
	eng    *engine.Engine[T]
	opts   queryOptions

	subarray array.Rect[T]

	attrs  map[string]engine.AttrBuffer
	coords []T

	exec    *engine.Execution[T]
	status  QueryStatus
	results map[string]engine.AttrResult
	failure error
}

// NewQuery creates a read query over the given schema and fragments.
// Fragments must carry distinct indexes; a higher index is more recent.
func NewQuery[T array.Coord](schema *array.Schema[T], frags []fragment.Fragment[T], opts ...QueryOption) *Query[T] {
	o := applyQueryOptions(opts...)

	eng := engine.New(schema, frags, engine.Config{
		Logger:         o.logger.Logger,
		Observer:       collectorObserver{mc: o.metrics},
		MaxConcurrency: o.maxConcurrency,
	})

	return &Query[T]{
		schema: schema,
		eng:    eng,
		opts:   o,
		attrs:  make(map[string]engine.AttrBuffer),
		status: StatusUninitialized,
	}
}

// SetSubarray restricts the read to r. The default is the whole
// domain. The subarray cannot change once Submit has been called.
func (q *Query[T]) SetSubarray(r array.Rect[T]) error {
	if q.exec != nil {
		return ErrQueryInProgress
	}
	if err := q.schema.ValidateSubarray(r); err != nil {
		return err
	}
	q.subarray = r
	return nil
}

// SetBuffer sets the result buffer for a fixed-sized attribute.
// The buffer is refilled from the start on every Submit.
func (q *Query[T]) SetBuffer(name string, values []byte) error {
	attr, ok := q.schema.Attribute(name)
	if !ok {
		return &UnknownAttributeError{Name: name}
	}
	if attr.Var() {
		return &BufferMismatchError{Name: name, Reason: "var-sized attribute requires an offsets buffer"}
	}
	q.attrs[name] = engine.AttrBuffer{Values: values}
	return nil
}

// SetBufferVar sets the offsets and values buffers for a var-sized
// attribute. Offsets are rebased to the start of values on each Submit.
func (q *Query[T]) SetBufferVar(name string, offsets []uint64, values []byte) error {
	attr, ok := q.schema.Attribute(name)
	if !ok {
		return &UnknownAttributeError{Name: name}
	}
	if !attr.Var() {
		return &BufferMismatchError{Name: name, Reason: "fixed-sized attribute takes no offsets buffer"}
	}
	q.attrs[name] = engine.AttrBuffer{Values: values, Offsets: offsets}
	return nil
}

// SetCoordsBuffer requests the coordinates of delivered cells. Only
// sparse reads materialize coordinates.
func (q *Query[T]) SetCoordsBuffer(buf []T) error {
	if q.schema.Dense() {
		return &BufferMismatchError{Name: CoordsName, Reason: "dense reads do not materialize coordinates"}
	}
	q.coords = buf
	return nil
}

// Submit plans the read on first call and copies result cells into the
// registered buffers. When a buffer fills mid-result the query status
// becomes StatusIncomplete; a later Submit resumes at the exact cell
// where the copy stopped, after the caller drains the buffers.
func (q *Query[T]) Submit(ctx context.Context) error {
	if q.status == StatusFailed {
		return fmt.Errorf("%w: %w", ErrQueryFailed, q.failure)
	}
	if len(q.attrs) == 0 && q.coords == nil {
		return ErrNoBuffers
	}

	start := time.Now()
	err := q.submit(ctx)
	dur := time.Since(start)

	q.opts.metrics.RecordSubmit(dur, err)
	q.opts.logger.LogSubmit(ctx, q.status, dur, err)

	return err
}

func (q *Query[T]) submit(ctx context.Context) error {
	if q.exec == nil {
		ex, err := q.eng.Plan(ctx, q.opts.layout, q.subarray)
		if err != nil {
			return q.fail(err)
		}
		q.exec = ex
	}

	results, err := q.exec.Copy(ctx, engine.CopyRequest[T]{
		Attrs:  q.attrs,
		Coords: q.coords,
	})
	if err != nil {
		return q.fail(err)
	}

	q.results = results
	if q.exec.Done() {
		q.status = StatusCompleted
	} else {
		q.status = StatusIncomplete
	}
	return nil
}

func (q *Query[T]) fail(err error) error {
	err = translateError(err)
	q.status = StatusFailed
	q.failure = err
	return err
}

// Status returns the query state after the last Submit.
func (q *Query[T]) Status() QueryStatus { return q.status }

// Overflow reports whether the named buffer filled before the result
// was exhausted on the last Submit.
func (q *Query[T]) Overflow(name string) bool {
	return q.results[name].Overflow
}

// BytesWritten returns the number of value bytes the last Submit wrote
// into the named buffer. Use CoordsName for the coordinates buffer.
func (q *Query[T]) BytesWritten(name string) int {
	return q.results[name].BytesWritten
}

// OffsetsWritten returns the number of offsets the last Submit wrote
// for a var-sized attribute.
func (q *Query[T]) OffsetsWritten(name string) int {
	return q.results[name].OffsetsWritten
}
