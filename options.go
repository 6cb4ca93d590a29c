package tilego

import (
	"github.com/hupe1980/tilego/array"
)

// QueryOption configures a Query.
type QueryOption func(*queryOptions)

type queryOptions struct {
	layout         array.Layout
	logger         *Logger
	metrics        MetricsCollector
	maxConcurrency int
}

func applyQueryOptions(opts ...QueryOption) queryOptions {
	o := queryOptions{
		layout:  array.RowMajor,
		logger:  NoopLogger(),
		metrics: NoopMetricsCollector{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLayout sets the result cell order. Defaults to RowMajor.
func WithLayout(l array.Layout) QueryOption {
	return func(o *queryOptions) {
		o.layout = l
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *Logger) QueryOption {
	return func(o *queryOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetricsCollector sets the metrics collector. Defaults to a no-op
// collector.
func WithMetricsCollector(mc MetricsCollector) QueryOption {
	return func(o *queryOptions) {
		if mc != nil {
			o.metrics = mc
		}
	}
}

// WithMaxConcurrency bounds the number of tiles fetched and attributes
// copied in parallel. Zero keeps the internal default.
func WithMaxConcurrency(n int) QueryOption {
	return func(o *queryOptions) {
		o.maxConcurrency = n
	}
}
