package byteslice

import "sync/atomic"

// Option configures a scan.
type Option func(*options)

type options struct {
	prefetchDistance int
	writer           Writer
	earlyStop        bool
	stats            *Stats
}

func newOptions(opts []Option) options {
	o := options{
		prefetchDistance: DefaultPrefetchDistance,
		writer:           PlainWriter,
		earlyStop:        true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithPrefetchDistance sets how many bytes of plane 0 ahead of the current
// batch are hinted to the cache. Zero disables prefetching.
func WithPrefetchDistance(bytes int) Option {
	return func(o *options) {
		if bytes < 0 {
			bytes = 0
		}
		o.prefetchDistance = bytes
	}
}

// WithWriter selects how completed bitmap words are stored.
func WithWriter(w Writer) Option {
	return func(o *options) {
		if w != nil {
			o.writer = w
		}
	}
}

// WithoutEarlyStop forces every byte slice to be evaluated for every batch.
// The result is identical; this exists for verification and measurement.
func WithoutEarlyStop() Option {
	return func(o *options) {
		o.earlyStop = false
	}
}

// WithStats accumulates scan counters into s. A Stats value may be shared by
// concurrent scans.
func WithStats(s *Stats) Option {
	return func(o *options) {
		o.stats = s
	}
}

// Stats counts kernel work. Counters are only added to, once per scan call.
type Stats struct {
	// Batches is the number of Lanes-wide batches evaluated.
	Batches atomic.Int64
	// Refinements is the number of (batch, byte slice) refinement steps
	// after the first slice.
	Refinements atomic.Int64
	// EarlyStops is the number of batches that skipped at least one slice.
	EarlyStops atomic.Int64
	// Words is the number of bitmap words written.
	Words atomic.Int64
}

// Reset zeroes all counters.
func (s *Stats) Reset() {
	s.Batches.Store(0)
	s.Refinements.Store(0)
	s.EarlyStops.Store(0)
	s.Words.Store(0)
}
