package xcorrsound

import (
	"runtime"
	"time"
)

const (
	// DefaultChunkLength is the number of prints per index chunk (about 10 minutes).
	DefaultChunkLength = 51600

	// DefaultChunkOverlap is the number of prints a chunk extends into the
	// next one (about 10 seconds).
	DefaultChunkOverlap = 1000

	// DefaultInitialChunks is the chunk capacity reserved by New.
	DefaultInitialChunks = 1000

	// DefaultShardTimeout bounds an archive search.
	DefaultShardTimeout = 30 * time.Minute

	// DefaultRefineParallelism bounds concurrent candidate loads during refinement.
	DefaultRefineParallelism = 8
)

// DuplicatePolicy decides what AddRecording does with an ID that is already indexed.
type DuplicatePolicy uint8

const (
	// RejectDuplicates fails with ErrDuplicateRecording.
	RejectDuplicates DuplicatePolicy = iota
	// AllowDuplicates indexes the recording again under new chunk IDs, so its
	// chunks appear twice in results.
	AllowDuplicates
)

func (p DuplicatePolicy) String() string {
	switch p {
	case RejectDuplicates:
		return "reject"
	case AllowDuplicates:
		return "allow"
	default:
		return "unknown"
	}
}

type options struct {
	chunkLength       int
	chunkOverlap      int
	strategy          CollapseStrategy
	initialChunks     int
	logger            *Logger
	metricsCollector  MetricsCollector
	refine            bool
	exhaustive        bool
	duplicates        DuplicatePolicy
	printCacheBytes   int64
	refineParallelism int
}

func defaultOptions() options {
	return options{
		chunkLength:       DefaultChunkLength,
		chunkOverlap:      DefaultChunkOverlap,
		strategy:          DefaultCollapseStrategy,
		initialChunks:     DefaultInitialChunks,
		logger:            NewLogger(nil),
		metricsCollector:  NoopMetricsCollector{},
		refine:            true,
		exhaustive:        false,
		duplicates:        RejectDuplicates,
		refineParallelism: DefaultRefineParallelism,
	}
}

// Option configures a Discovery.
type Option func(*options)

// WithChunkLength sets the number of prints per index chunk.
func WithChunkLength(n int) Option {
	return func(o *options) {
		o.chunkLength = n
	}
}

// WithChunkOverlap sets how many prints a chunk extends into the next.
// It should be at least the print count of the snippets that are searched.
func WithChunkOverlap(n int) Option {
	return func(o *options) {
		o.chunkOverlap = n
	}
}

// WithCollapseStrategy selects the collapse strategy.
func WithCollapseStrategy(s CollapseStrategy) Option {
	return func(o *options) {
		o.strategy = s
	}
}

// WithInitialChunkCount reserves posting capacity for n chunks up front.
func WithInitialChunkCount(n int) Option {
	return func(o *options) {
		o.initialChunks = n
	}
}

// WithLogger sets the logger. If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector sets the metrics collector.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithRefinement enables or disables the Hamming refinement of chunked
// searches. Enabled by default.
func WithRefinement(enabled bool) Option {
	return func(o *options) {
		o.refine = enabled
	}
}

// WithExhaustiveRefinement lets refinement consider alignments where the
// snippet window hangs over the end of the match area.
func WithExhaustiveRefinement(enabled bool) Option {
	return func(o *options) {
		o.exhaustive = enabled
	}
}

// WithDuplicatePolicy sets how repeated recording IDs are handled.
func WithDuplicatePolicy(p DuplicatePolicy) Option {
	return func(o *options) {
		o.duplicates = p
	}
}

// WithPrintCache keeps up to bytes of candidate recording prints in memory
// between refinements. Zero disables the cache.
func WithPrintCache(bytes int64) Option {
	return func(o *options) {
		o.printCacheBytes = bytes
	}
}

// WithRefineParallelism bounds how many candidate recordings are loaded
// concurrently during refinement.
func WithRefineParallelism(n int) Option {
	return func(o *options) {
		if n <= 0 {
			n = runtime.GOMAXPROCS(0)
		}
		o.refineParallelism = n
	}
}

type archiveOptions struct {
	parallelism      int
	shardTimeout     time.Duration
	logger           *Logger
	metricsCollector MetricsCollector
}

func defaultArchiveOptions() archiveOptions {
	return archiveOptions{
		parallelism:      runtime.GOMAXPROCS(0),
		shardTimeout:     DefaultShardTimeout,
		logger:           NewLogger(nil),
		metricsCollector: NoopMetricsCollector{},
	}
}

// ArchiveOption configures an Archive.
type ArchiveOption func(*archiveOptions)

// WithParallelism sets the maximum number of shards searched at once.
// The pool never has more workers than there are shards.
func WithParallelism(n int) ArchiveOption {
	return func(o *archiveOptions) {
		if n <= 0 {
			n = runtime.GOMAXPROCS(0)
		}
		o.parallelism = n
	}
}

// WithShardTimeout bounds an archive search. Shards still running when it
// expires are cancelled and reported with ErrShardTimeout.
func WithShardTimeout(d time.Duration) ArchiveOption {
	return func(o *archiveOptions) {
		o.shardTimeout = d
	}
}

// WithArchiveLogger sets the archive logger.
func WithArchiveLogger(l *Logger) ArchiveOption {
	return func(o *archiveOptions) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithArchiveMetrics sets the archive metrics collector.
func WithArchiveMetrics(mc MetricsCollector) ArchiveOption {
	return func(o *archiveOptions) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}
