package xcorrsound

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordAdd is called after each AddRecording.
	// prints is the number of fingerprints indexed.
	RecordAdd(prints int, duration time.Duration, err error)

	// RecordSearch is called after each search of a Discovery.
	// subChunks is the number of snippet sub-chunks searched, hits the total
	// number of hits returned.
	RecordSearch(subChunks, hits int, duration time.Duration, err error)

	// RecordRefine is called after the candidates of a chunked search were refined.
	RecordRefine(candidates int, duration time.Duration, err error)

	// RecordShard is called once per shard of an archive search.
	RecordShard(shard int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAdd(int, time.Duration, error)         {}
func (NoopMetricsCollector) RecordSearch(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordRefine(int, time.Duration, error)      {}
func (NoopMetricsCollector) RecordShard(int, time.Duration, error)       {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AddCount         atomic.Int64
	AddErrors        atomic.Int64
	AddPrints        atomic.Int64
	SearchCount      atomic.Int64
	SearchErrors     atomic.Int64
	SearchHits       atomic.Int64
	SearchTotalNanos atomic.Int64
	RefineCount      atomic.Int64
	RefineCandidates atomic.Int64
	RefineErrors     atomic.Int64
	ShardCount       atomic.Int64
	ShardErrors      atomic.Int64
}

// RecordAdd implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAdd(prints int, _ time.Duration, err error) {
	b.AddCount.Add(1)
	if err != nil {
		b.AddErrors.Add(1)
		return
	}
	b.AddPrints.Add(int64(prints))
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(_, hits int, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
		return
	}
	b.SearchHits.Add(int64(hits))
}

// RecordRefine implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRefine(candidates int, _ time.Duration, err error) {
	b.RefineCount.Add(1)
	b.RefineCandidates.Add(int64(candidates))
	if err != nil {
		b.RefineErrors.Add(1)
	}
}

// RecordShard implements MetricsCollector.
func (b *BasicMetricsCollector) RecordShard(_ int, _ time.Duration, err error) {
	b.ShardCount.Add(1)
	if err != nil {
		b.ShardErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		AddCount:         b.AddCount.Load(),
		AddErrors:        b.AddErrors.Load(),
		AddPrints:        b.AddPrints.Load(),
		SearchCount:      b.SearchCount.Load(),
		SearchErrors:     b.SearchErrors.Load(),
		SearchHits:       b.SearchHits.Load(),
		SearchAvgNanos:   b.getAvgSearchNanos(),
		RefineCount:      b.RefineCount.Load(),
		RefineCandidates: b.RefineCandidates.Load(),
		RefineErrors:     b.RefineErrors.Load(),
		ShardCount:       b.ShardCount.Load(),
		ShardErrors:      b.ShardErrors.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgSearchNanos() int64 {
	count := b.SearchCount.Load()
	if count == 0 {
		return 0
	}
	return b.SearchTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AddCount         int64
	AddErrors        int64
	AddPrints        int64
	SearchCount      int64
	SearchErrors     int64
	SearchHits       int64
	SearchAvgNanos   int64
	RefineCount      int64
	RefineCandidates int64
	RefineErrors     int64
	ShardCount       int64
	ShardErrors      int64
}
