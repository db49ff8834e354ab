package xcorrsound

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/hupe1980/xcorrsound/internal/workerpool"
)

// Archive searches several independent Discovery shards in parallel.
//
// Shards are searched by a fixed pool of min(shards, parallelism) workers.
// A search waits for all shards or until the shard timeout expires; shards
// still running are cancelled and their output is dropped.
type Archive struct {
	shards []*Discovery
	pool   *workerpool.Pool
	opts   archiveOptions
	closed atomic.Bool
}

// ArchiveResult is the merged outcome of an archive search.
type ArchiveResult struct {
	// Hits holds one ranked list per snippet sub-chunk.
	Hits [][]Hit
	// Failures lists the shards that failed or timed out, ordered by shard.
	Failures []*ShardError
}

// Err joins the shard failures, or returns nil if every shard succeeded.
func (r *ArchiveResult) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// NewArchive creates an archive over the given shards.
func NewArchive(shards []*Discovery, optFns ...ArchiveOption) (*Archive, error) {
	if len(shards) == 0 {
		return nil, fmt.Errorf("%w: archive needs at least one shard", ErrInvalidArgument)
	}
	for i, s := range shards {
		if s == nil {
			return nil, fmt.Errorf("%w: shard %d is nil", ErrInvalidArgument, i)
		}
	}

	opts := defaultArchiveOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.shardTimeout <= 0 {
		return nil, fmt.Errorf("%w: shard timeout %s", ErrInvalidArgument, opts.shardTimeout)
	}

	return &Archive{
		shards: shards,
		pool:   workerpool.New(min(len(shards), opts.parallelism)),
		opts:   opts,
	}, nil
}

// Shards returns the number of shards.
func (a *Archive) Shards() int { return len(a.shards) }

// Workers returns the size of the worker pool.
func (a *Archive) Workers() int { return a.pool.Size() }

// Shard returns the i-th shard.
func (a *Archive) Shard(i int) *Discovery { return a.shards[i] }

// Close stops the worker pool. Running searches finish first.
func (a *Archive) Close() error {
	if a.closed.CompareAndSwap(false, true) {
		a.pool.Close()
	}
	return nil
}

type shardResult struct {
	shard int
	lists [][]Hit
	err   error
}

// Search fetches the snippet prints once and runs a chunked search on every
// shard. Per sub-chunk, the shard lists are merged, ranked, de-duplicated and
// cut to q.TopX.
//
// Shard failures never abort the search; they are reported in the result.
// An error is returned only for invalid queries, a snippet whose prints
// cannot be loaded, or a closed archive.
func (a *Archive) Search(ctx context.Context, snippet Recording, q ChunkedQuery) (*ArchiveResult, error) {
	if a.closed.Load() {
		return nil, ErrClosed
	}
	if err := q.validate(); err != nil {
		return nil, err
	}

	raw, err := snippet.RawPrints(ctx)
	if err != nil {
		return nil, translateError(err)
	}

	ctx, cancel := context.WithTimeout(ctx, a.opts.shardTimeout)
	defer cancel()

	// Buffered so that late shards never block after the search gave up on them.
	results := make(chan shardResult, len(a.shards))
	started := make([]time.Time, len(a.shards))
	reported := make([]bool, len(a.shards))
	pending := len(a.shards)

	var failures []*ShardError
	fail := func(shard int, err error) {
		se := &ShardError{Shard: shard, Err: err}
		failures = append(failures, se)
		a.opts.metricsCollector.RecordShard(shard, time.Since(started[shard]), err)
		a.opts.logger.LogShardFailure(ctx, shard, err)
	}

	for i, shard := range a.shards {
		started[i] = time.Now()
		err := a.pool.Submit(ctx, func() {
			lists, err := shard.searchChunked(ctx, snippet.ID(), raw, q, i)
			results <- shardResult{shard: i, lists: lists, err: err}
		})
		if err != nil {
			if errors.Is(err, workerpool.ErrClosed) {
				err = ErrClosed
			} else if ctx.Err() != nil {
				err = fmt.Errorf("%w: %w", ErrShardTimeout, err)
			}
			reported[i] = true
			pending--
			fail(i, err)
		}
	}

	perShard := make([][][]Hit, len(a.shards))
	timedOut := false
	for pending > 0 && !timedOut {
		select {
		case r := <-results:
			pending--
			reported[r.shard] = true
			if r.err != nil {
				fail(r.shard, r.err)
				continue
			}
			perShard[r.shard] = r.lists
			a.opts.metricsCollector.RecordShard(r.shard, time.Since(started[r.shard]), nil)
		case <-ctx.Done():
			timedOut = true
		}
	}

	if timedOut {
		for i, ok := range reported {
			if !ok {
				fail(i, ErrShardTimeout)
			}
		}
	}

	slices.SortFunc(failures, func(a, b *ShardError) int { return cmp.Compare(a.Shard, b.Shard) })
	return &ArchiveResult{
		Hits:     mergeShardHits(perShard, q.TopX),
		Failures: failures,
	}, nil
}

// mergeShardHits combines the per-shard hit lists of every sub-chunk.
func mergeShardHits(perShard [][][]Hit, topX int) [][]Hit {
	subChunks := 0
	for _, lists := range perShard {
		subChunks = max(subChunks, len(lists))
	}

	merged := make([][]Hit, subChunks)
	for c := range merged {
		var hits []Hit
		for _, lists := range perShard {
			if c < len(lists) {
				hits = append(hits, lists[c]...)
			}
		}
		SortHits(hits)
		hits = DedupeHits(hits)
		if len(hits) > topX {
			hits = hits[:topX]
		}
		merged[c] = hits
	}
	return merged
}
