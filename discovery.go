package xcorrsound

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/xcorrsound/internal/cache"
	"github.com/hupe1980/xcorrsound/internal/collapse"
	"github.com/hupe1980/xcorrsound/internal/posting"
	"github.com/hupe1980/xcorrsound/internal/score"
)

const (
	collapsedBits = 16
	rawBits       = 32
)

// Discovery indexes recordings and finds snippets in them.
//
// Searches may run concurrently with each other. AddRecording is serialised
// against everything else.
type Discovery struct {
	mu         sync.RWMutex
	opts       options
	collapsor  collapse.Collapsor
	index      *posting.Index
	recordings []Recording
	slots      map[string][]int
	prints     int64
	printCache *cache.LRU[int, []uint32] // keyed by recording slot
}

// ChunkedQuery parameterises FindCandidatesChunked.
type ChunkedQuery struct {
	// TopX is the maximum number of hits per snippet sub-chunk.
	TopX int
	// PreSkip is the number of prints ignored at the start of the snippet.
	PreSkip int
	// PostSkip is the number of prints ignored at the end of the snippet.
	PostSkip int
	// ChunkLength is the step between snippet sub-chunks.
	ChunkLength int
	// ChunkOverlap is how far each sub-chunk extends into the next.
	ChunkOverlap int
}

func (q ChunkedQuery) validate() error {
	switch {
	case q.TopX < 0:
		return fmt.Errorf("%w: topX %d", ErrInvalidArgument, q.TopX)
	case q.PreSkip < 0 || q.PostSkip < 0:
		return &RangeError{What: "skip", Start: q.PreSkip, End: q.PostSkip}
	case q.ChunkLength <= 0 || q.ChunkOverlap < 0:
		return &RangeError{What: "snippet chunk", Start: q.ChunkLength, End: q.ChunkLength + q.ChunkOverlap}
	}
	return nil
}

// Stats describes the content of a Discovery.
type Stats struct {
	Recordings    int
	Chunks        int
	ChunkCapacity int
	Fingerprints  int64
	Strategy      CollapseStrategy
	ChunkLength   int
	ChunkOverlap  int
}

// New creates an empty Discovery.
func New(optFns ...Option) (*Discovery, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return newDiscovery(opts, nil)
}

func newDiscovery(opts options, idx *posting.Index) (*Discovery, error) {
	c, err := collapse.New(opts.strategy)
	if err != nil {
		return nil, translateError(err)
	}
	if opts.initialChunks < 0 {
		return nil, fmt.Errorf("%w: initial chunk count %d", ErrInvalidArgument, opts.initialChunks)
	}

	if idx == nil {
		geo := posting.Geometry{ChunkLength: opts.chunkLength, ChunkOverlap: opts.chunkOverlap}
		if idx, err = posting.New(geo, opts.initialChunks); err != nil {
			return nil, translateError(err)
		}
	}

	d := &Discovery{
		opts:      opts,
		collapsor: c,
		index:     idx,
		slots:     make(map[string][]int),
	}
	if opts.printCacheBytes > 0 {
		d.printCache = cache.NewLRU[int](opts.printCacheBytes, func(p []uint32) int64 { return int64(len(p)) * 4 })
	}
	return d, nil
}

// Strategy returns the collapse strategy.
func (d *Discovery) Strategy() CollapseStrategy { return d.collapsor.Strategy() }

// ChunkLength returns the number of prints per index chunk.
func (d *Discovery) ChunkLength() int { return d.index.Geometry().ChunkLength }

// ChunkOverlap returns the overlap of index chunks.
func (d *Discovery) ChunkOverlap() int { return d.index.Geometry().ChunkOverlap }

// Contains reports whether a recording with the ID has been added.
func (d *Discovery) Contains(id string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.slots[id]) > 0
}

// Recording returns the first recording added under id.
func (d *Discovery) Recording(id string) (Recording, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s := d.slots[id]
	if len(s) == 0 {
		return nil, false
	}
	return d.recordings[s[0]], true
}

// Stats returns a summary of the index.
func (d *Discovery) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	geo := d.index.Geometry()
	return Stats{
		Recordings:    d.index.Recordings(),
		Chunks:        d.index.Chunks(),
		ChunkCapacity: d.index.Capacity(),
		Fingerprints:  d.prints,
		Strategy:      d.collapsor.Strategy(),
		ChunkLength:   geo.ChunkLength,
		ChunkOverlap:  geo.ChunkOverlap,
	}
}

// MatchingChunks returns the IDs of all chunks containing the collapsed value.
func (d *Discovery) MatchingChunks(value uint16) []uint32 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Collect(d.index.Postings(value).All())
}

// Collapse returns the collapsed form of raw prints under the configured strategy.
func (d *Discovery) Collapse(raw []uint32) []uint16 {
	return d.collapsor.CollapseAll(nil, raw)
}

// AddRecording fetches the fingerprints of rec and indexes them.
func (d *Discovery) AddRecording(ctx context.Context, rec Recording) error {
	if rec == nil {
		return fmt.Errorf("%w: nil recording", ErrInvalidArgument)
	}
	if d.opts.duplicates == RejectDuplicates && d.Contains(rec.ID()) {
		return fmt.Errorf("%w: %s", ErrDuplicateRecording, rec.ID())
	}

	start := time.Now()
	prints, err := rec.RawPrints(ctx)
	if err != nil {
		err = translateError(err)
		d.opts.metricsCollector.RecordAdd(0, time.Since(start), err)
		d.opts.logger.LogAdd(ctx, rec.ID(), 0, 0, err)
		return err
	}
	return d.add(ctx, rec, prints, start)
}

// AddRecordings adds several recordings. Fingerprints are fetched concurrently,
// bounded by the refine parallelism; recordings are indexed in argument order.
// The first failure stops the batch; recordings before it stay indexed.
func (d *Discovery) AddRecordings(ctx context.Context, recs ...Recording) error {
	for i, rec := range recs {
		if rec == nil {
			return fmt.Errorf("%w: nil recording at %d", ErrInvalidArgument, i)
		}
	}

	prints := make([][]uint32, len(recs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.refineParallelism)
	for i, rec := range recs {
		g.Go(func() error {
			p, err := rec.RawPrints(gctx)
			if err != nil {
				return fmt.Errorf("%s: %w", rec.ID(), translateError(err))
			}
			prints[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, rec := range recs {
		if d.opts.duplicates == RejectDuplicates && d.Contains(rec.ID()) {
			return fmt.Errorf("%w: %s", ErrDuplicateRecording, rec.ID())
		}
		if err := d.add(ctx, rec, prints[i], time.Now()); err != nil {
			return err
		}
	}
	return nil
}

func (d *Discovery) add(ctx context.Context, rec Recording, prints []uint32, start time.Time) error {
	collapsed := d.collapsor.CollapseAll(nil, prints)

	chunks, err := func() (int, error) {
		d.mu.Lock()
		defer d.mu.Unlock()

		if d.opts.duplicates == RejectDuplicates && len(d.slots[rec.ID()]) > 0 {
			return 0, fmt.Errorf("%w: %s", ErrDuplicateRecording, rec.ID())
		}

		slot := d.index.Add(collapsed)
		d.recordings = append(d.recordings, rec)
		d.slots[rec.ID()] = append(d.slots[rec.ID()], slot)
		d.prints += int64(len(prints))
		return d.index.Span(slot).NumChunks, nil
	}()

	d.opts.metricsCollector.RecordAdd(len(prints), time.Since(start), err)
	d.opts.logger.LogAdd(ctx, rec.ID(), len(prints), chunks, err)
	return err
}

// FindCandidates searches the whole snippet in one coarse pass and returns up
// to topX hits ordered by descending match count. No refinement is done.
func (d *Discovery) FindCandidates(ctx context.Context, snippet Recording, topX int) ([]Hit, error) {
	raw, err := snippet.RawPrints(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	return d.FindCandidatesPrints(ctx, snippet.ID(), raw, topX)
}

// FindCandidatesPrints is FindCandidates for a snippet given as raw prints.
func (d *Discovery) FindCandidatesPrints(ctx context.Context, snippetID string, raw []uint32, topX int) (hits []Hit, err error) {
	start := time.Now()
	defer func() {
		d.opts.metricsCollector.RecordSearch(1, len(hits), time.Since(start), err)
		d.opts.logger.LogSearch(ctx, snippetID, len(raw), 1, len(hits), time.Since(start), err)
	}()

	if topX < 0 {
		return nil, fmt.Errorf("%w: topX %d", ErrInvalidArgument, topX)
	}

	collapsed := d.collapsor.CollapseAll(nil, raw)
	if overlap := d.ChunkOverlap(); len(collapsed) > overlap {
		d.opts.logger.LogOverlapRisk(ctx, len(collapsed), overlap)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	c, err := d.index.CountMatches(collapsed, 0, len(collapsed))
	if err != nil {
		return nil, translateError(err)
	}
	hits = d.toHits(c.TopMatches(topX), snippetID, 0, 0, len(collapsed), nil)
	return hits, nil
}

// FindCandidatesChunked trims the snippet by q.PreSkip and q.PostSkip, splits
// the rest into sub-chunks and searches each of them. Candidates are refined
// unless refinement is disabled. The result holds one hit list per sub-chunk,
// in snippet order.
//
// If the skips cover the whole snippet the result is empty.
func (d *Discovery) FindCandidatesChunked(ctx context.Context, snippet Recording, q ChunkedQuery) ([][]Hit, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	raw, err := snippet.RawPrints(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	return d.FindCandidatesChunkedPrints(ctx, snippet.ID(), raw, q)
}

// FindCandidatesChunkedPrints is FindCandidatesChunked for a snippet given as raw prints.
func (d *Discovery) FindCandidatesChunkedPrints(ctx context.Context, snippetID string, raw []uint32, q ChunkedQuery) ([][]Hit, error) {
	return d.searchChunked(ctx, snippetID, raw, q, 0)
}

func (d *Discovery) searchChunked(ctx context.Context, snippetID string, raw []uint32, q ChunkedQuery, shard int) (lists [][]Hit, err error) {
	start := time.Now()
	subChunks, total := 0, 0
	defer func() {
		d.opts.metricsCollector.RecordSearch(subChunks, total, time.Since(start), err)
		d.opts.logger.LogSearch(ctx, snippetID, len(raw), subChunks, total, time.Since(start), err)
	}()

	if err := q.validate(); err != nil {
		return nil, err
	}

	n := len(raw)
	if q.PreSkip+q.PostSkip >= n {
		d.opts.logger.LogEmptySnippet(ctx, snippetID, n, q.PreSkip, q.PostSkip)
		return [][]Hit{}, nil
	}

	collapsed := d.collapsor.CollapseAll(nil, raw)
	end := n - q.PostSkip
	usable := end - q.PreSkip
	subChunks = (usable + q.ChunkLength - 1) / q.ChunkLength

	if window, overlap := min(q.ChunkLength+q.ChunkOverlap, usable), d.ChunkOverlap(); window > overlap {
		d.opts.logger.LogOverlapRisk(ctx, window, overlap)
	}

	lists = make([][]Hit, subChunks)
	cands := newCandidates()

	err = func() error {
		d.mu.RLock()
		defer d.mu.RUnlock()

		for c := range subChunks {
			if err := ctx.Err(); err != nil {
				return err
			}
			snipStart := q.PreSkip + c*q.ChunkLength
			snipEnd := min(snipStart+q.ChunkLength+q.ChunkOverlap, end)

			counter, err := d.index.CountMatches(collapsed, snipStart, snipEnd)
			if err != nil {
				return translateError(err)
			}
			lists[c] = d.toHits(counter.TopMatches(q.TopX), snippetID, c, snipStart, snipEnd-snipStart, cands)
		}
		return nil
	}()
	if err != nil {
		return nil, err
	}

	for i := range lists {
		for j := range lists[i] {
			lists[i][j].Shard = shard
		}
	}

	if d.opts.refine {
		if err := d.refine(ctx, raw, collapsed, lists, cands); err != nil {
			return nil, err
		}
		for i := range lists {
			SortHits(lists[i])
			lists[i] = DedupeHits(lists[i])
		}
	}

	for _, l := range lists {
		total += len(l)
	}
	return lists, nil
}

// toHits converts candidates to hits. Callers hold the read lock.
// Owning recordings are collected in set when it is not nil.
func (d *Discovery) toHits(cands []posting.Candidate, snippetID string, snippetChunk, snippetOffset, snippetLength int, set *candidates) []Hit {
	hits := make([]Hit, 0, len(cands))
	for _, c := range cands {
		rec := d.recordings[c.Slot]
		if set != nil {
			set.add(c.Chunk, c.Slot, rec)
		}
		hits = append(hits, Hit{
			Snippet:         snippetID,
			SnippetChunk:    snippetChunk,
			SnippetOffset:   snippetOffset,
			SnippetLength:   snippetLength,
			Recording:       rec.ID(),
			RecordingChunk:  c.RecordingChunk,
			Chunk:           c.Chunk,
			Matches:         c.Matches,
			MaxPossible:     c.MaxPossible,
			MatchAreaStart:  c.AreaStart,
			MatchAreaEnd:    c.AreaEnd,
			CollapsedOffset: -1,
			RawOffset:       -1,
		})
	}
	return hits
}

// candidates tracks the recordings behind the hits of one search by slot,
// so recordings sharing an ID are refined against their own prints.
type candidates struct {
	recs   map[int]Recording
	owners map[uint32]int
}

func newCandidates() *candidates {
	return &candidates{recs: make(map[int]Recording), owners: make(map[uint32]int)}
}

func (c *candidates) add(chunk uint32, slot int, rec Recording) {
	c.recs[slot] = rec
	c.owners[chunk] = slot
}

type refinePrints struct {
	raw       []uint32
	collapsed []uint16
}

// refine scores every hit against the exact match area of its recording,
// on both the collapsed and the raw prints.
func (d *Discovery) refine(ctx context.Context, raw []uint32, collapsed []uint16, lists [][]Hit, cands *candidates) (err error) {
	start := time.Now()
	candidates := 0
	for _, l := range lists {
		candidates += len(l)
	}
	defer func() {
		d.opts.metricsCollector.RecordRefine(candidates, time.Since(start), err)
	}()

	if candidates == 0 {
		return nil
	}

	loaded, err := d.loadRecordings(ctx, cands.recs)
	if err != nil {
		return err
	}

	for i := range lists {
		for j := range lists[i] {
			h := &lists[i][j]
			p := loaded[cands.owners[h.Chunk]]
			snipEnd := h.SnippetOffset + h.SnippetLength

			cm, err := score.FindBestMatch(collapsed, h.SnippetOffset, snipEnd, p.collapsed, h.MatchAreaStart, h.MatchAreaEnd, collapsedBits, d.opts.exhaustive)
			if err != nil {
				return translateError(err)
			}
			rm, err := score.FindBestMatch(raw, h.SnippetOffset, snipEnd, p.raw, h.MatchAreaStart, h.MatchAreaEnd, rawBits, d.opts.exhaustive)
			if err != nil {
				return translateError(err)
			}

			h.Refined = true
			h.CollapsedScore, h.CollapsedOffset = cm.Score, cm.Offset
			h.RawScore, h.RawOffset = rm.Score, rm.Offset
		}
	}
	return nil
}

// loadRecordings fetches the prints of the candidate recordings concurrently.
func (d *Discovery) loadRecordings(ctx context.Context, recs map[int]Recording) (map[int]refinePrints, error) {
	out := make(map[int]refinePrints, len(recs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.refineParallelism)
	for slot, rec := range recs {
		g.Go(func() error {
			raw, err := d.recordingPrints(gctx, slot, rec)
			if err != nil {
				return fmt.Errorf("load %s: %w", rec.ID(), err)
			}
			p := refinePrints{raw: raw, collapsed: d.collapsor.CollapseAll(nil, raw)}

			mu.Lock()
			out[slot] = p
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *Discovery) recordingPrints(ctx context.Context, slot int, rec Recording) ([]uint32, error) {
	if d.printCache != nil {
		if p, ok := d.printCache.Get(slot); ok {
			return p, nil
		}
	}
	p, err := rec.RawPrints(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	if d.printCache != nil {
		d.printCache.Set(slot, p)
	}
	return p, nil
}
