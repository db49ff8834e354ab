package posting

import (
	"fmt"
	"sync"

	"github.com/hupe1980/xcorrsound/internal/bitset"
	"github.com/hupe1980/xcorrsound/internal/queue"
)

// histogram counts collapsed values of one query range.
type histogram struct {
	counts   [Values]uint32
	distinct []uint16
}

var histogramPool = sync.Pool{
	New: func() any { return &histogram{distinct: make([]uint16, 0, 256)} },
}

// Counter accumulates per-chunk match counts for one query.
type Counter struct {
	x           *Index
	counts      []uint32
	maxPossible int
}

// NewCounter creates a counter sized to the index's current chunk count.
func (x *Index) NewCounter() *Counter {
	return &Counter{
		x:      x,
		counts: make([]uint32, len(x.owners)),
	}
}

// CountMatches counts, for every chunk, how many prints of collapsed[start:end]
// occur in it. end is clamped to the sequence length.
//
// Each distinct value walks its posting bitmap once and adds its occurrence
// count, so repeated values in the query do not repeat the bitmap walk.
func (x *Index) CountMatches(collapsed []uint16, start, end int) (*Counter, error) {
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: [%d, %d)", ErrInvalidRange, start, end)
	}
	end = min(end, len(collapsed))
	start = min(start, end)

	c := x.NewCounter()
	c.maxPossible = end - start

	h := histogramPool.Get().(*histogram)
	for _, v := range collapsed[start:end] {
		if h.counts[v] == 0 {
			h.distinct = append(h.distinct, v)
		}
		h.counts[v]++
	}

	for _, v := range h.distinct {
		c.Add(x.postings[v], h.counts[v])
		h.counts[v] = 0
	}
	h.distinct = h.distinct[:0]
	histogramPool.Put(h)

	return c, nil
}

// Add adds delta to the counter of every chunk set in b.
// Chunks beyond the counter's size are ignored.
func (c *Counter) Add(b *bitset.BitSet, delta uint32) {
	counts := c.counts
	for id := range b.All() {
		if int(id) >= len(counts) {
			return
		}
		counts[id] += delta
	}
}

// Count returns the match count of a chunk.
func (c *Counter) Count(chunk uint32) uint32 {
	if int(chunk) >= len(c.counts) {
		return 0
	}
	return c.counts[chunk]
}

// Len returns the number of chunks the counter covers.
func (c *Counter) Len() int { return len(c.counts) }

// MaxPossible returns the number of query prints that were counted.
func (c *Counter) MaxPossible() int { return c.maxPossible }

// Candidate is a coarse match: one chunk with its count and match area.
type Candidate struct {
	Slot           int    // Slot identifies the owning recording inside the index.
	Chunk          uint32 // Chunk is the global chunk ID.
	RecordingChunk int    // RecordingChunk is the chunk index inside the recording.
	Matches        int    // Matches is the raw hit count.
	MaxPossible    int    // MaxPossible is the number of query prints counted.
	AreaStart      int    // AreaStart is the first print of the chunk (inclusive).
	AreaEnd        int    // AreaEnd is the end of the chunk including overlap (exclusive).
}

// TopMatches returns up to topX chunks ordered by descending count, ties broken
// by ascending chunk ID. Chunks with zero matches are never returned.
func (c *Counter) TopMatches(topX int) []Candidate {
	if topX <= 0 {
		return nil
	}

	q := queue.NewTopK(topX)
	for id, n := range c.counts {
		if n == 0 {
			continue
		}
		q.Push(queue.Item{Chunk: uint32(id), Count: n})
	}

	items := q.Sorted()
	out := make([]Candidate, 0, len(items))
	for _, it := range items {
		rc, start, end := c.x.MatchArea(it.Chunk)
		out = append(out, Candidate{
			Slot:           c.x.Owner(it.Chunk),
			Chunk:          it.Chunk,
			RecordingChunk: rc,
			Matches:        int(it.Count),
			MaxPossible:    c.maxPossible,
			AreaStart:      start,
			AreaEnd:        end,
		})
	}
	return out
}
