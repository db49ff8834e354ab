package posting

import (
	"errors"
	"fmt"

	"github.com/hupe1980/xcorrsound/internal/bitset"
)

// Values is the number of distinct collapsed fingerprint values.
const Values = 1 << 16

var (
	// ErrInvalidRange is returned for negative or inverted query ranges.
	ErrInvalidRange = errors.New("posting: invalid range")

	// ErrInvalidGeometry is returned for non-positive chunk lengths or negative overlaps.
	ErrInvalidGeometry = errors.New("posting: invalid chunk geometry")
)

// Span describes the chunks owned by one recording.
type Span struct {
	FirstChunk uint32 // FirstChunk is the ID of the recording's first chunk.
	NumChunks  int    // NumChunks is the number of chunks the recording was split into.
	Length     int    // Length is the recording's fingerprint count.
}

// Geometry is the chunking configuration of an index.
type Geometry struct {
	ChunkLength  int
	ChunkOverlap int
}

// Validate checks the geometry.
func (g Geometry) Validate() error {
	if g.ChunkLength <= 0 || g.ChunkOverlap < 0 {
		return fmt.Errorf("%w: length=%d overlap=%d", ErrInvalidGeometry, g.ChunkLength, g.ChunkOverlap)
	}
	return nil
}

// NumChunks returns the number of chunks a sequence of n prints is split into.
func (g Geometry) NumChunks(n int) int {
	return (n + g.ChunkLength - 1) / g.ChunkLength
}

// ChunkBounds returns the print range [start, end) covered by the c-th chunk
// of a sequence of n prints, including the overlap tail.
func (g Geometry) ChunkBounds(c, n int) (start, end int) {
	start = c * g.ChunkLength
	end = min(start+g.ChunkLength+g.ChunkOverlap, n)
	return start, end
}

// Index is the table of 65536 posting bitmaps plus the chunk ownership map.
type Index struct {
	geo      Geometry
	postings [Values]*bitset.BitSet
	capacity int
	owners   []int32
	spans    []Span
}

// New creates an empty index. initialChunks pre-sizes every posting bitmap.
func New(geo Geometry, initialChunks int) (*Index, error) {
	if err := geo.Validate(); err != nil {
		return nil, err
	}

	initialChunks = max(initialChunks, 1)
	x := &Index{geo: geo}
	for v := range x.postings {
		x.postings[v] = bitset.New(initialChunks)
	}
	x.capacity = x.postings[0].Len()

	return x, nil
}

// Geometry returns the chunking configuration.
func (x *Index) Geometry() Geometry { return x.geo }

// Chunks returns the total number of chunks assigned so far.
func (x *Index) Chunks() int { return len(x.owners) }

// Recordings returns the number of recordings added so far.
func (x *Index) Recordings() int { return len(x.spans) }

// Capacity returns the number of chunk IDs every posting bitmap can hold without growing.
func (x *Index) Capacity() int { return x.capacity }

// Span returns the chunk span of the recording in the given slot.
func (x *Index) Span(slot int) Span { return x.spans[slot] }

// Owner returns the recording slot that owns a chunk.
func (x *Index) Owner(chunk uint32) int { return int(x.owners[chunk]) }

// Postings returns the bitmap of chunks containing value.
// The returned bitmap must not be modified.
func (x *Index) Postings(value uint16) *bitset.BitSet {
	return x.postings[value]
}

// Add inserts a collapsed fingerprint sequence as a new recording and returns its slot.
// An empty sequence still gets a slot but owns no chunks.
func (x *Index) Add(collapsed []uint16) int {
	slot := len(x.spans)
	first := uint32(len(x.owners))
	n := x.geo.NumChunks(len(collapsed))

	x.reserve(len(x.owners) + n)

	for c := range n {
		id := uint32(len(x.owners))
		x.owners = append(x.owners, int32(slot))

		start, end := x.geo.ChunkBounds(c, len(collapsed))
		for _, v := range collapsed[start:end] {
			x.postings[v].Set(id)
		}
	}

	x.spans = append(x.spans, Span{
		FirstChunk: first,
		NumChunks:  n,
		Length:     len(collapsed),
	})

	return slot
}

// reserve extends all posting bitmaps in one pass so that Set never reallocates.
func (x *Index) reserve(chunks int) {
	if chunks <= x.capacity {
		return
	}
	for _, p := range x.postings {
		p.Extend(chunks)
	}
	x.capacity = x.postings[0].Len()
}

// MatchArea returns the print range [start, end) of a chunk inside its recording.
// end never exceeds the recording length.
func (x *Index) MatchArea(chunk uint32) (recordingChunk, start, end int) {
	span := x.spans[x.owners[chunk]]
	recordingChunk = int(chunk - span.FirstChunk)
	start, end = x.geo.ChunkBounds(recordingChunk, span.Length)
	return recordingChunk, start, end
}
