package xcorrsound

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// MsPerFingerprint is the time advance of one fingerprint in milliseconds.
const MsPerFingerprint = 11.62

// Hit is one candidate location of a snippet inside an indexed recording.
//
// Positions are fingerprint indexes relative to the start of the recording.
// The refined fields are only set when the hit went through refinement;
// otherwise the offsets are -1 and the scores 0.
type Hit struct {
	Snippet       string // Snippet is the ID of the searched snippet.
	SnippetChunk  int    // SnippetChunk is the sub-chunk of the snippet that produced the hit.
	SnippetOffset int    // SnippetOffset is the first snippet print of that sub-chunk.
	SnippetLength int    // SnippetLength is the number of snippet prints searched.

	Recording      string // Recording is the ID of the matching recording.
	RecordingChunk int    // RecordingChunk is the chunk index inside the recording.
	Chunk          uint32 // Chunk is the global chunk ID inside its shard.
	Shard          int    // Shard is the archive shard, 0 outside archives.

	Matches        int // Matches is the number of snippet prints found in the chunk.
	MaxPossible    int // MaxPossible is the number of snippet prints counted.
	MatchAreaStart int // MatchAreaStart is the first print of the chunk (inclusive).
	MatchAreaEnd   int // MatchAreaEnd is the end of the chunk including overlap (exclusive).

	Refined         bool
	CollapsedScore  float64
	CollapsedOffset int
	RawScore        float64
	RawOffset       int
}

// MatchFraction returns Matches / MaxPossible.
func (h Hit) MatchFraction() float64 {
	if h.MaxPossible == 0 {
		return 0
	}
	return float64(h.Matches) / float64(h.MaxPossible)
}

// MatchAreaStartSeconds returns the start of the match area in seconds.
func (h Hit) MatchAreaStartSeconds() float64 {
	return OffsetToSeconds(h.MatchAreaStart)
}

// BestOffset returns the refined raw offset, or the match area start for
// unrefined hits.
func (h Hit) BestOffset() int {
	if h.Refined && h.RawOffset >= 0 {
		return h.RawOffset
	}
	return h.MatchAreaStart
}

func (h Hit) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hit{recording=%q", h.Recording)
	if h.Refined {
		fmt.Fprintf(&b, ", score(c=[%.2f, %s], r=[%.2f, %s])",
			h.CollapsedScore, FormatOffset(h.CollapsedOffset),
			h.RawScore, FormatOffset(h.RawOffset))
	}
	fmt.Fprintf(&b, ", matches=%d/%d, recordingChunk=%d, matchArea=%s [%d->%d]",
		h.Matches, h.MaxPossible, h.RecordingChunk,
		FormatOffset(h.MatchAreaStart), h.MatchAreaStart, h.MatchAreaEnd)
	fmt.Fprintf(&b, ", snippet=(%q, chunk=%d, offset=%d, length=%d)}",
		h.Snippet, h.SnippetChunk, h.SnippetOffset, h.SnippetLength)
	return b.String()
}

// OffsetToSeconds converts a fingerprint index to seconds.
func OffsetToSeconds(offset int) float64 {
	return float64(offset) * MsPerFingerprint / 1000.0
}

// FormatSeconds renders seconds as HH:MM:SS.f.
func FormatSeconds(seconds float64) string {
	hours := int(seconds / 3600)
	seconds -= float64(hours * 3600)
	minutes := int(seconds / 60)
	seconds -= float64(minutes * 60)
	return fmt.Sprintf("%02d:%02d:%04.1f", hours, minutes, seconds)
}

// FormatOffset renders a fingerprint index as HH:MM:SS.f.
func FormatOffset(offset int) string {
	return FormatSeconds(OffsetToSeconds(offset))
}

// CompareHits orders hits best first: raw score, collapsed score and match
// count descending, then recording chunk, recording ID, shard and match area
// ascending.
func CompareHits(a, b Hit) int {
	if c := cmp.Compare(b.RawScore, a.RawScore); c != 0 {
		return c
	}
	if c := cmp.Compare(b.CollapsedScore, a.CollapsedScore); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Matches, a.Matches); c != 0 {
		return c
	}
	if c := cmp.Compare(a.RecordingChunk, b.RecordingChunk); c != 0 {
		return c
	}
	if c := strings.Compare(a.Recording, b.Recording); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Shard, b.Shard); c != 0 {
		return c
	}
	return cmp.Compare(a.MatchAreaStart, b.MatchAreaStart)
}

// SortHits sorts hits with CompareHits.
func SortHits(hits []Hit) {
	slices.SortStableFunc(hits, CompareHits)
}

type hitKey struct {
	shard     int
	recording string
	offset    int
}

// DedupeHits removes refined hits that point at the same recording offset as
// a hit earlier in the slice. Neighbouring chunks share their overlap, so the
// same match is often refined from two chunks. Unrefined hits are kept.
// The input should be sorted with SortHits; the result reuses its storage.
func DedupeHits(hits []Hit) []Hit {
	seen := make(map[hitKey]struct{}, len(hits))
	out := hits[:0]
	for _, h := range hits {
		if h.Refined && h.RawOffset >= 0 {
			k := hitKey{shard: h.Shard, recording: h.Recording, offset: h.RawOffset}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
		}
		out = append(out, h)
	}
	return out
}
