// Package score implements sliding-window Hamming refinement of coarse matches.
package score

import (
	"errors"
	"fmt"
	"math/bits"
)

// ErrInvalidRange is returned for negative window starts or a non-positive bit width.
var ErrInvalidRange = errors.New("score: invalid range")

// Print is a fingerprint word: a collapsed 16-bit or a raw 32-bit value.
type Print interface {
	~uint16 | ~uint32
}

// Match is the best alignment found by FindBestMatch.
type Match struct {
	Offset int     // Offset is the start position in the recording.
	Score  float64 // Score is 1 - mismatched bits / compared bits, in [0, 1].
}

// FindBestMatch slides snippet[snipStart:snipEnd] over recording[recStart:recEnd]
// one position at a time and returns the alignment with the fewest differing bits.
//
// Only the low significantBits of every print are compared. End positions are
// clamped to the slice lengths. If exhaustive is false, only alignments where the
// whole snippet window fits inside the recording window are considered; if true,
// alignments continue until a single print overlaps. When the overlap is shorter
// than the snippet window, the score is computed over the overlap only.
//
// An empty snippet or recording window yields Match{Offset: recStart, Score: 0}.
func FindBestMatch[T Print](snippet []T, snipStart, snipEnd int, recording []T, recStart, recEnd int, significantBits int, exhaustive bool) (Match, error) {
	if snipStart < 0 || recStart < 0 {
		return Match{}, fmt.Errorf("%w: negative start (snippet %d, recording %d)", ErrInvalidRange, snipStart, recStart)
	}
	if significantBits <= 0 {
		return Match{}, fmt.Errorf("%w: significant bits %d", ErrInvalidRange, significantBits)
	}

	snipEnd = min(snipEnd, len(snippet))
	recEnd = min(recEnd, len(recording))

	windowLen := snipEnd - snipStart
	if windowLen <= 0 || recEnd <= recStart {
		return Match{Offset: recStart, Score: 0}, nil
	}

	mask := ^uint32(0)
	if significantBits < 32 {
		mask = 1<<significantBits - 1
	}

	last := recEnd - windowLen
	if exhaustive {
		last = recEnd - 1
	}
	last = max(last, recStart)

	window := snippet[snipStart:snipEnd]
	best := Match{Offset: recStart, Score: -1}
	for s := recStart; s <= last; s++ {
		n := min(windowLen, recEnd-s)

		mismatched := 0
		for i, p := range recording[s : s+n] {
			mismatched += bits.OnesCount32((uint32(window[i]) ^ uint32(p)) & mask)
		}

		score := 1 - float64(mismatched)/float64(n*significantBits)
		if score > best.Score {
			best = Match{Offset: s, Score: score}
		}
	}

	return best, nil
}
