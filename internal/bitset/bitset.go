package bitset

import (
	"iter"
	"math/bits"
)

const (
	wordBits  = 64
	wordShift = 6
	wordMask  = wordBits - 1
)

// BitSet is a growable bit-vector over an open-ended ID space.
type BitSet struct {
	words []uint64
}

// New creates a BitSet able to hold at least size bits without growing.
func New(size int) *BitSet {
	if size < 0 {
		size = 0
	}
	return &BitSet{words: make([]uint64, wordsFor(size))}
}

// FromWords wraps an existing word slice. The slice is owned by the BitSet afterwards.
func FromWords(words []uint64) *BitSet {
	return &BitSet{words: words}
}

func wordsFor(size int) int {
	return (size + wordMask) >> wordShift
}

// Len returns the current capacity in bits.
func (b *BitSet) Len() int {
	return len(b.words) << wordShift
}

// Extend makes room for at least size bits.
// It reports whether the backing store was reallocated.
func (b *BitSet) Extend(size int) bool {
	need := wordsFor(size)
	if need <= len(b.words) {
		return false
	}

	// Grow by 1.5x to amortize repeated extension during bulk adds.
	newLen := max(need, len(b.words)+len(b.words)/2)

	words := make([]uint64, newLen)
	copy(words, b.words)
	b.words = words

	return true
}

// Set sets the bit at index i, growing the bitset when i is beyond capacity.
func (b *BitSet) Set(i uint32) {
	w := int(i >> wordShift)
	if w >= len(b.words) {
		b.Extend(int(i) + 1)
	}
	b.words[w] |= 1 << (i & wordMask)
}

// Test returns true if the bit at index i is set.
// Indices beyond capacity read as unset.
func (b *BitSet) Test(i uint32) bool {
	w := int(i >> wordShift)
	if w >= len(b.words) {
		return false
	}
	return b.words[w]&(1<<(i&wordMask)) != 0
}

// Count returns the number of set bits.
func (b *BitSet) Count() int {
	count := 0
	for _, w := range b.words {
		if w != 0 {
			count += bits.OnesCount64(w)
		}
	}
	return count
}

// IsEmpty reports whether no bit is set.
func (b *BitSet) IsEmpty() bool {
	for _, w := range b.words {
		if w != 0 {
			return false
		}
	}
	return true
}

// NextSetBit returns the index of the next set bit starting from i (inclusive).
// Returns -1 if no bit is set at or after i.
func (b *BitSet) NextSetBit(i uint32) int64 {
	w := int(i >> wordShift)
	if w >= len(b.words) {
		return -1
	}

	// Mask out bits before i in the first word.
	val := b.words[w] & (^uint64(0) << (i & wordMask))
	for {
		if val != 0 {
			return int64(w)<<wordShift + int64(bits.TrailingZeros64(val))
		}
		w++
		if w >= len(b.words) {
			return -1
		}
		val = b.words[w]
	}
}

// All returns the set bits in ascending order.
// The sequence is lazy and can be ranged over more than once.
func (b *BitSet) All() iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		for w, val := range b.words {
			base := uint32(w) << wordShift
			for val != 0 {
				tz := bits.TrailingZeros64(val)
				if !yield(base + uint32(tz)) {
					return
				}
				val &= val - 1
			}
		}
	}
}

// ForEach calls fn for every set bit in ascending order.
func (b *BitSet) ForEach(fn func(i uint32)) {
	for w, val := range b.words {
		base := uint32(w) << wordShift
		for val != 0 {
			fn(base + uint32(bits.TrailingZeros64(val)))
			val &= val - 1
		}
	}
}

// Words exposes the backing words. Callers must not modify them.
func (b *BitSet) Words() []uint64 {
	return b.words
}

// ClearAll resets every bit without releasing capacity.
func (b *BitSet) ClearAll() {
	clear(b.words)
}
