package testutil

import (
	"math/rand"
	"sync"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Prints returns n uniformly distributed 32-bit fingerprints.
func (r *RNG) Prints(n int) []uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]uint32, n)
	for i := range out {
		out[i] = r.rand.Uint32()
	}
	return out
}

// Recordings returns count independent fingerprint sequences of n prints.
func (r *RNG) Recordings(count, n int) [][]uint32 {
	out := make([][]uint32, count)
	for i := range out {
		out[i] = r.Prints(n)
	}
	return out
}

// Distort returns a copy of prints with flips randomly chosen bits inverted
// in every print. The same bit may be chosen twice.
func (r *RNG) Distort(prints []uint32, flips int) []uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]uint32, len(prints))
	for i, p := range prints {
		for range flips {
			p ^= 1 << r.rand.Intn(32)
		}
		out[i] = p
	}
	return out
}

// Chars returns the characters of s as fingerprints.
func Chars(s string) []uint32 {
	out := make([]uint32, 0, len(s))
	for _, c := range s {
		out = append(out, uint32(c))
	}
	return out
}

// Chars16 returns the characters of s as collapsed fingerprints.
func Chars16(s string) []uint16 {
	out := make([]uint16, 0, len(s))
	for _, c := range s {
		out = append(out, uint16(c))
	}
	return out
}

// Invert returns prints with every bit flipped.
func Invert(prints []uint32) []uint32 {
	out := make([]uint32, len(prints))
	for i, p := range prints {
		out[i] = ^p
	}
	return out
}
