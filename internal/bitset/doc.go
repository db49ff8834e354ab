// Package bitset provides the growable bit-vector used as a posting list.
//
// Architecture:
//   - Flat []uint64 backing store indexed by chunk ID
//   - Amortized growth: Extend reallocates by at least 1.5x and keeps all set bits
//   - Set auto-extends, so writes past the current capacity never fail
//
// A BitSet is not safe for concurrent mutation. Concurrent readers are fine
// as long as no writer is active.
package bitset
