// Package testutil provides testing utilities for xcorrsound.
//
// This package is intended for use in tests and benchmarks only.
// It provides deterministic fingerprint generators and helpers that treat
// strings as fingerprint sequences, one character per print.
//
// # Random Fingerprints
//
//	rng := testutil.NewRNG(seed)
//	rec := rng.Prints(50000)                  // uniform 32-bit prints
//	snip := rng.Distort(rec[1000:1300], 2)    // flip 2 bits per print
//
// # Character Sequences
//
//	prints := testutil.Chars("abcabd")        // []uint32{'a', 'b', 'c', 'a', 'b', 'd'}
package testutil
