// Package posting implements the chunk-level inverted index.
//
// The index is a dense table of 65536 posting bitmaps, one per collapsed
// fingerprint value. Recordings are split into fixed-length chunks that
// overlap their successor by a configurable tail; every chunk receives a
// dense, never reused ID and its collapsed values mark that ID in the
// corresponding bitmaps.
//
// Queries aggregate per-chunk hit counts in a Counter and select the best
// chunks with TopMatches.
//
// An Index is not safe for concurrent mutation. Add must not run concurrently
// with any reader; CountMatches and the accessors may run in parallel.
package posting
