// Package cache provides a byte-bounded LRU cache.
//
// It keeps recently used decoded fingerprint sequences in memory so that
// refinement does not re-read or re-generate the same recording for every
// candidate chunk. Values must be treated as read-only once cached.
package cache
