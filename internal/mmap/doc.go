// Package mmap provides read-only memory-mapped file access.
//
// The local blob store maps fingerprint sidecars and index snapshots instead
// of reading them through kernel buffers, which keeps ranged reads of large
// sidecars cheap.
//
// # Usage
//
//	m, err := mmap.Open("recording.rawPrints")
//	if err != nil { ... }
//	defer m.Close()
//
//	m.Advise(mmap.AccessSequential)
//	data := m.Bytes()
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) with madvise(2) for access hints
//   - Windows: CreateFileMapping/MapViewOfFile (Advise is a no-op)
//
// Callers must not touch Bytes() after Close returns.
package mmap
