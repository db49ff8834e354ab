package fingerprint

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrNotFound is returned when neither a sidecar nor a generator can
	// provide fingerprints for a recording.
	ErrNotFound = errors.New("fingerprint: recording not found")

	// ErrGenerationFailure wraps errors returned by a Generator.
	ErrGenerationFailure = errors.New("fingerprint: generation failed")

	// ErrInvalidRange is returned for negative or out-of-bounds print ranges.
	ErrInvalidRange = errors.New("fingerprint: invalid range")

	// ErrCorrupt is returned when a sidecar cannot be decoded.
	ErrCorrupt = errors.New("fingerprint: corrupt sidecar")
)

// Source provides the raw fingerprints of a recording.
// Implementations must be deterministic per id and safe for concurrent use.
type Source interface {
	RawFingerprints(ctx context.Context, id string) ([]uint32, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, id string) ([]uint32, error)

// RawFingerprints implements Source.
func (f SourceFunc) RawFingerprints(ctx context.Context, id string) ([]uint32, error) {
	return f(ctx, id)
}

// Generator computes fingerprints from the recording itself, usually by
// decoding and analysing audio. A Generator should return an error wrapping
// ErrNotFound when the recording does not exist.
type Generator interface {
	Generate(ctx context.Context, id string) ([]uint32, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, id string) ([]uint32, error)

// Generate implements Generator.
func (f GeneratorFunc) Generate(ctx context.Context, id string) ([]uint32, error) {
	return f(ctx, id)
}

// MapSource is an in-memory Source, mostly useful in tests.
type MapSource struct {
	mu     sync.RWMutex
	prints map[string][]uint32
}

// NewMapSource creates an empty MapSource.
func NewMapSource() *MapSource {
	return &MapSource{prints: make(map[string][]uint32)}
}

// Set registers the fingerprints of a recording.
func (m *MapSource) Set(id string, prints []uint32) {
	m.mu.Lock()
	m.prints[id] = prints
	m.mu.Unlock()
}

// RawFingerprints implements Source.
func (m *MapSource) RawFingerprints(_ context.Context, id string) ([]uint32, error) {
	m.mu.RLock()
	p, ok := m.prints[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return p, nil
}

// Generate implements Generator, so a MapSource can stand in for an analyser.
func (m *MapSource) Generate(ctx context.Context, id string) ([]uint32, error) {
	return m.RawFingerprints(ctx, id)
}

// Slice returns prints[offset:offset+length] after validating the range.
func Slice(prints []uint32, offset, length int) ([]uint32, error) {
	if offset < 0 || length < 0 || offset+length > len(prints) {
		return nil, fmt.Errorf("%w: offset=%d length=%d prints=%d", ErrInvalidRange, offset, length, len(prints))
	}
	return prints[offset : offset+length], nil
}
