package xcorrsound

import (
	"context"
	"fmt"

	"github.com/hupe1980/xcorrsound/blobstore"
	"github.com/hupe1980/xcorrsound/fingerprint"
)

// Kind tags the variant of a Recording.
type Kind uint8

const (
	// KindMemory holds its fingerprints in memory.
	KindMemory Kind = iota
	// KindSource resolves its fingerprints through a fingerprint.Source,
	// typically a fingerprint.Handler keyed by the recording path.
	KindSource
	// KindPrinted reads a slice of a precomputed fingerprint blob.
	KindPrinted
)

func (k Kind) String() string {
	switch k {
	case KindMemory:
		return "memory"
	case KindSource:
		return "source"
	case KindPrinted:
		return "printed"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Recording is a sound that can be indexed or searched for.
type Recording interface {
	// ID identifies the recording, often its path.
	ID() string
	// Kind reports the variant.
	Kind() Kind
	// RawPrints returns the full fingerprint sequence.
	RawPrints(ctx context.Context) ([]uint32, error)
}

// MemoryRecording is a Recording backed by an in-memory sequence.
type MemoryRecording struct {
	id     string
	prints []uint32
}

// NewMemoryRecording creates a recording from fingerprints already in memory.
// The slice is not copied and must not be modified afterwards.
func NewMemoryRecording(id string, prints []uint32) *MemoryRecording {
	return &MemoryRecording{id: id, prints: prints}
}

func (r *MemoryRecording) ID() string { return r.id }
func (r *MemoryRecording) Kind() Kind { return KindMemory }

// RawPrints returns the fingerprints.
func (r *MemoryRecording) RawPrints(context.Context) ([]uint32, error) { return r.prints, nil }

func (r *MemoryRecording) String() string {
	return fmt.Sprintf("MemoryRecording(id=%q, prints=%d)", r.id, len(r.prints))
}

// SourceRecording resolves its fingerprints by ID through a fingerprint.Source.
type SourceRecording struct {
	id     string
	source fingerprint.Source
}

// NewSourceRecording creates a recording whose prints come from source.
func NewSourceRecording(id string, source fingerprint.Source) *SourceRecording {
	return &SourceRecording{id: id, source: source}
}

func (r *SourceRecording) ID() string { return r.id }
func (r *SourceRecording) Kind() Kind { return KindSource }

// RawPrints asks the source for the fingerprints.
func (r *SourceRecording) RawPrints(ctx context.Context) ([]uint32, error) {
	p, err := r.source.RawFingerprints(ctx, r.id)
	return p, translateError(err)
}

func (r *SourceRecording) String() string {
	return fmt.Sprintf("SourceRecording(id=%q)", r.id)
}

// PrintedRecording is a slice of a blob holding precomputed fingerprints in
// the sidecar encoding. One blob may hold several recordings back to back.
type PrintedRecording struct {
	id     string
	store  blobstore.Store
	blob   string
	offset int
	length int
}

// NewPrintedRecording creates a recording covering length prints starting at
// offset in the named blob. A negative length extends to the end of the blob.
func NewPrintedRecording(id string, store blobstore.Store, blob string, offset, length int) (*PrintedRecording, error) {
	if offset < 0 {
		return nil, &RangeError{What: "printed recording", Start: offset, End: offset + length}
	}
	return &PrintedRecording{id: id, store: store, blob: blob, offset: offset, length: length}, nil
}

func (r *PrintedRecording) ID() string { return r.id }
func (r *PrintedRecording) Kind() Kind { return KindPrinted }

// Blob returns the name of the fingerprint blob.
func (r *PrintedRecording) Blob() string { return r.blob }

// Offset returns the first print of the recording inside the blob.
func (r *PrintedRecording) Offset() int { return r.offset }

// Length returns the number of prints, or -1 for "to the end of the blob".
func (r *PrintedRecording) Length() int { return r.length }

// RawPrints reads the recording's slice of the blob.
func (r *PrintedRecording) RawPrints(ctx context.Context) ([]uint32, error) {
	p, err := fingerprint.ReadPrints(ctx, r.store, r.blob, r.offset, r.length)
	return p, translateError(err)
}

func (r *PrintedRecording) String() string {
	return fmt.Sprintf("PrintedRecording(id=%q, blob=%q, offset=%d, length=%d)", r.id, r.blob, r.offset, r.length)
}
