package xcorrsound

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/xcorrsound/blobstore"
	"github.com/hupe1980/xcorrsound/codec"
	"github.com/hupe1980/xcorrsound/fingerprint"
	"github.com/hupe1980/xcorrsound/internal/posting"
)

const (
	// IndexSuffix names the posting snapshot of a saved Discovery.
	IndexSuffix = ".index"
	// ManifestSuffix names the recording manifest of a saved Discovery.
	ManifestSuffix = ".manifest"

	manifestVersion = 1
)

// Manifest describes a saved Discovery.
type Manifest struct {
	Version      int               `json:"version"`
	Codec        string            `json:"codec"`
	Strategy     CollapseStrategy  `json:"strategy"`
	ChunkLength  int               `json:"chunk_length"`
	ChunkOverlap int               `json:"chunk_overlap"`
	Recordings   []RecordingRecord `json:"recordings"`
}

// RecordingRecord is the stored form of one indexed recording.
type RecordingRecord struct {
	ID     string `json:"id"`
	Kind   Kind   `json:"kind"`
	Prints int    `json:"prints"`
	Blob   string `json:"blob,omitempty"`
	Offset int    `json:"offset,omitempty"`
	Length int    `json:"length,omitempty"`
}

// Resolver turns a stored recording back into a Recording.
type Resolver interface {
	Resolve(ctx context.Context, rec RecordingRecord) (Recording, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, rec RecordingRecord) (Recording, error)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(ctx context.Context, rec RecordingRecord) (Recording, error) {
	return f(ctx, rec)
}

// SourceResolver resolves printed recordings against Store and everything
// else through Source. Memory recordings lose their in-memory prints on save,
// so Source must be able to provide them by ID.
type SourceResolver struct {
	Source fingerprint.Source
	Store  blobstore.Store
}

// Resolve implements Resolver.
func (r SourceResolver) Resolve(_ context.Context, rec RecordingRecord) (Recording, error) {
	if rec.Kind == KindPrinted {
		if r.Store == nil {
			return nil, fmt.Errorf("%w: printed recording %s needs a store", ErrInvalidArgument, rec.ID)
		}
		return NewPrintedRecording(rec.ID, r.Store, rec.Blob, rec.Offset, rec.Length)
	}
	if r.Source == nil {
		return nil, fmt.Errorf("%w: recording %s needs a source", ErrInvalidArgument, rec.ID)
	}
	return NewSourceRecording(rec.ID, r.Source), nil
}

// Save writes the posting index as <name>.index and the manifest as
// <name>.manifest. The manifest is written last, so a snapshot without a
// manifest is incomplete and ignored by ListSnapshots.
func (d *Discovery) Save(ctx context.Context, store blobstore.Store, name string, c codec.Codec) (err error) {
	if c == nil {
		c = codec.Default
	}

	recordings := 0
	defer func() {
		d.opts.logger.LogSnapshot(ctx, "save", name, recordings, err)
	}()

	index, manifest, err := d.encodeSnapshot(c)
	if err != nil {
		return err
	}
	recordings = len(manifest.Recordings)

	data, err := c.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	if err := store.Put(ctx, name+IndexSuffix, index); err != nil {
		return err
	}
	// The codec name prefixes the manifest so Load can pick the decoder.
	return store.Put(ctx, name+ManifestSuffix, append([]byte(c.Name()+"\n"), data...))
}

// encodeSnapshot captures the index and its manifest under the read lock.
// Uploads happen afterwards so slow stores do not block AddRecording.
func (d *Discovery) encodeSnapshot(c codec.Codec) ([]byte, *Manifest, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var buf bytes.Buffer
	if _, err := d.index.WriteTo(&buf); err != nil {
		return nil, nil, fmt.Errorf("encode index: %w", err)
	}

	geo := d.index.Geometry()
	m := &Manifest{
		Version:      manifestVersion,
		Codec:        c.Name(),
		Strategy:     d.collapsor.Strategy(),
		ChunkLength:  geo.ChunkLength,
		ChunkOverlap: geo.ChunkOverlap,
		Recordings:   make([]RecordingRecord, len(d.recordings)),
	}
	for slot, rec := range d.recordings {
		rr := RecordingRecord{
			ID:     rec.ID(),
			Kind:   rec.Kind(),
			Prints: d.index.Span(slot).Length,
		}
		if p, ok := rec.(*PrintedRecording); ok {
			rr.Blob, rr.Offset, rr.Length = p.Blob(), p.Offset(), p.Length()
		}
		m.Recordings[slot] = rr
	}
	return buf.Bytes(), m, nil
}

// Load restores a Discovery saved under name. Geometry and strategy come
// from the manifest; opts may set logging, metrics and refinement.
func Load(ctx context.Context, store blobstore.Store, name string, resolver Resolver, optFns ...Option) (d *Discovery, err error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	defer func() {
		n := 0
		if d != nil {
			n = len(d.recordings)
		}
		opts.logger.LogSnapshot(ctx, "load", name, n, err)
	}()

	if resolver == nil {
		return nil, fmt.Errorf("%w: nil resolver", ErrInvalidArgument)
	}

	m, err := ReadManifest(ctx, store, name)
	if err != nil {
		return nil, err
	}

	blob, err := store.Open(ctx, name+IndexSuffix)
	if err != nil {
		return nil, translateError(err)
	}
	defer blob.Close()

	r, err := blob.ReadRange(ctx, 0, blob.Size())
	if err != nil {
		return nil, translateError(err)
	}
	defer r.Close()

	idx, err := posting.ReadIndex(r)
	if err != nil {
		return nil, translateError(err)
	}

	geo := idx.Geometry()
	if geo.ChunkLength != m.ChunkLength || geo.ChunkOverlap != m.ChunkOverlap {
		return nil, fmt.Errorf("%w: manifest geometry %d/%d does not match index %d/%d",
			ErrCorrupt, m.ChunkLength, m.ChunkOverlap, geo.ChunkLength, geo.ChunkOverlap)
	}
	if idx.Recordings() != len(m.Recordings) {
		return nil, fmt.Errorf("%w: manifest lists %d recordings, index holds %d",
			ErrCorrupt, len(m.Recordings), idx.Recordings())
	}

	opts.strategy = m.Strategy
	opts.chunkLength = geo.ChunkLength
	opts.chunkOverlap = geo.ChunkOverlap

	d, err = newDiscovery(opts, idx)
	if err != nil {
		return nil, err
	}

	for slot, rr := range m.Recordings {
		if span := idx.Span(slot); span.Length != rr.Prints {
			return nil, fmt.Errorf("%w: recording %s has %d prints in the manifest, %d in the index",
				ErrCorrupt, rr.ID, rr.Prints, span.Length)
		}
		rec, err := resolver.Resolve(ctx, rr)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", rr.ID, translateError(err))
		}
		d.recordings = append(d.recordings, rec)
		d.slots[rr.ID] = append(d.slots[rr.ID], slot)
		d.prints += int64(rr.Prints)
	}
	return d, nil
}

// ReadManifest reads the manifest saved under name.
func ReadManifest(ctx context.Context, store blobstore.Store, name string) (*Manifest, error) {
	data, err := blobstore.ReadAll(ctx, store, name+ManifestSuffix)
	if err != nil {
		return nil, translateError(err)
	}

	codecName, payload, ok := bytes.Cut(data, []byte("\n"))
	if !ok {
		return nil, fmt.Errorf("%w: manifest %s has no codec header", ErrCorrupt, name)
	}
	c, ok := codec.ByName(string(codecName))
	if !ok {
		return nil, fmt.Errorf("%w: manifest %s uses unknown codec %q", ErrCorrupt, name, codecName)
	}

	var m Manifest
	if err := c.Unmarshal(payload, &m); err != nil {
		return nil, fmt.Errorf("%w: manifest %s: %w", ErrCorrupt, name, err)
	}
	if m.Version != manifestVersion {
		return nil, fmt.Errorf("%w: manifest %s has version %d", ErrCorrupt, name, m.Version)
	}
	return &m, nil
}

// ListSnapshots returns the names of all complete snapshots below prefix.
func ListSnapshots(ctx context.Context, store blobstore.Store, prefix string) ([]string, error) {
	blobs, err := store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, b := range blobs {
		if name, ok := strings.CutSuffix(b, ManifestSuffix); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

// LoadArchive loads every named snapshot as a shard and builds an Archive.
func LoadArchive(ctx context.Context, store blobstore.Store, names []string, resolver Resolver, shardOpts []Option, optFns ...ArchiveOption) (*Archive, error) {
	shards := make([]*Discovery, 0, len(names))
	for _, name := range names {
		d, err := Load(ctx, store, name, resolver, shardOpts...)
		if err != nil {
			return nil, fmt.Errorf("load shard %s: %w", name, err)
		}
		shards = append(shards, d)
	}
	return NewArchive(shards, optFns...)
}
