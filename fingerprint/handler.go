package fingerprint

import (
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/sync/singleflight"

	"github.com/hupe1980/xcorrsound/blobstore"
)

// Handler resolves raw fingerprints through sidecar blobs, generating and
// storing them on a miss. It implements Source and is safe for concurrent use.
//
// Concurrent requests for the same recording share one load or generation.
type Handler struct {
	store blobstore.Store
	opts  options
	group singleflight.Group
}

// NewHandler creates a Handler storing sidecars in store.
func NewHandler(store blobstore.Store, optFns ...Option) *Handler {
	opts := options{cachePrints: true}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Handler{store: store, opts: opts}
}

// RawFingerprints returns all fingerprints of a recording.
func (h *Handler) RawFingerprints(ctx context.Context, id string) ([]uint32, error) {
	if h.opts.memory != nil {
		if p, ok := h.opts.memory.Get(id); ok {
			return p, nil
		}
	}

	v, err, _ := h.group.Do(id, func() (any, error) {
		return h.load(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return v.([]uint32), nil
}

// RawFingerprintRange returns length fingerprints starting at offset.
// Plain sidecars are read partially, everything else is loaded in full and sliced.
func (h *Handler) RawFingerprintRange(ctx context.Context, id string, offset, length int) ([]uint32, error) {
	if offset < 0 || length < 0 {
		return nil, fmt.Errorf("%w: offset=%d length=%d", ErrInvalidRange, offset, length)
	}

	if h.opts.memory != nil {
		if p, ok := h.opts.memory.Get(id); ok {
			return Slice(p, offset, length)
		}
	}

	p, err := ReadPrints(ctx, h.store, SidecarName(id), offset, length)
	if err == nil || !errors.Is(err, blobstore.ErrNotFound) {
		return p, err
	}

	all, err := h.RawFingerprints(ctx, id)
	if err != nil {
		return nil, err
	}
	return Slice(all, offset, length)
}

// Store writes prints as the sidecar of a recording, replacing any existing one.
func (h *Handler) Store(ctx context.Context, id string, prints []uint32) error {
	data := Encode(prints)
	name := SidecarName(id)
	stale := CompressedSidecarName(id)
	if h.opts.compress {
		data = compress(data)
		name, stale = stale, name
	}

	if err := h.store.Put(ctx, name, data); err != nil {
		return fmt.Errorf("fingerprint: store %s: %w", name, err)
	}
	if err := h.store.Delete(ctx, stale); err != nil {
		return fmt.Errorf("fingerprint: remove %s: %w", stale, err)
	}

	if h.opts.memory != nil {
		h.opts.memory.Set(id, prints)
	}
	return nil
}

// Has reports whether a sidecar exists for the recording.
func (h *Handler) Has(ctx context.Context, id string) (bool, error) {
	for _, name := range []string{CompressedSidecarName(id), SidecarName(id)} {
		ok, err := h.store.Exists(ctx, name)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

// Forget removes the sidecars and the cached sequence of a recording.
func (h *Handler) Forget(ctx context.Context, id string) error {
	if h.opts.memory != nil {
		h.opts.memory.Delete(id)
	}
	return errors.Join(
		h.store.Delete(ctx, CompressedSidecarName(id)),
		h.store.Delete(ctx, SidecarName(id)),
	)
}

func (h *Handler) load(ctx context.Context, id string) ([]uint32, error) {
	prints, err := h.loadSidecar(ctx, id)
	if err == nil {
		h.remember(id, prints)
		return prints, nil
	}
	if !errors.Is(err, blobstore.ErrNotFound) {
		return nil, err
	}

	if h.opts.generator == nil {
		return nil, fmt.Errorf("%w: no sidecar for %s", ErrNotFound, id)
	}

	prints, err = h.generate(ctx, id)
	if err != nil {
		return nil, err
	}

	if h.opts.cachePrints {
		if err := h.Store(ctx, id, prints); err != nil {
			return nil, err
		}
	} else {
		h.remember(id, prints)
	}
	return prints, nil
}

func (h *Handler) loadSidecar(ctx context.Context, id string) ([]uint32, error) {
	data, err := blobstore.ReadAll(ctx, h.store, CompressedSidecarName(id))
	if err == nil {
		if data, err = decompress(data); err != nil {
			return nil, err
		}
		return Decode(data)
	}
	if !errors.Is(err, blobstore.ErrNotFound) {
		return nil, err
	}

	data, err = blobstore.ReadAll(ctx, h.store, SidecarName(id))
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

func (h *Handler) generate(ctx context.Context, id string) ([]uint32, error) {
	if h.opts.limiter != nil {
		if err := h.opts.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	prints, err := h.opts.generator.Generate(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrGenerationFailure, id, err)
	}
	return prints, nil
}

func (h *Handler) remember(id string, prints []uint32) {
	if h.opts.memory != nil {
		h.opts.memory.Set(id, prints)
	}
}

// ReadPrints reads length fingerprints starting at offset from a blob in the
// sidecar encoding. A negative length reads to the end of the blob.
func ReadPrints(ctx context.Context, store blobstore.Store, name string, offset, length int) ([]uint32, error) {
	if offset < 0 {
		return nil, fmt.Errorf("%w: offset=%d", ErrInvalidRange, offset)
	}

	b, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	total := int(b.Size() / PrintSize)
	if length < 0 {
		length = max(total-offset, 0)
	}
	if offset+length > total {
		return nil, fmt.Errorf("%w: offset=%d length=%d prints=%d", ErrInvalidRange, offset, length, total)
	}
	if length == 0 {
		return []uint32{}, nil
	}

	buf := make([]byte, length*PrintSize)
	n, err := b.ReadAt(ctx, buf, int64(offset)*PrintSize)
	if err != nil && !(errors.Is(err, io.EOF) && n == len(buf)) {
		return nil, err
	}
	return Decode(buf)
}
