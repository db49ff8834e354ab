package fingerprint

import (
	"golang.org/x/time/rate"

	"github.com/hupe1980/xcorrsound/internal/cache"
)

type options struct {
	generator   Generator
	cachePrints bool
	compress    bool
	limiter     *rate.Limiter
	memory      *cache.LRU[string, []uint32]
}

// Option configures a Handler.
type Option func(*options)

// WithGenerator sets the Generator used when no sidecar exists.
// Without a generator a missing sidecar is reported as ErrNotFound.
func WithGenerator(g Generator) Option {
	return func(o *options) {
		o.generator = g
	}
}

// WithCachePrints controls whether generated fingerprints are written back as
// sidecars. Enabled by default.
func WithCachePrints(enabled bool) Option {
	return func(o *options) {
		o.cachePrints = enabled
	}
}

// WithCompression stores new sidecars zstd compressed.
// Compressed sidecars cannot serve ranged reads without decoding the whole blob.
func WithCompression(enabled bool) Option {
	return func(o *options) {
		o.compress = enabled
	}
}

// WithGenerationRate limits how many generations may start per second.
// A limit <= 0 disables throttling.
func WithGenerationRate(limit float64, burst int) Option {
	return func(o *options) {
		if limit <= 0 {
			o.limiter = nil
			return
		}
		o.limiter = rate.NewLimiter(rate.Limit(limit), max(burst, 1))
	}
}

// WithMemoryCache keeps up to capacityBytes of decoded sequences in memory.
// A capacity <= 0 disables the memory cache.
func WithMemoryCache(capacityBytes int64) Option {
	return func(o *options) {
		if capacityBytes <= 0 {
			o.memory = nil
			return
		}
		o.memory = cache.NewPrintCache(capacityBytes)
	}
}
