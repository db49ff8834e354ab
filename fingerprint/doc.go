// Package fingerprint provides access to raw fingerprint sequences.
//
// A fingerprint sequence is an ordered list of 32-bit values, one per fixed
// time step of a recording. The package does not analyse audio: sequences
// come from a Generator supplied by the caller. The Handler stores generated
// sequences as sidecar blobs next to the recording identity so later lookups
// skip generation.
//
// Sidecar layout: consecutive 4-byte little-endian records, no header. This
// matches the byte order written by earlier native tools. Sidecars may
// optionally be zstd compressed, in which case the name carries an extra
// ".zst" suffix.
package fingerprint
