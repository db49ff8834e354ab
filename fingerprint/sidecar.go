package fingerprint

import (
	"encoding/binary"
	"fmt"
	"strings"
)

const (
	// SidecarSuffix is appended to a recording identity to name its sidecar.
	SidecarSuffix = ".rawPrints"

	// CompressedSuffix is appended to SidecarSuffix for zstd compressed sidecars.
	CompressedSuffix = ".zst"

	// PrintSize is the encoded size of one fingerprint in bytes.
	PrintSize = 4
)

// SidecarName returns the sidecar blob name for a recording.
// A trailing ".mp3" or ".wav" extension is replaced, anything else gets the
// suffix appended.
func SidecarName(id string) string {
	lower := strings.ToLower(id)
	if strings.HasSuffix(lower, ".mp3") || strings.HasSuffix(lower, ".wav") {
		id = id[:len(id)-4]
	}
	return id + SidecarSuffix
}

// CompressedSidecarName returns the name of the compressed sidecar for a recording.
func CompressedSidecarName(id string) string {
	return SidecarName(id) + CompressedSuffix
}

// Encode serialises prints as consecutive little-endian 4-byte records.
func Encode(prints []uint32) []byte {
	return AppendEncode(make([]byte, 0, len(prints)*PrintSize), prints)
}

// AppendEncode appends the encoding of prints to dst.
func AppendEncode(dst []byte, prints []uint32) []byte {
	for _, p := range prints {
		dst = binary.LittleEndian.AppendUint32(dst, p)
	}
	return dst
}

// Decode parses the sidecar encoding. The input length must be a multiple of 4.
func Decode(data []byte) ([]uint32, error) {
	if len(data)%PrintSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of %d", ErrCorrupt, len(data), PrintSize)
	}
	prints := make([]uint32, len(data)/PrintSize)
	for i := range prints {
		prints[i] = binary.LittleEndian.Uint32(data[i*PrintSize:])
	}
	return prints, nil
}
