package hash

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
)

// TrailerSize is the size of the checksum appended by Seal.
const TrailerSize = 4

// ErrChecksum is returned by Open when the trailer does not match.
var ErrChecksum = errors.New("hash: checksum mismatch")

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// CRC32C computes the CRC32-Castagnoli checksum of data.
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, castagnoli)
}

// Seal appends the little-endian CRC32C of frame to frame.
func Seal(frame []byte) []byte {
	return binary.LittleEndian.AppendUint32(frame, CRC32C(frame))
}

// Open verifies a frame produced by Seal and returns it without the trailer.
func Open(sealed []byte) ([]byte, error) {
	if len(sealed) < TrailerSize {
		return nil, ErrChecksum
	}
	payload, trailer := sealed[:len(sealed)-TrailerSize], sealed[len(sealed)-TrailerSize:]
	if CRC32C(payload) != binary.LittleEndian.Uint32(trailer) {
		return nil, ErrChecksum
	}
	return payload, nil
}
