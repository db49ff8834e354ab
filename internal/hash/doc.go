// Package hash provides CRC32-Castagnoli checksums.
//
// Index snapshots are sealed with a CRC32C trailer and the S3 blob store
// attaches a CRC32C checksum to uploads.
//
//	sealed := hash.Seal(frame)
//	frame, err := hash.Open(sealed)
package hash
