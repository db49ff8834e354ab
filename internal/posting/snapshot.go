package posting

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/xcorrsound/internal/hash"
)

// Snapshot layout (little endian):
//
//	[magic "XCSP"][version u16][reserved u16]
//	[uncompressed u32][compressed u32, 0 = stored][body]
//	[crc32c u32 over everything before]
//
// The body holds the geometry, the recording spans and, for every non-empty
// posting bitmap, its value followed by a length-prefixed roaring bitmap.
const (
	snapshotVersion = 1
	headerSize      = 4 + 2 + 2 + 8
)

var snapshotMagic = [4]byte{'X', 'C', 'S', 'P'}

// ErrCorruptSnapshot is returned when a snapshot fails validation.
var ErrCorruptSnapshot = errors.New("posting: corrupt snapshot")

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorruptSnapshot, fmt.Sprintf(format, args...))
}

// WriteTo serializes the index to w.
func (x *Index) WriteTo(w io.Writer) (int64, error) {
	body, err := x.encodeBody()
	if err != nil {
		return 0, err
	}

	compressed := make([]byte, lz4.CompressBlockBound(len(body)))
	n, err := lz4.CompressBlock(body, compressed, nil)
	if err != nil {
		return 0, err
	}

	var block []byte
	var compressedSize uint32
	if n == 0 || n >= len(body) {
		// Incompressible: store as is.
		block = body
	} else {
		block = compressed[:n]
		compressedSize = uint32(n)
	}

	out := make([]byte, headerSize, headerSize+len(block)+hash.TrailerSize)
	copy(out[0:4], snapshotMagic[:])
	binary.LittleEndian.PutUint16(out[4:], snapshotVersion)
	binary.LittleEndian.PutUint32(out[8:], uint32(len(body)))
	binary.LittleEndian.PutUint32(out[12:], compressedSize)
	out = append(out, block...)
	out = hash.Seal(out)

	written, err := w.Write(out)
	return int64(written), err
}

func (x *Index) encodeBody() ([]byte, error) {
	var buf bytes.Buffer

	put32 := func(v uint32) { _ = binary.Write(&buf, binary.LittleEndian, v) }

	put32(uint32(x.geo.ChunkLength))
	put32(uint32(x.geo.ChunkOverlap))
	put32(uint32(len(x.owners)))
	put32(uint32(len(x.spans)))
	for _, s := range x.spans {
		put32(s.FirstChunk)
		put32(uint32(s.NumChunks))
		_ = binary.Write(&buf, binary.LittleEndian, uint64(s.Length))
	}

	nonEmpty := 0
	for _, p := range x.postings {
		if !p.IsEmpty() {
			nonEmpty++
		}
	}
	put32(uint32(nonEmpty))

	rb := roaring.New()
	for v, p := range x.postings {
		if p.IsEmpty() {
			continue
		}
		rb.Clear()
		p.ForEach(func(id uint32) { rb.Add(id) })
		rb.RunOptimize()

		data, err := rb.ToBytes()
		if err != nil {
			return nil, fmt.Errorf("posting: encode bitmap %d: %w", v, err)
		}
		_ = binary.Write(&buf, binary.LittleEndian, uint16(v))
		put32(uint32(len(data)))
		buf.Write(data)
	}

	return buf.Bytes(), nil
}

// ReadIndex restores an index written by WriteTo.
func ReadIndex(r io.Reader) (*Index, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) < headerSize+hash.TrailerSize {
		return nil, corrupt("short snapshot (%d bytes)", len(data))
	}
	if !bytes.Equal(data[0:4], snapshotMagic[:]) {
		return nil, corrupt("bad magic %q", data[0:4])
	}
	if v := binary.LittleEndian.Uint16(data[4:]); v != snapshotVersion {
		return nil, corrupt("unsupported version %d", v)
	}

	payload, err := hash.Open(data)
	if err != nil {
		return nil, corrupt("%v", err)
	}

	uncompressed := binary.LittleEndian.Uint32(data[8:])
	compressedSize := binary.LittleEndian.Uint32(data[12:])
	block := payload[headerSize:]

	var body []byte
	if compressedSize == 0 {
		if uint32(len(block)) != uncompressed {
			return nil, corrupt("stored block size %d != %d", len(block), uncompressed)
		}
		body = block
	} else {
		if uint32(len(block)) != compressedSize {
			return nil, corrupt("compressed block size %d != %d", len(block), compressedSize)
		}
		body = make([]byte, uncompressed)
		n, err := lz4.UncompressBlock(block, body)
		if err != nil {
			return nil, corrupt("lz4: %v", err)
		}
		if uint32(n) != uncompressed {
			return nil, corrupt("decompressed size mismatch")
		}
	}

	return decodeBody(body)
}

func decodeBody(body []byte) (*Index, error) {
	r := bytes.NewReader(body)

	var hdr struct {
		ChunkLength  uint32
		ChunkOverlap uint32
		Chunks       uint32
		Recordings   uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, corrupt("header: %v", err)
	}

	geo := Geometry{ChunkLength: int(hdr.ChunkLength), ChunkOverlap: int(hdr.ChunkOverlap)}
	if err := geo.Validate(); err != nil {
		return nil, corrupt("%v", err)
	}
	// Every span takes 16 bytes.
	if uint64(hdr.Recordings)*16 > uint64(r.Len()) || hdr.Chunks > math.MaxInt32 {
		return nil, corrupt("counts exceed payload")
	}

	spans := make([]Span, 0, hdr.Recordings)
	var total uint64
	for slot := range int(hdr.Recordings) {
		var s struct {
			FirstChunk uint32
			NumChunks  uint32
			Length     uint64
		}
		if err := binary.Read(r, binary.LittleEndian, &s); err != nil {
			return nil, corrupt("span %d: %v", slot, err)
		}
		if s.Length > math.MaxInt32*uint64(hdr.ChunkLength) {
			return nil, corrupt("span %d length %d", slot, s.Length)
		}
		want := (s.Length + uint64(hdr.ChunkLength) - 1) / uint64(hdr.ChunkLength)
		if uint64(s.FirstChunk) != total || uint64(s.NumChunks) != want {
			return nil, corrupt("span %d is not contiguous", slot)
		}
		total += uint64(s.NumChunks)
		if total > uint64(hdr.Chunks) {
			return nil, corrupt("span %d exceeds chunk count", slot)
		}
		spans = append(spans, Span{
			FirstChunk: s.FirstChunk,
			NumChunks:  int(s.NumChunks),
			Length:     int(s.Length),
		})
	}
	if total != uint64(hdr.Chunks) {
		return nil, corrupt("spans cover %d of %d chunks", total, hdr.Chunks)
	}

	var nonEmpty uint32
	if err := binary.Read(r, binary.LittleEndian, &nonEmpty); err != nil {
		return nil, corrupt("posting count: %v", err)
	}
	if nonEmpty > Values {
		return nil, corrupt("posting count %d", nonEmpty)
	}

	// Postings are decoded before any bitmap is sized, so memory stays
	// bounded by the payload until the chunk count is known to be real.
	values := make([]uint16, 0, nonEmpty)
	bitmaps := make([]*roaring.Bitmap, 0, nonEmpty)
	covered := roaring.New()
	for i := range nonEmpty {
		var value uint16
		var size uint32
		if err := binary.Read(r, binary.LittleEndian, &value); err != nil {
			return nil, corrupt("posting %d: %v", i, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			return nil, corrupt("posting %d: %v", i, err)
		}
		if int64(size) > int64(r.Len()) {
			return nil, corrupt("posting %d: size %d exceeds payload", i, size)
		}
		data := make([]byte, size)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, corrupt("posting %d: %v", i, err)
		}

		rb := roaring.New()
		if err := rb.UnmarshalBinary(data); err != nil {
			return nil, corrupt("posting %d: %v", i, err)
		}
		if !rb.IsEmpty() && rb.Maximum() >= hdr.Chunks {
			return nil, corrupt("posting %d references chunk %d of %d", i, rb.Maximum(), hdr.Chunks)
		}
		covered.Or(rb)
		values = append(values, value)
		bitmaps = append(bitmaps, rb)
	}

	// Every chunk starts at a print, so it appears in at least one posting.
	if covered.GetCardinality() != uint64(hdr.Chunks) {
		return nil, corrupt("postings cover %d of %d chunks", covered.GetCardinality(), hdr.Chunks)
	}

	x, err := New(geo, int(hdr.Chunks))
	if err != nil {
		return nil, err
	}
	x.spans = spans
	x.owners = make([]int32, 0, hdr.Chunks)
	for slot, sp := range spans {
		for range sp.NumChunks {
			x.owners = append(x.owners, int32(slot))
		}
	}
	for i, rb := range bitmaps {
		bs := x.postings[values[i]]
		it := rb.Iterator()
		for it.HasNext() {
			bs.Set(it.Next())
		}
	}

	if r.Len() != 0 {
		return nil, corrupt("%d trailing bytes", r.Len())
	}

	x.capacity = x.postings[0].Len()
	return x, nil
}
