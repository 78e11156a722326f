package byteslice

import (
	"fmt"
	"slices"

	"github.com/mhr3/streamvbyte"
)

// Encoding selects how a serialized column stores its codes.
type Encoding uint8

const (
	// EncodingPacked bit-packs codes at the column width in blocks of 128,
	// split into four interleaved lanes.
	EncodingPacked Encoding = iota
	// EncodingStreamVByte stores codes with StreamVByte in chunks of up to
	// svbChunkLen codes; small codes take one byte regardless of width.
	EncodingStreamVByte
)

func (e Encoding) String() string {
	switch e {
	case EncodingPacked:
		return "packed"
	case EncodingStreamVByte:
		return "streamvbyte"
	default:
		return fmt.Sprintf("Encoding(%d)", uint8(e))
	}
}

// ParseEncoding accepts "packed" or "streamvbyte" (alias "svb").
func ParseEncoding(s string) (Encoding, error) {
	switch s {
	case "packed", "":
		return EncodingPacked, nil
	case "streamvbyte", "svb":
		return EncodingStreamVByte, nil
	}
	return 0, fmt.Errorf("%w: unknown encoding %q", ErrInvalidBuffer, s)
}

// Serialized column layout (little-endian):
//
//	Bytes  0-3:   magic "BSC1"
//	Byte   4:     format version
//	Byte   5:     encoding
//	Byte   6:     bit width (1-32)
//	Byte   7:     reserved, zero
//	Bytes  8-15:  tuple count
//	Bytes 16-:    body
//
// A packed body is ceil(count/128) blocks of packedBlockBytes(width) bytes.
// A StreamVByte body is a sequence of chunks, each a 4-byte length followed
// by the StreamVByte stream (control bytes, then data bytes) of up to
// svbChunkLen codes.
const (
	codecMagic   = 0x31435342 // "BSC1"
	codecVersion = 1

	codecHeaderBytes = 16

	// blockSize is the packed block length (4 lanes × 32 codes).
	blockSize = 128
	// laneCount splits blocks into four interleaved lanes.
	laneCount = 4

	svbChunkLen = 1 << 16
)

// svbControlBlockSizeLUT holds, per StreamVByte control byte, the total data
// bytes of its four values (2-bit code + 1 each).
var svbControlBlockSizeLUT [256]uint8

func init() {
	for ctrl := range 256 {
		size := (ctrl & 0x03) + ((ctrl >> 2) & 0x03) + ((ctrl >> 4) & 0x03) + (ctrl >> 6) + 4
		svbControlBlockSizeLUT[ctrl] = uint8(size)
	}
}

// packedBlockBytes is the payload of one 128-code block at the given width.
func packedBlockBytes(bitWidth int) int {
	return laneCount * 4 * bitWidth
}

// MarshalBinary encodes the column with EncodingPacked.
func (c *Column) MarshalBinary() ([]byte, error) {
	return c.Encode(nil, EncodingPacked)
}

// AppendBinary appends the EncodingPacked form of the column to dst.
func (c *Column) AppendBinary(dst []byte) ([]byte, error) {
	return c.Encode(dst, EncodingPacked)
}

// Encode appends the serialized column to dst using enc. dst may be reused
// across calls to avoid allocations.
func (c *Column) Encode(dst []byte, enc Encoding) ([]byte, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	start := len(dst)
	dst = slices.Grow(dst, codecHeaderBytes)
	dst = dst[:start+codecHeaderBytes]
	h := dst[start:]
	bo.PutUint32(h[0:], codecMagic)
	h[4] = codecVersion
	h[5] = byte(enc)
	h[6] = byte(c.layout.BitWidth)
	h[7] = 0
	bo.PutUint64(h[8:], uint64(c.n))

	switch enc {
	case EncodingPacked:
		return c.appendPacked(dst), nil
	case EncodingStreamVByte:
		return c.appendStreamVByte(dst), nil
	}
	return nil, fmt.Errorf("%w: unknown encoding %d", ErrInvalidBuffer, enc)
}

func (c *Column) appendPacked(dst []byte) []byte {
	width := c.layout.BitWidth
	blockBytes := packedBlockBytes(width)
	var values [blockSize]uint32
	for off := 0; off < c.n; off += blockSize {
		k := min(blockSize, c.n-off)
		for i := range k {
			values[i] = c.Code(off + i)
		}
		start := len(dst)
		dst = slices.Grow(dst, blockBytes)
		dst = dst[:start+blockBytes]
		block := dst[start:]
		clear(block)
		for lane := range laneCount {
			packLane(block, values[:k], lane, width)
		}
	}
	return dst
}

func (c *Column) appendStreamVByte(dst []byte) []byte {
	values := make([]uint32, min(c.n, svbChunkLen))
	buf := make([]byte, streamvbyte.MaxEncodedLen(len(values)))
	for off := 0; off < c.n; off += svbChunkLen {
		k := min(svbChunkLen, c.n-off)
		for i := range k {
			values[i] = c.Code(off + i)
		}
		enc := streamvbyte.EncodeUint32(values[:k], &streamvbyte.EncodeOptions[uint32]{
			Buffer: buf,
		})
		dst = bo.AppendUint32(dst, uint32(len(enc)))
		dst = append(dst, enc...)
	}
	return dst
}

// DecodeColumn rebuilds a column from its serialized form. The returned
// column owns freshly allocated planes.
func DecodeColumn(buf []byte) (*Column, error) {
	if len(buf) < codecHeaderBytes {
		return nil, fmt.Errorf("%w: buffer too small for header (need %d bytes, got %d)",
			ErrInvalidBuffer, codecHeaderBytes, len(buf))
	}
	if magic := bo.Uint32(buf[0:]); magic != codecMagic {
		return nil, fmt.Errorf("%w: bad magic %#08x", ErrInvalidBuffer, magic)
	}
	if v := buf[4]; v != codecVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidBuffer, v)
	}
	enc := Encoding(buf[5])
	width := int(buf[6])
	count := bo.Uint64(buf[8:])
	if width < 1 || width > MaxBitWidth {
		return nil, fmt.Errorf("%w: bit width %d", ErrInvalidBuffer, width)
	}
	if count > uint64(maxInt) {
		return nil, fmt.Errorf("%w: tuple count %d", ErrInvalidBuffer, count)
	}
	n := int(count)
	body := buf[codecHeaderBytes:]

	switch enc {
	case EncodingPacked:
		blocks := n / blockSize
		if n%blockSize != 0 {
			blocks++
		}
		// compare block counts; blocks*blockBytes may overflow for a forged count
		blockBytes := packedBlockBytes(width)
		if blocks > len(body)/blockBytes {
			return nil, fmt.Errorf("%w: packed body truncated (%d blocks of %d bytes, got %d bytes)",
				ErrInvalidBuffer, blocks, blockBytes, len(body))
		}
	case EncodingStreamVByte:
		// every code takes at least one data byte
		if len(body) < n {
			return nil, fmt.Errorf("%w: StreamVByte body truncated (%d bytes for %d codes)",
				ErrInvalidBuffer, len(body), n)
		}
	default:
		return nil, fmt.Errorf("%w: unknown encoding %d", ErrInvalidBuffer, enc)
	}

	col, err := NewEmptyColumn(n, width)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBuffer, err)
	}
	if enc == EncodingPacked {
		col.decodePacked(body)
		return col, nil
	}
	if err := col.decodeStreamVByte(body); err != nil {
		return nil, err
	}
	return col, nil
}

const maxInt = int(^uint(0) >> 1)

func (c *Column) decodePacked(body []byte) {
	width := c.layout.BitWidth
	blockBytes := packedBlockBytes(width)
	var values [blockSize]uint32
	for off := 0; off < c.n; off += blockSize {
		k := min(blockSize, c.n-off)
		block := body[:blockBytes]
		body = body[blockBytes:]
		for lane := range laneCount {
			unpackLane(values[:k], block, lane, width, k)
		}
		for i := range k {
			c.setTuple(off+i, values[i])
		}
	}
}

func (c *Column) decodeStreamVByte(body []byte) error {
	values := make([]uint32, min(c.n, svbChunkLen))
	for off := 0; off < c.n; off += svbChunkLen {
		k := min(svbChunkLen, c.n-off)
		if len(body) < 4 {
			return fmt.Errorf("%w: missing chunk length at tuple %d", ErrInvalidBuffer, off)
		}
		size := int(bo.Uint32(body))
		body = body[4:]
		if len(body) < size {
			return fmt.Errorf("%w: truncated chunk at tuple %d (need %d bytes, got %d)",
				ErrInvalidBuffer, off, size, len(body))
		}
		chunk := body[:size]
		body = body[size:]
		if need, ok := svbStreamBytes(chunk, k); !ok || need > len(chunk) {
			return fmt.Errorf("%w: malformed StreamVByte chunk at tuple %d", ErrInvalidBuffer, off)
		}
		decoded := streamvbyte.DecodeUint32(chunk, k, &streamvbyte.DecodeOptions[uint32]{
			Buffer: values[:k],
		})
		for i, v := range decoded {
			if !c.layout.fits(v) {
				return fmt.Errorf("%w: code %d at tuple %d exceeds bit width %d",
					ErrInvalidBuffer, v, off+i, c.layout.BitWidth)
			}
			c.setTuple(off+i, v)
		}
	}
	return nil
}

// svbStreamBytes returns the size a StreamVByte stream of count values
// requires according to its control bytes. ok is false when the control
// bytes themselves are missing.
func svbStreamBytes(stream []byte, count int) (size int, ok bool) {
	numControl := (count + 3) >> 2
	if len(stream) < numControl {
		return 0, false
	}
	full := count >> 2
	size = numControl
	for _, ctrl := range stream[:full] {
		size += int(svbControlBlockSizeLUT[ctrl])
	}
	if rem := count & 0x03; rem != 0 {
		ctrl := stream[full]
		for i := range rem {
			size += int((ctrl>>(2*i))&0x03) + 1
		}
	}
	return size, true
}

// widthMask keeps the low bitWidth bits of a code.
func widthMask(bitWidth int) uint32 {
	return uint32(uint64(1)<<bitWidth - 1)
}

// laneWord is the byte offset of the k-th 32-bit word of lane within a
// packed block. The four lanes take turns word by word.
func laneWord(lane, k int) int {
	return (k*laneCount + lane) * 4
}

// packLane bit-packs codes lane, lane+4, lane+8, ... of one block into that
// lane's words. Indices past len(codes) pack as zero. A lane holds exactly
// bitWidth words, so nothing is left pending at the end.
func packLane(block []byte, codes []uint32, lane, bitWidth int) {
	mask := uint64(widthMask(bitWidth))
	var pending uint64
	filled, word := 0, 0
	for idx := lane; idx < blockSize; idx += laneCount {
		var code uint32
		if idx < len(codes) {
			code = codes[idx]
		}
		pending |= (uint64(code) & mask) << filled
		filled += bitWidth
		if filled >= 32 {
			bo.PutUint32(block[laneWord(lane, word):], uint32(pending))
			word++
			pending >>= 32
			filled -= 32
		}
	}
}

// unpackLane reverses packLane for the lane's indices below count.
func unpackLane(codes []uint32, block []byte, lane, bitWidth, count int) {
	mask := widthMask(bitWidth)
	var pending uint64
	filled, word := 0, 0
	for idx := lane; idx < count; idx += laneCount {
		if filled < bitWidth {
			pending |= uint64(bo.Uint32(block[laneWord(lane, word):])) << filled
			word++
			filled += 32
		}
		codes[idx] = uint32(pending) & mask
		pending >>= bitWidth
		filled -= bitWidth
	}
}
