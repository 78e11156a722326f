package byteslice

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var encodings = []Encoding{EncodingPacked, EncodingStreamVByte}

func assertColumnRoundTrip(t *testing.T, codes []uint32, width int, enc Encoding) []byte {
	t.Helper()
	col, err := NewColumn(codes, width)
	require.NoError(t, err)
	buf, err := col.Encode(nil, enc)
	require.NoError(t, err)

	got, err := DecodeColumn(buf)
	require.NoError(t, err)
	assert.Equal(t, width, got.BitWidth())
	assert.Equal(t, len(codes), got.Len())
	if len(codes) > 0 {
		assert.Equal(t, codes, got.Codes(nil))
	}
	for k := range col.Layout().ByteCount {
		assert.Equal(t, col.Plane(k), got.Plane(k), "plane %d", k)
	}
	return buf
}

func TestCodecRoundTripAllWidths(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for width := 1; width <= MaxBitWidth; width++ {
		for _, n := range []int{0, 1, 127, 128, 129, 1000} {
			codes := randomCodes(rng, n, width)
			for _, enc := range encodings {
				assertColumnRoundTrip(t, codes, width, enc)
			}
		}
	}
}

func TestCodecMultipleChunks(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	codes := randomCodes(rng, svbChunkLen+1000, 21)
	for _, enc := range encodings {
		assertColumnRoundTrip(t, codes, 21, enc)
	}
}

func TestCodecPackedSize(t *testing.T) {
	codes := make([]uint32, 300)
	buf := assertColumnRoundTrip(t, codes, 12, EncodingPacked)
	assert.Equal(t, codecHeaderBytes+3*packedBlockBytes(12), len(buf))
}

func TestCodecStreamVByteSmallCodes(t *testing.T) {
	codes := make([]uint32, 1000)
	for i := range codes {
		codes[i] = uint32(i % 200)
	}
	buf := assertColumnRoundTrip(t, codes, 32, EncodingStreamVByte)
	// one byte per code plus control bytes and framing
	assert.Less(t, len(buf), codecHeaderBytes+4+1000+250+16)
}

func TestCodecAppends(t *testing.T) {
	col, err := NewColumn([]uint32{1, 2, 3}, 5)
	require.NoError(t, err)
	prefix := []byte("xyz")
	buf, err := col.AppendBinary(prefix)
	require.NoError(t, err)
	assert.Equal(t, "xyz", string(buf[:3]))

	plain, err := col.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, plain, buf[3:])
}

func TestParseEncoding(t *testing.T) {
	for _, enc := range encodings {
		got, err := ParseEncoding(enc.String())
		require.NoError(t, err)
		assert.Equal(t, enc, got)
	}
	got, err := ParseEncoding("svb")
	assert.NoError(t, err)
	assert.Equal(t, EncodingStreamVByte, got)
	_, err = ParseEncoding("zip")
	assert.ErrorIs(t, err, ErrInvalidBuffer)

	col, err := NewColumn([]uint32{1}, 5)
	require.NoError(t, err)
	_, err = col.Encode(nil, Encoding(9))
	assert.ErrorIs(t, err, ErrInvalidBuffer)
}

func TestDecodeColumnRejectsMalformed(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	col, err := NewColumn(randomCodes(rng, 500, 13), 13)
	require.NoError(t, err)
	packed, err := col.Encode(nil, EncodingPacked)
	require.NoError(t, err)
	svb, err := col.Encode(nil, EncodingStreamVByte)
	require.NoError(t, err)

	corrupt := func(buf []byte, at int, v byte) []byte {
		out := append([]byte(nil), buf...)
		out[at] = v
		return out
	}
	header := func(enc Encoding, width int, count uint64) []byte {
		h := make([]byte, codecHeaderBytes)
		bo.PutUint32(h[0:], codecMagic)
		h[4] = codecVersion
		h[5] = byte(enc)
		h[6] = byte(width)
		bo.PutUint64(h[8:], count)
		return h
	}
	tests := []struct {
		name string
		buf  []byte
	}{
		{"empty", nil},
		{"short header", packed[:10]},
		{"magic", corrupt(packed, 0, 'X')},
		{"version", corrupt(packed, 4, 9)},
		{"encoding", corrupt(packed, 5, 7)},
		{"width zero", corrupt(packed, 6, 0)},
		{"width wide", corrupt(packed, 6, 33)},
		{"count", corrupt(packed, 15, 0xff)},
		{"packed truncated", packed[:len(packed)-1]},
		{"svb truncated", svb[:len(svb)-1]},
		{"svb no chunk", svb[:codecHeaderBytes+2]},
		{"svb chunk length", corrupt(svb, codecHeaderBytes+3, 0x7f)},
		{"packed huge count", header(EncodingPacked, 32, 1<<61)},
		{"packed max count", append(header(EncodingPacked, 1, uint64(maxInt)), make([]byte, 64)...)},
		{"svb huge count", header(EncodingStreamVByte, 32, 1<<61)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeColumn(tt.buf)
			assert.ErrorIs(t, err, ErrInvalidBuffer)
		})
	}
}

func TestDecodeColumnRejectsWideStreamVByteCode(t *testing.T) {
	col, err := NewColumn([]uint32{1, 2, 1000}, 10)
	require.NoError(t, err)
	buf, err := col.Encode(nil, EncodingStreamVByte)
	require.NoError(t, err)
	// claim 9-bit codes; 1000 no longer fits
	buf[6] = 9
	_, err = DecodeColumn(buf)
	assert.ErrorIs(t, err, ErrInvalidBuffer)
}

func TestSvbStreamBytes(t *testing.T) {
	// control 0b11_10_01_00: lengths 1, 2, 3, 4
	size, ok := svbStreamBytes([]byte{0xe4}, 4)
	assert.True(t, ok)
	assert.Equal(t, 1+10, size)

	size, ok = svbStreamBytes([]byte{0xe4}, 2)
	assert.True(t, ok)
	assert.Equal(t, 1+3, size)

	_, ok = svbStreamBytes(nil, 1)
	assert.False(t, ok)
}

func TestPackLaneRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for width := 1; width <= 32; width++ {
		values := randomCodes(rng, blockSize, width)
		block := make([]byte, packedBlockBytes(width))
		for lane := range laneCount {
			packLane(block, values, lane, width)
		}
		got := make([]uint32, blockSize)
		for lane := range laneCount {
			unpackLane(got, block, lane, width, blockSize)
		}
		assert.Equal(t, values, got, "width %d", width)
	}
}

func TestPackLaneWordOrder(t *testing.T) {
	values := make([]uint32, blockSize)
	for i := range values {
		values[i] = uint32(i) | 0xabcd0000
	}
	block := make([]byte, packedBlockBytes(32))
	for lane := range laneCount {
		packLane(block, values, lane, 32)
	}
	// at full width, word k of lane l is code l+4k
	for i, v := range values {
		assert.Equal(t, v, bo.Uint32(block[4*i:]), "code %d", i)
	}

	// width 8: four codes per lane word, lowest bits first
	block = make([]byte, packedBlockBytes(8))
	packLane(block, []uint32{1, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0, 4}, 0, 8)
	assert.Equal(t, uint32(0x04030201), bo.Uint32(block[0:]))
	assert.Zero(t, bo.Uint32(block[4:]))
}

func BenchmarkDecodeColumn(b *testing.B) {
	rng := rand.New(rand.NewSource(42))
	col, err := NewColumn(randomCodes(rng, 1<<18, 17), 17)
	if err != nil {
		b.Fatal(err)
	}
	for _, enc := range encodings {
		buf, err := col.Encode(nil, enc)
		if err != nil {
			b.Fatal(err)
		}
		b.Run(enc.String(), func(b *testing.B) {
			b.SetBytes(int64(col.Len() * 4))
			for i := 0; i < b.N; i++ {
				if _, err := DecodeColumn(buf); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
