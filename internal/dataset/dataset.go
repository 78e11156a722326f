// Package dataset produces byte-sliced columns for the scan: it parses code
// files, generates synthetic codes, and loads or saves serialized columns,
// optionally compressed with zstd or lz4.
//
// File kinds are chosen by extension. A trailing ".zst" or ".lz4" selects the
// compression; the remaining extension ".txt" or ".csv" marks a text file
// with one decimal code per line, anything else a serialized column.
package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	byteslice "github.com/Akron/byteslice-go"
)

// ErrFormat is returned for unparsable text files.
var ErrFormat = errors.New("dataset: malformed input")

// Compression is the stream compression applied to a file.
type Compression uint8

const (
	None Compression = iota
	Zstd
	LZ4
)

func (c Compression) String() string {
	switch c {
	case Zstd:
		return "zstd"
	case LZ4:
		return "lz4"
	default:
		return "none"
	}
}

// Kind describes a file by its extension.
type Kind struct {
	Compression Compression
	Text        bool
}

// KindOf derives the file kind from path.
func KindOf(path string) Kind {
	var k Kind
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".zst", ".zstd":
		k.Compression = Zstd
	case ".lz4":
		k.Compression = LZ4
	}
	if k.Compression != None {
		path = strings.TrimSuffix(path, filepath.Ext(path))
		ext = strings.ToLower(filepath.Ext(path))
	}
	k.Text = ext == ".txt" || ext == ".csv"
	return k
}

// ReadText parses one unsigned decimal code per line. Blank lines and lines
// starting with '#' are skipped.
func ReadText(r io.Reader) ([]uint32, error) {
	var codes []uint32
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		s := strings.TrimSpace(sc.Text())
		if s == "" || s[0] == '#' {
			continue
		}
		v, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrFormat, line, err)
		}
		codes = append(codes, uint32(v))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("dataset: read: %w", err)
	}
	return codes, nil
}

// WriteText writes one decimal code per line.
func WriteText(w io.Writer, codes []uint32) error {
	bw := bufio.NewWriter(w)
	var buf []byte
	for _, c := range codes {
		buf = strconv.AppendUint(buf[:0], uint64(c), 10)
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Generate returns n pseudo-random codes of the given bit width. The same
// seed always yields the same codes.
func Generate(n, bitWidth int, seed int64) []uint32 {
	rng := rand.New(rand.NewSource(seed))
	codes := make([]uint32, n)
	mask := uint64(1)<<uint(bitWidth) - 1
	for i := range codes {
		codes[i] = uint32(rng.Uint64() & mask)
	}
	return codes
}

// Fill writes pseudo-random codes into tuples [start, end) of col. Each code
// depends only on seed and its index, so disjoint ranges may be filled
// concurrently and in any order.
func Fill(col *byteslice.Column, start, end int, seed int64) {
	mask := uint64(1)<<uint(col.BitWidth()) - 1
	for i := start; i < end; i++ {
		col.SetTuple(i, uint32(mix(uint64(seed), uint64(i))&mask))
	}
}

// mix is the splitmix64 finalizer over seed and index.
func mix(seed, i uint64) uint64 {
	z := seed + (i+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Load reads the column stored at path. Text files need bitWidth; for
// serialized columns bitWidth may be zero, otherwise it must match.
func Load(path string, bitWidth int) (*byteslice.Column, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	kind := KindOf(path)
	r, closer, err := decompress(f, kind.Compression)
	if err != nil {
		return nil, fmt.Errorf("dataset: %s: %w", path, err)
	}
	defer closer()

	if kind.Text {
		codes, err := ReadText(r)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return byteslice.NewColumn(codes, bitWidth)
	}
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("dataset: %s: %w", path, err)
	}
	col, err := byteslice.DecodeColumn(buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if bitWidth != 0 && col.BitWidth() != bitWidth {
		return nil, fmt.Errorf("%w: %s holds %d-bit codes, want %d",
			byteslice.ErrLayoutMismatch, path, col.BitWidth(), bitWidth)
	}
	return col, nil
}

// Save writes col to path in the kind its extension selects. enc applies to
// serialized columns only.
func Save(path string, col *byteslice.Column, enc byteslice.Encoding) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	kind := KindOf(path)
	w, err := compress(f, kind.Compression)
	if err != nil {
		return fmt.Errorf("dataset: %s: %w", path, err)
	}
	if kind.Text {
		err = WriteText(w, col.Codes(nil))
	} else {
		var buf []byte
		buf, err = col.Encode(nil, enc)
		if err == nil {
			_, err = w.Write(buf)
		}
	}
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	return err
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func compress(w io.Writer, c Compression) (io.WriteCloser, error) {
	switch c {
	case Zstd:
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	case LZ4:
		return lz4.NewWriter(w), nil
	}
	return nopWriteCloser{w}, nil
}

func decompress(r io.Reader, c Compression) (io.Reader, func(), error) {
	switch c {
	case Zstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return dec, dec.Close, nil
	case LZ4:
		return lz4.NewReader(r), func() {}, nil
	}
	return r, func() {}, nil
}
