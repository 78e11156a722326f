package byteslice

import (
	"fmt"
	"math/bits"
)

// Layout describes how codes of one bit width are sliced into byte planes.
// It is computed once per column and never recomputed inside the scan loop.
type Layout struct {
	// BitWidth is the declared code width (1..32).
	BitWidth int
	// ByteCount is the number of byte planes, ceil(BitWidth/8).
	ByteCount int
	// PaddingBits is the left shift aligning a code to its ByteCount*8-bit container.
	PaddingBits int
	// Stride is the length of every plane: the tuple count rounded up to WordBits.
	Stride int
}

// NewLayout returns the layout of n codes of the given bit width.
func NewLayout(bitWidth, n int) (Layout, error) {
	if bitWidth < 1 || bitWidth > MaxBitWidth {
		return Layout{}, fmt.Errorf("%w: %d (must be 1..%d)", ErrInvalidWidth, bitWidth, MaxBitWidth)
	}
	if n < 0 {
		return Layout{}, fmt.Errorf("%w: negative tuple count %d", ErrLayoutMismatch, n)
	}
	byteCount := (bitWidth + 7) / 8
	return Layout{
		BitWidth:    bitWidth,
		ByteCount:   byteCount,
		PaddingBits: byteCount*8 - bitWidth,
		Stride:      roundUp(n, WordBits),
	}, nil
}

// fits reports whether code can be represented in BitWidth bits.
func (l Layout) fits(code uint32) bool {
	return bits.Len32(code) <= l.BitWidth
}

// sliceCode splits code into its bias-flipped byte slices, most significant first.
// Only the first ByteCount entries are meaningful.
func (l Layout) sliceCode(code uint32) [maxByteCount]byte {
	var out [maxByteCount]byte
	shifted := code << l.PaddingBits
	for k := range l.ByteCount {
		out[k] = byte(shifted>>(8*(l.ByteCount-1-k))) ^ flipBit
	}
	return out
}

// joinCode is the inverse of sliceCode.
func (l Layout) joinCode(slices [maxByteCount]byte) uint32 {
	var shifted uint32
	for k := range l.ByteCount {
		shifted = shifted<<8 | uint32(slices[k]^flipBit)
	}
	return shifted >> l.PaddingBits
}

// Column is a byte-sliced column of fixed-width codes. A Column is immutable
// while it is being scanned; SetTuple must not race with a scan.
type Column struct {
	layout Layout
	n      int
	planes [][]byte
}

// NewColumn builds a byte-sliced column from codes. Every code must fit in
// bitWidth bits; nothing is truncated silently.
func NewColumn(codes []uint32, bitWidth int) (*Column, error) {
	c, err := NewEmptyColumn(len(codes), bitWidth)
	if err != nil {
		return nil, err
	}
	for i, code := range codes {
		if !c.layout.fits(code) {
			return nil, fmt.Errorf("%w: code %d at index %d needs %d bits, column has %d",
				ErrInvalidCode, code, i, bits.Len32(code), bitWidth)
		}
		c.setTuple(i, code)
	}
	return c, nil
}

// NewEmptyColumn allocates a column of n tuples, all holding code 0. Padding
// tuples up to the stride also hold code 0.
func NewEmptyColumn(n, bitWidth int) (*Column, error) {
	layout, err := NewLayout(bitWidth, n)
	if err != nil {
		return nil, err
	}
	zero := layout.sliceCode(0)
	planes := make([][]byte, layout.ByteCount)
	for k := range planes {
		p := make([]byte, layout.Stride)
		for i := range p {
			p[i] = zero[k]
		}
		planes[k] = p
	}
	return &Column{layout: layout, n: n, planes: planes}, nil
}

// NewColumnFromPlanes wraps caller-owned planes, for example memory from a
// huge-page allocator. The planes are used as-is; their content is expected
// to be in byte-sliced form already (or to be filled later via SetTuple).
func NewColumnFromPlanes(planes [][]byte, n, bitWidth int) (*Column, error) {
	layout, err := NewLayout(bitWidth, n)
	if err != nil {
		return nil, err
	}
	c := &Column{layout: layout, n: n, planes: planes}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// validate checks the planes against the layout.
func (c *Column) validate() error {
	if len(c.planes) != c.layout.ByteCount {
		return fmt.Errorf("%w: %d planes for bit width %d (need %d)",
			ErrLayoutMismatch, len(c.planes), c.layout.BitWidth, c.layout.ByteCount)
	}
	for k, p := range c.planes {
		if p == nil {
			return fmt.Errorf("%w: plane %d", ErrNilBuffer, k)
		}
		if len(p) < c.layout.Stride {
			return fmt.Errorf("%w: plane %d has %d bytes, need %d",
				ErrLayoutMismatch, k, len(p), c.layout.Stride)
		}
	}
	return nil
}

// Len returns the number of tuples.
func (c *Column) Len() int {
	return c.n
}

// Layout returns the column layout.
func (c *Column) Layout() Layout {
	return c.layout
}

// BitWidth returns the declared code width.
func (c *Column) BitWidth() int {
	return c.layout.BitWidth
}

// Plane returns byte plane k (0 = most significant). The slice aliases the
// column's storage and must be treated as read-only.
func (c *Column) Plane(k int) []byte {
	return c.planes[k]
}

// SetTuple stores code at tuple i. It panics if i is out of range or code does
// not fit the column's bit width. Callers filling disjoint index ranges from
// different goroutines do not need to synchronize.
func (c *Column) SetTuple(i int, code uint32) {
	if i < 0 || i >= c.n {
		panic(fmt.Sprintf("byteslice: tuple index %d out of range [0,%d)", i, c.n))
	}
	if !c.layout.fits(code) {
		panic(fmt.Sprintf("byteslice: code %d exceeds bit width %d", code, c.layout.BitWidth))
	}
	c.setTuple(i, code)
}

func (c *Column) setTuple(i int, code uint32) {
	slices := c.layout.sliceCode(code)
	for k, p := range c.planes {
		p[i] = slices[k]
	}
}

// Code decodes tuple i back into its original code.
func (c *Column) Code(i int) uint32 {
	var slices [maxByteCount]byte
	for k, p := range c.planes {
		slices[k] = p[i]
	}
	return c.layout.joinCode(slices)
}

// Codes decodes all tuples into dst, growing it if needed.
func (c *Column) Codes(dst []uint32) []uint32 {
	if cap(dst) < c.n {
		dst = make([]uint32, c.n)
	} else {
		dst = dst[:c.n]
	}
	for i := range dst {
		dst[i] = c.Code(i)
	}
	return dst
}
