package byteslice

import (
	"fmt"
	"math/bits"
)

// Literal is a comparison constant decomposed like a column code: shifted,
// bias-flipped and sliced, with every slice broadcast across all lanes.
type Literal struct {
	value     uint32
	byteCount int
	bytes     [maxByteCount]byte
	slices    [maxByteCount]vec
}

// NewLiteral decomposes value for a column of the given bit width. A value
// wider than bitWidth is rejected instead of truncated.
func NewLiteral(value uint32, bitWidth int) (Literal, error) {
	layout, err := NewLayout(bitWidth, 0)
	if err != nil {
		return Literal{}, err
	}
	if !layout.fits(value) {
		return Literal{}, fmt.Errorf("%w: literal %d needs %d bits, column has %d",
			ErrInvalidPredicate, value, bits.Len32(value), bitWidth)
	}
	lit := Literal{
		value:     value,
		byteCount: layout.ByteCount,
		bytes:     layout.sliceCode(value),
	}
	for k := range lit.byteCount {
		lit.slices[k] = broadcast(lit.bytes[k])
	}
	return lit, nil
}

// Value returns the undecomposed literal.
func (l Literal) Value() uint32 {
	return l.value
}

// Bytes returns the bias-flipped byte slices, most significant first.
func (l Literal) Bytes() []byte {
	return l.bytes[:l.byteCount]
}
