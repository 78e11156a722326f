package byteslice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLiteral(t *testing.T) {
	assert := assert.New(t)

	lit, err := NewLiteral(2326, 12)
	assert.NoError(err)
	assert.Equal(uint32(2326), lit.Value())
	// 2326 = 0x916, shifted by 4 = 0x9160
	assert.Equal([]byte{0x11, 0xe0}, lit.Bytes())
	assert.Equal(broadcast(0x11), lit.slices[0])
	assert.Equal(broadcast(0xe0), lit.slices[1])
	assert.Equal(vec{}, lit.slices[2])
}

func TestLiteralMatchesColumnEncoding(t *testing.T) {
	for width := 1; width <= MaxBitWidth; width++ {
		v := uint32(uint64(0x9e3779b9) & (uint64(1)<<uint(width) - 1))
		lit, err := NewLiteral(v, width)
		assert.NoError(t, err)
		col, err := NewColumn([]uint32{v}, width)
		assert.NoError(t, err)
		for k, b := range lit.Bytes() {
			assert.Equal(t, col.Plane(k)[0], b, "width %d slice %d", width, k)
		}
	}
}

func TestNewLiteralRejects(t *testing.T) {
	_, err := NewLiteral(4096, 12)
	assert.ErrorIs(t, err, ErrInvalidPredicate)

	_, err = NewLiteral(1, 0)
	assert.ErrorIs(t, err, ErrInvalidWidth)

	_, err = NewLiteral(^uint32(0), 32)
	assert.NoError(t, err)
}
