package mem

import (
	"errors"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocAligned(t *testing.T) {
	sizes := []int{1, 10, 63, 64, 65, 100, 1024}

	for _, size := range sizes {
		buf := AllocAligned(size)
		assert.Len(t, buf, size)

		addr := uintptr(unsafe.Pointer(&buf[0]))
		assert.Equal(t, uintptr(0), addr%Alignment, "Address %d should be aligned to %d for size %d", addr, Alignment, size)
	}

	assert.Nil(t, AllocAligned(0))
	assert.Nil(t, AllocAligned(-1))
}

func TestAllocPlanes(t *testing.T) {
	p, err := AllocPlanes(3, 4096, false)
	require.NoError(t, err)
	defer p.Close()

	assert.False(t, p.Huge)
	require.Len(t, p.Planes, 3)
	for _, plane := range p.Planes {
		assert.Len(t, plane, 4096)
		assert.Equal(t, uintptr(0), uintptr(unsafe.Pointer(&plane[0]))%Alignment)
		for _, b := range plane {
			if b != 0 {
				t.Fatal("plane not zeroed")
			}
		}
	}
}

func TestAllocPlanesEmpty(t *testing.T) {
	p, err := AllocPlanes(2, 0, true)
	require.NoError(t, err)
	assert.Len(t, p.Planes, 2)
	assert.NoError(t, p.Close())
}

func TestAllocPlanesHuge(t *testing.T) {
	p, err := AllocPlanes(2, 3<<20, true)
	if errors.Is(err, ErrHugePagesUnsupported) {
		t.Skip("huge pages unsupported on this platform")
	}
	if err != nil {
		t.Skipf("huge page mapping unavailable: %v", err)
	}
	assert.True(t, p.Huge)
	require.Len(t, p.Planes, 2)
	for _, plane := range p.Planes {
		assert.Len(t, plane, 3<<20)
		assert.Equal(t, uintptr(0), uintptr(unsafe.Pointer(&plane[0]))%Alignment)
	}
	last := p.Planes[0]
	last[len(last)-1] = 0xaa
	p.Planes[1][0] = 0x55
	assert.Equal(t, byte(0xaa), last[len(last)-1])
	require.NoError(t, p.Close())
	assert.Nil(t, p.Planes)
	assert.NoError(t, p.Close())
}
