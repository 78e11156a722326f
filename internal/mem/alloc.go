// Package mem allocates byte planes for byte-sliced columns: 64-byte aligned
// heap memory, or anonymous mappings backed by transparent huge pages where
// the platform supports them.
package mem

import (
	"errors"
	"unsafe"
)

// Alignment is the byte alignment of every plane (one cache line).
const Alignment = 64

// ErrHugePagesUnsupported is returned when huge pages are requested on a
// platform without anonymous mappings.
var ErrHugePagesUnsupported = errors.New("mem: huge pages unsupported")

// AllocAligned allocates a byte slice of the given size with 64-byte alignment.
// The returned slice is guaranteed to start at a memory address divisible by 64.
func AllocAligned(size int) []byte {
	if size <= 0 {
		return nil
	}
	buf := make([]byte, size+Alignment)
	addr := uintptr(unsafe.Pointer(&buf[0])) //nolint:gosec // unsafe is required for memory alignment
	offset := (Alignment - (addr & (Alignment - 1))) & (Alignment - 1)
	return buf[offset : offset+uintptr(size)]
}

// Planes is a set of equally sized byte planes.
type Planes struct {
	Planes  [][]byte
	Huge    bool
	release func() error
}

// Close releases mapped memory. Heap planes are left to the garbage collector.
// The planes must not be used afterwards.
func (p *Planes) Close() error {
	if p == nil || p.release == nil {
		return nil
	}
	err := p.release()
	p.release = nil
	p.Planes = nil
	return err
}

// AllocPlanes returns count planes of size bytes each, 64-byte aligned and
// zeroed. With huge set, all planes share one anonymous mapping advised for
// transparent huge pages; if that fails the error is returned and the caller
// may fall back to huge=false.
func AllocPlanes(count, size int, huge bool) (*Planes, error) {
	if count <= 0 || size <= 0 {
		planes := make([][]byte, max(count, 0))
		for k := range planes {
			planes[k] = []byte{}
		}
		return &Planes{Planes: planes}, nil
	}
	if !huge {
		planes := make([][]byte, count)
		for k := range planes {
			planes[k] = AllocAligned(size)
		}
		return &Planes{Planes: planes}, nil
	}

	stride := roundUp(size, hugePageSize)
	region, release, err := mapHuge(stride * count)
	if err != nil {
		return nil, err
	}
	planes := make([][]byte, count)
	for k := range planes {
		planes[k] = region[k*stride : k*stride+size : k*stride+size]
	}
	return &Planes{Planes: planes, Huge: true, release: release}, nil
}

// hugePageSize is the transparent huge page size on x86-64 and arm64 Linux.
const hugePageSize = 2 << 20

func roundUp(n, m int) int {
	return (n + m - 1) / m * m
}
