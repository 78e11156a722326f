//go:build linux

package mem

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func mapHuge(size int) ([]byte, func() error, error) {
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, fmt.Errorf("mem: mmap %d bytes: %w", size, err)
	}
	if err := unix.Madvise(data, unix.MADV_HUGEPAGE); err != nil {
		_ = unix.Munmap(data)
		return nil, nil, fmt.Errorf("mem: madvise hugepage: %w", err)
	}
	return data, func() error { return unix.Munmap(data) }, nil
}
