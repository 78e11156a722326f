//go:build amd64 && !purego

package byteslice

import "golang.org/x/sys/cpu"

//go:generate sh -c "cd internal/avo && go run -tags avogen . -out ../../store_amd64.s -stubs ../../store_stub_amd64.go"

func initSIMDSelection() {
	if cpu.X86.HasSSE2 {
		storeStream = storeNonTemporal
		storeFence = storeSfence
		prefetchPlane = prefetchPlaneT0
		streamAvailable = true
	}
}

// prefetchPlaneT0 hints plane[off] into all cache levels. Offsets past the
// end of the plane are ignored.
func prefetchPlaneT0(plane []byte, off int) {
	if off < len(plane) {
		prefetchT0(&plane[off])
	}
}
