package byteslice

// Writer stores completed bitmap words. A scan calls Write once per word in
// increasing word order and Flush once after its last word. Implementations
// must be safe for concurrent use on disjoint words.
type Writer interface {
	Write(bitmap []uint64, i int, word uint64)
	Flush()
}

var (
	// PlainWriter stores words with ordinary stores.
	PlainWriter Writer = plainWriter{}

	// StreamWriter stores words with non-temporal stores that bypass the
	// cache where the CPU supports it (see IsStreamAvailable), and with
	// ordinary stores elsewhere. Flush orders the streamed stores before
	// the scan returns.
	StreamWriter Writer = streamWriter{}
)

type plainWriter struct{}

func (plainWriter) Write(bitmap []uint64, i int, word uint64) {
	bitmap[i] = word
}

func (plainWriter) Flush() {}

type streamWriter struct{}

func (streamWriter) Write(bitmap []uint64, i int, word uint64) {
	storeStream(&bitmap[i], word)
}

func (streamWriter) Flush() {
	storeFence()
}

// Platform hooks, replaced by initSIMDSelection where instructions exist.
var (
	storeStream   func(addr *uint64, v uint64) = storeStreamGeneric
	storeFence    func()                       = storeFenceGeneric
	prefetchPlane func(plane []byte, off int)  = prefetchGeneric
)

func storeStreamGeneric(addr *uint64, v uint64) {
	*addr = v
}

func storeFenceGeneric() {}

func prefetchGeneric([]byte, int) {}
