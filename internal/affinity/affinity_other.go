//go:build !linux

package affinity

func bind(int) error {
	return ErrUnsupported
}

// Current is not available on this platform.
func Current() ([]int, error) {
	return nil, ErrUnsupported
}
