//go:build !linux

package mem

func mapHuge(int) ([]byte, func() error, error) {
	return nil, nil, ErrHugePagesUnsupported
}
