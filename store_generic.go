//go:build !amd64 || purego

package byteslice

func initSIMDSelection() {}
