// Package affinity pins scan workers to CPUs.
package affinity

import (
	"errors"
	"runtime"
)

// ErrUnsupported is returned by Bind where thread affinity cannot be set.
var ErrUnsupported = errors.New("affinity: unsupported on this platform")

// CPU returns the CPU that worker w of workers is pinned to. Workers are
// spread round-robin over the CPUs usable by the process.
func CPU(worker int) int {
	n := runtime.NumCPU()
	if n < 1 {
		return 0
	}
	return worker % n
}

// Bind locks the calling goroutine to its OS thread and pins the thread to
// CPU(worker). Call Unbind when the worker is done. Bind returns
// ErrUnsupported on platforms without thread affinity; the goroutine is then
// still locked to its thread.
func Bind(worker int) error {
	runtime.LockOSThread()
	return bind(CPU(worker))
}

// Unbind releases the thread lock taken by Bind. The thread keeps its CPU
// mask.
func Unbind() {
	runtime.UnlockOSThread()
}
