//go:build !linux

package monitor

import "time"

func threadCPUTime() (time.Duration, bool) {
	return 0, false
}
