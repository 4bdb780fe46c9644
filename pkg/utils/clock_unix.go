// pkg/utils/clock_unix.go

package utils

import "time"

var started = time.Now()

// Clock returns the wall time elapsed since the process started.
func Clock() time.Duration {
	return time.Since(started)
}
