// Package systime adjusts the operating system clock, either stepping it
// outright or slewing small offsets through the kernel.
package systime

import "time"

// splitOffset decomposes an offset into whole seconds plus a non-negative
// microsecond remainder, the form kernel adjustment calls expect.
func splitOffset(offset time.Duration) (sec, usec int64) {
	sec = int64(offset / time.Second)
	usec = int64(offset % time.Second / time.Microsecond)
	if usec < 0 {
		sec--
		usec += 1_000_000
	}
	return sec, usec
}
