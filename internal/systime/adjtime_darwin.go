package systime

import (
	"time"

	"golang.org/x/sys/unix"
)

// Slew smears a small offset into the kernel clock discipline instead of
// stepping the clock.
func Slew(offset time.Duration) error {
	sec, usec := splitOffset(offset)
	timeVal := unix.Timeval{Sec: sec, Usec: int32(usec)}
	return unix.Adjtime(&timeVal, nil)
}
