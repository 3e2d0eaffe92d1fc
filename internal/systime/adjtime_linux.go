//go:build aix || dragonfly || freebsd || (js && wasm) || linux || nacl || netbsd || openbsd || solaris

package systime

import (
	"time"

	"golang.org/x/sys/unix"
)

// Slew smears a small offset into the kernel clock discipline instead of
// stepping the clock.
func Slew(offset time.Duration) error {
	sec, usec := splitOffset(offset)
	buf := &unix.Timex{
		Time:  unix.Timeval{Sec: sec, Usec: usec},
		Modes: unix.ADJ_SETOFFSET,
	}
	_, err := unix.Adjtimex(buf)
	return err
}
