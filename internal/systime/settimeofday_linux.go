//go:build aix || dragonfly || freebsd || (js && wasm) || linux || nacl || netbsd || openbsd || solaris

package systime

import (
	"time"

	"golang.org/x/sys/unix"
)

// Step hard-sets the system clock to t.
func Step(t time.Time) error {
	timeVal := unix.Timeval{
		Sec:  t.Unix(),
		Usec: int64(t.Nanosecond() / 1e3),
	}
	return unix.Settimeofday(&timeVal)
}
