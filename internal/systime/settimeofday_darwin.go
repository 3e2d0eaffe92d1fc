package systime

import (
	"time"

	"golang.org/x/sys/unix"
)

// Step hard-sets the system clock to t.
func Step(t time.Time) error {
	timeVal := unix.Timeval{
		Sec:  t.Unix(),
		Usec: int32(t.Nanosecond() / 1e3),
	}
	return unix.Settimeofday(&timeVal)
}
