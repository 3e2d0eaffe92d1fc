package ntplite

import (
	"time"

	"github.com/ntplite/ntplite/internal/systime"
)

// Clock abstracts reading and writing the host's wall clock.
type Clock interface {
	Now() time.Time
	Set(t time.Time) error
}

// stepThreshold is the classic 128ms boundary between slewing and stepping
// the system clock.
const stepThreshold = 128 * time.Millisecond

// SystemClock applies corrections to the operating system clock: small
// errors are slewed through the kernel clock discipline, large ones step
// the clock outright.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

func (SystemClock) Set(t time.Time) error {
	offset := time.Until(t)
	if offset > -stepThreshold && offset < stepThreshold {
		return systime.Slew(offset)
	}
	return systime.Step(t)
}
