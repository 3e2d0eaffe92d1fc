package wire

import (
	"math"
	"time"
)

const (
	EraLength     int64 = 4_294_967_296 // 2^32
	UnixEraOffset int64 = 2_208_988_800 // 1970 - 1900 in seconds
)

// Acceptance window for decoded transmit timestamps.
const (
	minPlausibleSeconds int64 = 1_000_000_000 // uptime-reporting servers sit far below this
	UnixTimeMin         int64 = 946_684_800   // 2000-01-01T00:00:00Z
	UnixTimeMax         int64 = math.MaxInt32 // 2038-01-19, the 32-bit ceiling
)

// TimestampFromUnixSeconds places unix seconds in the upper half of a
// 64-bit NTP timestamp, leaving the fraction zero.
func TimestampFromUnixSeconds(sec int64) uint64 {
	return uint64(sec+UnixEraOffset) << 32
}

// TimestampFromTime converts a wall-clock time to the full 32.32 fixed-point
// NTP form, fraction included.
func TimestampFromTime(t time.Time) uint64 {
	sec := uint64(t.Unix()+UnixEraOffset) << 32
	frac := uint64(t.Nanosecond()) << 32 / 1_000_000_000
	return sec + frac
}

// TimestampToTime is the inverse of TimestampFromTime.
func TimestampToTime(ts uint64) time.Time {
	sec := int64(ts>>32) - UnixEraOffset
	usec := FractionToMicroseconds(uint32(ts))
	return time.Unix(sec, usec*1e3).UTC()
}

// FractionToMicroseconds scales a 32-bit fixed-point fraction to whole
// microseconds, truncating toward zero.
func FractionToMicroseconds(fraction uint32) int64 {
	return int64(fraction) * 1_000_000 >> 32
}
