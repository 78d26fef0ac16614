// Package rostime implements the fixed-layout (sec, nsec) time and
// duration arithmetic used throughout ROS 1 bag messages and framing.
package rostime

import "fmt"

// Time is a ROS 1 `time` value: seconds and nanoseconds since the
// Unix epoch, each encoded on the wire as a little-endian uint32.
type Time struct {
	Sec  uint32
	Nsec uint32
}

// Duration is a ROS 1 `duration` value. Unlike Time its fields are
// signed, per the wire format.
type Duration struct {
	Sec  int32
	Nsec int32
}

// ToSec returns the time as fractional seconds.
func (t Time) ToSec() float64 {
	return float64(t.Sec) + float64(t.Nsec)/1e9
}

// ToNsec returns the time as total nanoseconds since the epoch.
func (t Time) ToNsec() int64 {
	return int64(t.Sec)*1e9 + int64(t.Nsec)
}

func (t Time) String() string {
	return fmt.Sprintf("%d.%09d", t.Sec, t.Nsec)
}

// Before reports whether t occurs strictly before o.
func (t Time) Before(o Time) bool {
	return t.Sec < o.Sec || (t.Sec == o.Sec && t.Nsec < o.Nsec)
}

// Compare returns -1, 0, or 1 depending on whether t is before, equal
// to, or after o.
func (t Time) Compare(o Time) int {
	switch {
	case t.Sec < o.Sec, t.Sec == o.Sec && t.Nsec < o.Nsec:
		return -1
	case t.Sec == o.Sec && t.Nsec == o.Nsec:
		return 0
	default:
		return 1
	}
}

// ToSec returns the duration as fractional seconds.
func (d Duration) ToSec() float64 {
	return float64(d.Sec) + float64(d.Nsec)/1e9
}

// ToNsec returns the duration as total nanoseconds.
func (d Duration) ToNsec() int64 {
	return int64(d.Sec)*1e9 + int64(d.Nsec)
}

func (d Duration) String() string {
	return fmt.Sprintf("%d.%09d", d.Sec, d.Nsec)
}
