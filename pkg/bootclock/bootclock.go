// Package bootclock provides wall-clock style time derived from the
// process start tick, with an offset settable at runtime.
package bootclock

import (
	"fmt"
	"sync/atomic"
	"time"
)

// SetStatus is the closed result set of Set.
type SetStatus int

const (
	// SetOK indicates the offset was applied.
	SetOK SetStatus = iota
	// SetInvalidFormat indicates the input is not hh:mm:ss.
	SetInvalidFormat
	// SetInvalidValue indicates a field is out of range.
	SetInvalidValue
)

// Clock tracks milliseconds since start plus a settable offset.
type Clock struct {
	start  time.Time
	offset int64 // milliseconds, atomic
}

// New creates a Clock starting now.
func New() *Clock {
	return &Clock{start: time.Now()}
}

func (c *Clock) tick() int64 {
	return time.Since(c.start).Nanoseconds() / int64(time.Millisecond)
}

// TimeString formats the current clock value as HH:MM:SS.mmm.
func (c *Clock) TimeString() string {
	total := c.tick() + atomic.LoadInt64(&c.offset)
	hours := (total / 3600000) % 24
	minutes := (total / 60000) % 60
	seconds := (total / 1000) % 60
	millis := total % 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, seconds, millis)
}

// Set applies a clock value given as "hh:mm:ss".
func (c *Clock) Set(value string) SetStatus {
	var hours, minutes, seconds int64
	if n, err := fmt.Sscanf(value, "%2d:%2d:%2d", &hours, &minutes, &seconds); n != 3 || err != nil {
		return SetInvalidFormat
	}
	if hours < 0 || minutes < 0 || seconds < 0 {
		return SetInvalidFormat
	}
	// every field must consume exactly two digits, no trailing bytes
	if fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds) != value {
		return SetInvalidFormat
	}
	if hours >= 24 || minutes >= 60 || seconds >= 60 {
		return SetInvalidValue
	}
	atomic.StoreInt64(&c.offset, hours*3600000+minutes*60000+seconds*1000-c.tick())
	return SetOK
}
