package imports

import (
	"context"
	"time"
)

// Clock exposes wall and monotonic time to the module.
type Clock struct {
	startTime time.Time
}

func NewClock() *Clock {
	return &Clock{startTime: time.Now()}
}

func (c *Clock) Namespace() string {
	return "hostwire:clock"
}

// NowMillis returns wall-clock milliseconds since the Unix epoch.
func (c *Clock) NowMillis(_ context.Context) float64 {
	return float64(time.Now().UnixNano()) / float64(time.Millisecond)
}

// MonotonicNanos returns nanoseconds since the bridge started.
// Use for durations; it never jumps backwards.
func (c *Clock) MonotonicNanos(_ context.Context) uint64 {
	return uint64(time.Since(c.startTime).Nanoseconds())
}

// Resolution returns the monotonic clock resolution in nanoseconds.
func (c *Clock) Resolution(_ context.Context) uint64 {
	return 1
}
