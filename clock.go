package eventloop

import "time"

// Clock supplies monotonic "now" readings to a [Loop]. The default
// implementation ([systemClock]) wraps [time.Now], which on every supported
// platform carries a monotonic reading alongside the wall-clock one.
//
// Tests substitute a fake Clock to make timer behavior deterministic without
// sleeping real wall-clock time.
type Clock interface {
	Now() time.Time
}

// systemClock is the default [Clock], backed by [time.Now].
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
