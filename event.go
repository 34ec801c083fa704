package eventloop

import "time"

// Event is the opaque, polymorphic carrier delivered to a [Handler]'s
// [Handler.Dispatch]. Concrete event kinds are ordinary Go values,
// discriminated by a type switch (or by a stable "kind" field the caller
// defines on its own types) at the point of dispatch.
//
// An event is owned by whichever side currently holds it: the producer
// until it's handed to [Loop.Post], the loop until it's delivered, and then
// it is simply dropped (Go's GC reclaims it — there is no destroy step to
// author).
type Event = any

// TimerID uniquely identifies a live timer within one [Loop]. The zero
// value is a sentinel meaning "no timer" — returned by [Loop.AddTimer] when
// the target handler is already removing, and accepted as a no-op by
// [Loop.StopTimer].
type TimerID uint64

// TimerEvent is the [Event] delivered to a handler when one of its timers
// fires.
type TimerEvent struct {
	// ID is the firing timer's identifier, as returned by [Loop.AddTimer].
	ID TimerID
}

// timerEntry is the loop's internal bookkeeping for one live timer.
type timerEntry struct {
	id       TimerID
	handler  *HandlerBase
	deadline time.Time
	interval time.Duration // zero means one-shot
}

// pendingEvent is one FIFO entry in a loop's pending event queue.
type pendingEvent struct {
	handler *HandlerBase
	event   Event
}
