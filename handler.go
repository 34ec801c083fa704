package eventloop

import (
	"sync"
	"time"
)

// Handler is the unit of dispatch bound to exactly one [Loop]. A concrete
// handler type embeds [HandlerBase] and implements Dispatch to receive
// events and firing timers from its loop.
//
//	type Echo struct {
//	    eventloop.HandlerBase
//	}
//
//	func (e *Echo) Dispatch(event eventloop.Event) {
//	    fmt.Println(event)
//	}
//
//	loop := eventloop.NewOwnedLoop()
//	echo := &Echo{}
//	loop.Attach(echo)
//	echo.Post("hello")
type Handler interface {
	// Dispatch is called on the owning loop's dispatch goroutine for every
	// event posted to this handler and every timer that fires for it. A
	// [TimerEvent] distinguishes timer deliveries from ordinary events.
	Dispatch(event Event)

	// base returns the embedded HandlerBase, giving the loop access to the
	// bookkeeping fields without exporting them.
	base() *HandlerBase
}

// HandlerBase binds a concrete [Handler] to one [Loop] and provides the
// methods a handler uses to talk back to its loop: posting events to
// itself, scheduling and cancelling timers, and removing itself. Every
// method here is safe to call from any goroutine, including from within the
// handler's own Dispatch.
//
// The zero value is not attached to any loop; use [Loop.Attach] to bind it
// before calling any other method.
type HandlerBase struct {
	loop     *Loop
	self     Handler
	mu       sync.Mutex
	removing bool
}

func (h *HandlerBase) base() *HandlerBase { return h }

// dispatcher returns the concrete Handler this base is embedded in, set by
// [Loop.Attach]. The loop calls Dispatch through this, never through
// HandlerBase directly — Go embedding gives the base no way to see the
// outer type's method on its own.
func (h *HandlerBase) dispatcher() Handler { return h.self }

// Loop returns the loop this handler is bound to, or nil if it has not yet
// been attached via [Loop.Attach].
func (h *HandlerBase) Loop() *Loop { return h.loop }

// Post enqueues event for delivery to this handler's Dispatch. It is a
// silent no-op if the handler is already removing.
func (h *HandlerBase) Post(event Event) {
	if h.loop == nil {
		return
	}
	h.loop.Post(h, event)
}

// AddTimer schedules a timer that fires after delay, delivering a
// [TimerEvent] to this handler's Dispatch. A zero interval makes it a
// one-shot timer; a positive interval makes it repeat every interval after
// the first firing.
//
// Returns the zero [TimerID] if the handler is already removing.
func (h *HandlerBase) AddTimer(delay, interval time.Duration) TimerID {
	if h.loop == nil {
		return 0
	}
	return h.loop.AddTimer(h, delay, interval)
}

// StopTimer cancels a timer previously returned by AddTimer. Stopping an
// already-fired one-shot timer, an unknown ID, or the zero TimerID is a
// silent no-op.
func (h *HandlerBase) StopTimer(id TimerID) {
	if h.loop == nil || id == 0 {
		return
	}
	h.loop.StopTimer(id)
}

// RemoveHandler detaches this handler from its loop: its pending events and
// live timers are discarded and Dispatch will not be called again once
// removal completes. Safe to call more than once, and safe to call from
// within the handler's own Dispatch (self-removal) or from any other
// goroutine (cross-thread removal, which blocks the caller until any
// in-flight Dispatch on this handler has returned).
func (h *HandlerBase) RemoveHandler() {
	if h.loop == nil {
		return
	}
	h.loop.removeHandler(h)
}

func (h *HandlerBase) markRemoving() bool {
	h.mu.Lock()
	already := h.removing
	h.removing = true
	h.mu.Unlock()
	return already
}

func (h *HandlerBase) isRemoving() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.removing
}
