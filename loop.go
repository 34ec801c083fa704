package eventloop

import (
	"container/list"
	"runtime"
	"sync"
	"time"
)

// loopMode records which of the three construction modes a [Loop] was
// built with; it governs what [Loop.Run] and [Loop.Stop] are allowed to do.
type loopMode int

const (
	modeOwned loopMode = iota
	modePooled
	modeThreadless
)

// Loop serialises delivery of posted events and firing timers to the
// handlers attached to it. Exactly one goroutine ever runs a given Loop's
// dispatch: one it spawns itself ([NewOwnedLoop]), one borrowed from a
// [ThreadPool] ([NewPooledLoop]), or the caller's own goroutine, driven by a
// single call to [Loop.Run] ([NewThreadlessLoop]).
//
// All exported methods are safe to call from any goroutine.
type Loop struct {
	clock  Clock
	logger Logger
	mode   loopMode

	mu   sync.Mutex
	cond *condVar

	pending *list.List // of *pendingEvent
	timers  map[TimerID]*timerEntry
	nextID  TimerID

	// nextDeadline caches the minimum deadline across timers, so the
	// dispatch loop's wait doesn't have to rescan the full timer set every
	// pass. Invariant: present (ok==true) iff timers is non-empty, and when
	// present it equals the true minimum deadline over timers.
	//
	// StopTimer does not eagerly restore this invariant when it removes the
	// timer that happens to be the cached minimum — it only recomputes when
	// the timer collection becomes empty. A stale cache makes the dispatch
	// goroutine wake up once for a deadline that no longer exists, find
	// nothing to do, and recompute before waiting again. This is a harmless,
	// intentional trade-off, not a bug to fix.
	nextDeadline    time.Time
	haveNextDeadline bool

	running         bool
	stopped         bool
	loopGoroutineID uint64
	haveGoroutineID bool

	// activeHandler is the handler currently inside its Dispatch call, or
	// nil. The removal protocol spins on this to avoid tearing down a
	// handler's state while its Dispatch is executing.
	activeHandler *HandlerBase

	pool     *ThreadPool
	poolTask AsyncTask

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{} // closed when dispatchMain returns (owned mode only)
}

func newLoop(mode loopMode, opts []LoopOption) *Loop {
	cfg := newLoopConfig(opts)
	l := &Loop{
		clock:   cfg.clock,
		logger:  cfg.logger,
		mode:    mode,
		pending: list.New(),
		timers:  make(map[TimerID]*timerEntry),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	l.cond = newCondVar(&l.mu)
	return l
}

// NewOwnedLoop constructs a Loop that immediately spawns and owns its own
// dispatch goroutine.
func NewOwnedLoop(opts ...LoopOption) *Loop {
	l := newLoop(modeOwned, opts)
	l.running = true
	go l.dispatchMain()
	return l
}

// NewPooledLoop constructs a Loop whose dispatch goroutine is borrowed from
// pool rather than spawned directly. Returns [ErrSpawnFailed] (wrapping the
// pool's error) if the pool cannot spawn a worker.
func NewPooledLoop(pool *ThreadPool, opts ...LoopOption) (*Loop, error) {
	l := newLoop(modePooled, opts)
	l.pool = pool
	task, err := pool.Spawn(l.dispatchMain)
	if err != nil {
		return nil, err
	}
	l.running = true
	l.poolTask = task
	return l, nil
}

// NewThreadlessLoop constructs a Loop with no dispatch goroutine of its
// own. The caller must call [Loop.Run] exactly once, on whichever goroutine
// it wants to drive dispatch; Run blocks until [Loop.Stop] and a second call
// returns [ErrAlreadyRunning].
func NewThreadlessLoop(opts ...LoopOption) *Loop {
	return newLoop(modeThreadless, opts)
}

// Attach binds h to l. h must not already be attached to a loop.
func (l *Loop) Attach(h Handler) {
	hb := h.base()
	hb.loop = l
	hb.self = h
}

// Post enqueues event for delivery to h's Dispatch. No-op if h is already
// removing. Safe to call from any goroutine; equivalent to [HandlerBase.Post]
// called on h.
func (l *Loop) Post(h *HandlerBase, event Event) {
	l.mu.Lock()
	if h.isRemovingLocked() {
		l.mu.Unlock()
		return
	}
	l.pending.PushBack(&pendingEvent{handler: h, event: event})
	l.mu.Unlock()
	l.cond.signal()
}

func (h *HandlerBase) isRemovingLocked() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.removing
}

// AddTimer schedules a timer for h, firing after delay and then (if interval
// is positive) repeating every interval. Returns 0 if h is removing.
// Equivalent to [HandlerBase.AddTimer] called on h.
func (l *Loop) AddTimer(h *HandlerBase, delay, interval time.Duration) TimerID {
	l.mu.Lock()
	defer l.mu.Unlock()

	if h.isRemovingLocked() {
		return 0
	}

	l.nextID++
	id := l.nextID
	deadline := l.clock.Now().Add(delay)
	l.timers[id] = &timerEntry{id: id, handler: h, deadline: deadline, interval: interval}

	if !l.haveNextDeadline || deadline.Before(l.nextDeadline) {
		l.nextDeadline = deadline
		l.haveNextDeadline = true
	}

	l.logger.Log(Entry{Level: LevelDebug, Message: "timer added", Fields: map[string]any{"timer_id": uint64(id)}})

	l.cond.signal()
	return id
}

// StopTimer cancels a live timer. No-op if id is unknown. Equivalent to
// [HandlerBase.StopTimer] called on the handler that owns id.
//
// Per the preserved invariant above, this only recomputes nextDeadline when
// the timer collection becomes empty as a result; otherwise a stale cache
// is left in place.
func (l *Loop) StopTimer(id TimerID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.timers[id]; !ok {
		return
	}
	delete(l.timers, id)

	if len(l.timers) == 0 {
		l.haveNextDeadline = false
	}

	l.logger.Log(Entry{Level: LevelDebug, Message: "timer stopped", Fields: map[string]any{"timer_id": uint64(id)}})
}

// FilterEvents removes every pending event for which keep returns false.
// Runs synchronously on the calling goroutine while holding the loop's
// internal lock; keep must not call back into the loop (Post, AddTimer,
// RemoveHandler, etc.) or it will deadlock. A panic from keep is recovered,
// logged at error level, and treated as "keep this event and stop
// filtering the rest of the queue".
func (l *Loop) FilterEvents(keep func(h *HandlerBase, event Event) bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var next *list.Element
	for e := l.pending.Front(); e != nil; e = next {
		next = e.Next()
		pe := e.Value.(*pendingEvent)

		keepIt, ok := l.safeFilter(keep, pe)
		if !ok {
			return
		}
		if !keepIt {
			l.pending.Remove(e)
		}
	}
}

func (l *Loop) safeFilter(keep func(h *HandlerBase, event Event) bool, pe *pendingEvent) (keepIt, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Log(Entry{Level: LevelError, Message: "FilterEvents predicate panicked", Fields: map[string]any{"recovered": r}})
			keepIt, ok = true, false
		}
	}()
	return keep(pe.handler, pe.event), true
}

// removeHandler runs the removal protocol for h: mark it removing, scrub
// its pending events and timers, then wait for any in-flight Dispatch on h
// to finish — unless this call is itself happening from within that
// Dispatch (self-removal), in which case there is nothing to wait for.
func (l *Loop) removeHandler(h *HandlerBase) {
	alreadyRemoving := h.markRemoving()
	if alreadyRemoving {
		return
	}

	selfRemoval := l.onDispatchGoroutine() && l.currentActiveHandler() == h

	l.mu.Lock()
	l.scrubLocked(h)
	l.mu.Unlock()

	if selfRemoval {
		l.logger.Log(Entry{Level: LevelDebug, Message: "handler self-removed"})
		return
	}

	// Cross-goroutine removal: spin until h is no longer the active
	// handler. The loop releases and re-acquires its own lock between
	// checks (unlock -> yield -> lock) so the dispatch goroutine can make
	// progress and eventually clear activeHandler.
	for {
		l.mu.Lock()
		active := l.activeHandler == h
		l.mu.Unlock()
		if !active {
			break
		}
		runtime.Gosched()
	}

	l.logger.Log(Entry{Level: LevelDebug, Message: "handler removed"})
}

func (l *Loop) scrubLocked(h *HandlerBase) {
	var next *list.Element
	for e := l.pending.Front(); e != nil; e = next {
		next = e.Next()
		if e.Value.(*pendingEvent).handler == h {
			l.pending.Remove(e)
		}
	}

	for id, t := range l.timers {
		if t.handler == h {
			delete(l.timers, id)
		}
	}
	if len(l.timers) == 0 {
		l.haveNextDeadline = false
	}
}

func (l *Loop) onDispatchGoroutine() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.haveGoroutineID && l.loopGoroutineID == goroutineID()
}

func (l *Loop) currentActiveHandler() *HandlerBase {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.activeHandler
}

// dispatchMain is the body run by the loop's own goroutine (owned or
// pooled modes). It records goroutine identity once, then runs the same
// step loop Run uses, stopping as soon as it observes that Stop has been
// requested.
func (l *Loop) dispatchMain() {
	defer close(l.doneCh)

	l.mu.Lock()
	l.loopGoroutineID = goroutineID()
	l.haveGoroutineID = true
	l.mu.Unlock()

	for {
		stop := l.step(true)
		if stop {
			return
		}
	}
}

// Run drives dispatch on the calling goroutine until [Loop.Stop] is called;
// events and timers still pending at that point are discarded by Stop, not
// delivered. It is only valid for a loop constructed
// with [NewThreadlessLoop]; any other loop returns [ErrNotThreadless]
// immediately. Calling Run a second time — concurrently or after the first
// call has returned — returns [ErrAlreadyRunning] instead of driving
// dispatch again.
func (l *Loop) Run() error {
	if l.mode != modeThreadless {
		return ErrNotThreadless
	}

	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return ErrAlreadyRunning
	}
	l.running = true
	l.loopGoroutineID = goroutineID()
	l.haveGoroutineID = true
	l.mu.Unlock()

	for {
		if l.step(true) {
			return nil
		}
	}
}

// step performs one pass of the dispatch algorithm: wait for work (if
// blocking is true) or poll without blocking, then run either one due timer
// or, if no timer is due, one queued event. Returns true when the loop should
// stop iterating.
func (l *Loop) step(blocking bool) bool {
	l.mu.Lock()

	for {
		// Quit is checked first, unconditionally: once observed, the loop
		// exits immediately rather than draining whatever is left in the
		// queue or timer set. Stop itself discards that remaining state, so
		// a timer that keeps re-arming before this check runs again (a
		// repeater with a very short interval, or one under enough load to
		// always have a due entry) can never make hasDueTimerLocked stay true forever and
		// block Stop(true) from returning.
		if l.stopped {
			l.mu.Unlock()
			return true
		}

		if l.hasDueTimerLocked() || l.pending.Len() > 0 {
			break
		}
		if !blocking {
			l.mu.Unlock()
			return false
		}

		if l.haveNextDeadline {
			l.cond.waitUntil(l.nextDeadline)
		} else {
			l.cond.wait()
		}
	}

	// Timers strictly before events, every pass: a repeating timer that is
	// always due again by the next pass can starve the event queue
	// indefinitely. Accepted trade-off, not fixed here.
	timer, haveTimer := l.popDueTimerLocked()
	var pe *pendingEvent
	if !haveTimer {
		pe = l.popPendingLocked()
	}
	l.mu.Unlock()

	if haveTimer {
		l.dispatchTimer(timer)
	} else if pe != nil {
		l.dispatchEvent(pe)
	}

	return false
}

func (l *Loop) hasDueTimerLocked() bool {
	if !l.haveNextDeadline {
		return false
	}
	return !l.clock.Now().Before(l.nextDeadline)
}

// popDueTimerLocked finds and removes (or reschedules, if repeating) the
// single most-due timer, recomputing nextDeadline from the remaining set.
// Ties among simultaneously due timers are broken by ascending TimerID —
// an arbitrary but stable choice, since the spec leaves tie order
// unspecified.
func (l *Loop) popDueTimerLocked() (*timerEntry, bool) {
	if !l.hasDueTimerLocked() {
		return nil, false
	}

	now := l.clock.Now()
	var chosen *timerEntry
	for _, t := range l.timers {
		if t.deadline.After(now) {
			continue
		}
		if chosen == nil || t.deadline.Before(chosen.deadline) || (t.deadline.Equal(chosen.deadline) && t.id < chosen.id) {
			chosen = t
		}
	}
	if chosen == nil {
		// The cached deadline was stale (its timer was stopped or removed):
		// refresh it so the next wait targets a live timer.
		l.recomputeNextDeadlineLocked()
		return nil, false
	}

	fired := *chosen
	if chosen.interval > 0 {
		// Re-arm from now, not from the old deadline: no catch-up. A loop
		// that falls behind skips missed firings rather than bursting them.
		chosen.deadline = now.Add(chosen.interval)
	} else {
		delete(l.timers, chosen.id)
	}

	l.recomputeNextDeadlineLocked()
	return &fired, true
}

func (l *Loop) recomputeNextDeadlineLocked() {
	if len(l.timers) == 0 {
		l.haveNextDeadline = false
		return
	}
	var earliest time.Time
	for _, t := range l.timers {
		if earliest.IsZero() || t.deadline.Before(earliest) {
			earliest = t.deadline
		}
	}
	l.nextDeadline = earliest
	l.haveNextDeadline = true
}

func (l *Loop) popPendingLocked() *pendingEvent {
	e := l.pending.Front()
	if e == nil {
		return nil
	}
	l.pending.Remove(e)
	return e.Value.(*pendingEvent)
}

func (l *Loop) dispatchTimer(t *timerEntry) {
	if t.handler.isRemoving() {
		return
	}
	l.runDispatch(t.handler, TimerEvent{ID: t.id})
}

func (l *Loop) dispatchEvent(pe *pendingEvent) {
	if pe.handler.isRemoving() {
		return
	}
	l.runDispatch(pe.handler, pe.event)
}

func (l *Loop) runDispatch(h *HandlerBase, event Event) {
	l.mu.Lock()
	// Re-check under the loop lock so a concurrent removeHandler either sees
	// h as active (and waits) or has already marked it removing (and h is
	// skipped here).
	if h.isRemoving() {
		l.mu.Unlock()
		return
	}
	l.activeHandler = h
	l.mu.Unlock()

	func() {
		defer func() {
			if r := recover(); r != nil {
				l.logger.Log(Entry{Level: LevelError, Message: "handler Dispatch panicked", Fields: map[string]any{"recovered": r}})
			}
		}()
		h.dispatcher().Dispatch(event)
	}()

	l.mu.Lock()
	l.activeHandler = nil
	l.mu.Unlock()
}

// Stop requests that the loop stop dispatching. Any event still in the
// pending queue and any timer still registered is discarded, not delivered
// — per the "no persistence of pending events across a stop" rule, nothing
// queued survives a Stop. If join is true and the loop owns or borrowed its
// dispatch goroutine, Stop blocks until that goroutine has returned. Stop on
// a threadless loop never blocks, even with join set; the in-progress
// [Loop.Run] call observes the stop flag on its next internal step and
// returns.
func (l *Loop) Stop(join bool) {
	l.stopOnce.Do(func() {
		l.mu.Lock()
		l.stopped = true
		l.pending.Init()
		l.timers = make(map[TimerID]*timerEntry)
		l.haveNextDeadline = false
		l.mu.Unlock()
		l.cond.broadcast()
		close(l.stopCh)
	})

	if !join {
		return
	}
	switch l.mode {
	case modeOwned:
		<-l.doneCh
	case modePooled:
		l.poolTask.Join()
	case modeThreadless:
		// nothing to join; the caller drives Run itself.
	}
}
