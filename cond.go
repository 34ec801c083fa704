package eventloop

import (
	"sync"
	"time"
)

// condVar is a condition variable with a timed wait, layered over
// [sync.Cond]. [sync.Cond] has no notion of a deadline; condVar adds one via
// a one-shot timer that re-acquires the lock and broadcasts on expiry.
//
// A spurious wakeup (timer fires at the same instant a real Signal/Broadcast
// happens, or the timer is not stopped in time) is harmless: every caller of
// waitUntil re-checks its own condition in a loop, per standard condvar
// discipline.
type condVar struct {
	mu *sync.Mutex
	c  *sync.Cond
}

func newCondVar(mu *sync.Mutex) *condVar {
	return &condVar{mu: mu, c: sync.NewCond(mu)}
}

// wait blocks until signalled. Must be called with mu held; releases it
// while blocked and re-acquires it before returning.
func (cv *condVar) wait() {
	cv.c.Wait()
}

// waitUntil blocks until signalled or deadline passes, whichever is first.
// Must be called with mu held. A non-positive duration until deadline
// returns immediately without blocking.
func (cv *condVar) waitUntil(deadline time.Time) {
	d := time.Until(deadline)
	if d <= 0 {
		return
	}
	timer := time.AfterFunc(d, func() {
		cv.mu.Lock()
		cv.c.Broadcast()
		cv.mu.Unlock()
	})
	defer timer.Stop()
	cv.c.Wait()
}

func (cv *condVar) signal() { cv.c.Signal() }

func (cv *condVar) broadcast() { cv.c.Broadcast() }
