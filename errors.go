package eventloop

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by loop and pool operations. None of these are
// surfaced for the core dispatch/removal/timer protocol itself — per the
// spec, that surface is deliberately narrow and conveyed entirely through
// sentinel return values (a zero [TimerID], a silent no-op) rather than
// errors. These exist for the Go-specific ambient operations layered on top:
// starting a threadless loop, and spawning pool workers.
var (
	// ErrNotThreadless is returned by [Loop.Run] when called on a loop that
	// was not constructed with [NewThreadlessLoop].
	ErrNotThreadless = errors.New("eventloop: Run is only valid for a threadless loop")

	// ErrAlreadyRunning is returned by [Loop.Run] when called a second time.
	ErrAlreadyRunning = errors.New("eventloop: Run has already been called")

	// ErrSpawnFailed is returned by [NewPooledLoop] when the supplied pool
	// fails to spawn a worker goroutine for the loop's dispatch.
	ErrSpawnFailed = errors.New("eventloop: thread pool failed to spawn dispatch worker")

	// ErrPoolClosed is returned by [ThreadPool.Spawn] when called after
	// [ThreadPool.Close].
	ErrPoolClosed = errors.New("eventloop: thread pool is closed")
)

// wrapSpawnErr wraps cause under [ErrSpawnFailed] so callers can still
// errors.Is(err, ErrSpawnFailed) while retaining the original cause.
func wrapSpawnErr(cause error) error {
	return fmt.Errorf("%w: %w", ErrSpawnFailed, cause)
}
