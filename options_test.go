package eventloop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func TestWithClock_OverridesDefaultClock(t *testing.T) {
	fc := &fakeClock{now: time.Unix(1000, 0)}
	loop := NewThreadlessLoop(WithClock(fc))

	h := &recorder{}
	loop.Attach(h)
	h.AddTimer(time.Second, 0)

	loop.mu.Lock()
	due := loop.hasDueTimerLocked()
	loop.mu.Unlock()
	assert.False(t, due, "timer scheduled 1s out should not be due yet")

	fc.now = fc.now.Add(2 * time.Second)

	loop.mu.Lock()
	due = loop.hasDueTimerLocked()
	loop.mu.Unlock()
	assert.True(t, due, "timer should be due once the fake clock advances past its deadline")
}

type capturingLogger struct {
	entries []Entry
}

func (l *capturingLogger) Log(e Entry) {
	l.entries = append(l.entries, e)
}

func (l *capturingLogger) IsEnabled(LogLevel) bool { return true }

func TestWithLogger_ReceivesTimerLifecycleEntries(t *testing.T) {
	logger := &capturingLogger{}
	loop := NewThreadlessLoop(WithLogger(logger))

	h := &recorder{}
	loop.Attach(h)
	id := h.AddTimer(time.Hour, 0)
	h.StopTimer(id)

	assert.GreaterOrEqual(t, len(logger.entries), 2)
}

func TestDefaultLoopOptions(t *testing.T) {
	loop := NewThreadlessLoop()
	assert.IsType(t, systemClock{}, loop.clock)
	assert.IsType(t, noopLogger{}, loop.logger)
}
