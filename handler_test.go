package eventloop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHandlerBase_UnattachedIsInert(t *testing.T) {
	var h recorder

	assert.NotPanics(t, func() {
		h.Post("nowhere")
		h.StopTimer(TimerID(1))
		h.RemoveHandler()
	})
	assert.Zero(t, h.AddTimer(time.Millisecond, 0))
	assert.Nil(t, h.Loop())
}

func TestHandlerBase_RemoveHandlerIdempotent(t *testing.T) {
	loop := NewOwnedLoop()
	defer loop.Stop(true)

	h := &recorder{}
	loop.Attach(h)

	assert.NotPanics(t, func() {
		h.RemoveHandler()
		h.RemoveHandler()
		h.RemoveHandler()
	})
}

func TestHandlerBase_LoopReturnsAttachedLoop(t *testing.T) {
	loop := NewOwnedLoop()
	defer loop.Stop(true)

	h := &recorder{}
	loop.Attach(h)

	assert.Same(t, loop, h.Loop())
}
