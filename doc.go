// Package eventloop provides a threaded event dispatch core: a loop that
// serialises delivery of typed events and expiring timers to registered
// handlers, plus an invoker that turns arbitrary callables into safe
// cross-goroutine schedulings onto a loop.
//
// # Architecture
//
// A [Loop] owns a pending event queue and a timer collection, both protected
// by a single mutex, and dispatches both from exactly one goroutine — either
// one it spawns itself ([NewOwnedLoop]), one borrowed from a [ThreadPool]
// ([NewPooledLoop]), or the caller's own goroutine, driven via [Loop.Run]
// ([NewThreadlessLoop]). Handlers embed [HandlerBase], which binds them to
// exactly one loop and participates in that loop's removal protocol.
//
// [MakeInvoker] wraps an arbitrary function so that calling it from any
// goroutine posts a one-shot event to the loop; the function body always
// runs on the loop goroutine.
//
// # Dispatch order
//
// Each pass of the dispatch loop fires one expired timer or, if no timer is
// due, processes one queued event. A repeating timer whose interval is short
// enough that it is always due again by the next pass can therefore starve
// the event queue — this is an accepted trade-off, not a defect.
//
// # Thread safety
//
// [Loop.Post], [Loop.AddTimer], [Loop.StopTimer], and
// [HandlerBase.RemoveHandler] are safe to call from any goroutine.
// [Loop.FilterEvents] blocks the dispatch goroutine while it runs and must
// not call back into the loop.
//
// # Usage
//
//	loop := eventloop.NewOwnedLoop()
//	defer loop.Stop(true)
//
//	inc := eventloop.MakeInvoker(loop, func(n int) {
//	    fmt.Println("incremented by", n)
//	})
//	inc(1) // runs on loop's goroutine, safe to call from anywhere
package eventloop
