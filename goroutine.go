package eventloop

import "runtime"

// goroutineID returns the calling goroutine's runtime-assigned ID, parsed
// out of the leading "goroutine N " line of a stack trace. There is no
// public API for this; it's the same technique used by every reactor-style
// Go library that needs to tell its own event-loop goroutine apart from
// everyone else's.
//
// The ID is only ever compared for equality against another ID obtained the
// same way (see [Loop]'s loopGoroutineID); it is never parsed for display.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] < '0' || buf[i] > '9' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}
