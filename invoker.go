package eventloop

import "reflect"

// invokerHandler is a minimal [Handler] used internally by [MakeInvoker]: it
// exists only to give invoked calls a loop-bound identity to post through,
// never to receive ordinary application events.
type invokerHandler struct {
	HandlerBase
}

func (*invokerHandler) Dispatch(event Event) {
	if call, ok := event.(func()); ok {
		call()
	}
}

// MakeInvoker wraps f, a function of any signature, so that calling the
// returned function from any goroutine posts a one-shot event to loop and
// blocks until f has run on loop's dispatch goroutine with the supplied
// arguments; the returned function's own return values (if any) are f's.
//
// If the calling goroutine is already loop's dispatch goroutine, f runs
// immediately and synchronously rather than round-tripping through the
// queue — calling an invoker from within a handler's own Dispatch must not
// deadlock waiting for a dispatch pass that can't happen until the current
// one returns.
func MakeInvoker[F any](loop *Loop, f F) F {
	fv := reflect.ValueOf(f)
	if fv.Kind() != reflect.Func {
		panic("eventloop: MakeInvoker requires a function value")
	}
	ft := fv.Type()

	h := &invokerHandler{}
	loop.Attach(h)

	wrapper := reflect.MakeFunc(ft, func(args []reflect.Value) []reflect.Value {
		if loop.onDispatchGoroutine() {
			return fv.Call(args)
		}

		done := make(chan []reflect.Value, 1)
		h.Post(func() {
			done <- fv.Call(args)
		})
		return <-done
	})

	out := wrapper.Interface().(F)
	return out
}

// InvokerFactory lets a foreign event system (one this package does not
// drive directly) supply its own scheduling primitive for invoked calls,
// rather than going through a [Loop] at all. PostCallable must arrange for
// fn to run on whatever goroutine that system considers its own dispatch
// goroutine, and may call fn synchronously if the caller is already there.
type InvokerFactory interface {
	PostCallable(fn func())
}

// loopInvokerFactory adapts a [Loop] to [InvokerFactory].
type loopInvokerFactory struct {
	loop *Loop
	h    *invokerHandler
}

func (f *loopInvokerFactory) PostCallable(fn func()) {
	if f.loop.onDispatchGoroutine() {
		fn()
		return
	}
	f.h.Post(fn)
}

// GetInvokerFactory returns an [InvokerFactory] backed by loop, for use with
// [MakeInvokerFromFactory].
func GetInvokerFactory(loop *Loop) InvokerFactory {
	h := &invokerHandler{}
	loop.Attach(h)
	return &loopInvokerFactory{loop: loop, h: h}
}

// MakeInvokerFromFactory is [MakeInvoker] generalized over any
// [InvokerFactory], so code that already has a foreign event system's
// factory (rather than a [Loop]) can still get an invoker with the same
// semantics.
func MakeInvokerFromFactory[F any](factory InvokerFactory, f F) F {
	fv := reflect.ValueOf(f)
	if fv.Kind() != reflect.Func {
		panic("eventloop: MakeInvokerFromFactory requires a function value")
	}
	ft := fv.Type()

	wrapper := reflect.MakeFunc(ft, func(args []reflect.Value) []reflect.Value {
		done := make(chan []reflect.Value, 1)
		factory.PostCallable(func() {
			done <- fv.Call(args)
		})
		return <-done
	})

	return wrapper.Interface().(F)
}
