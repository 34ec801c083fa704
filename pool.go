package eventloop

import "sync"

// pooledWorker is one persistent goroutine belonging to a [ThreadPool].
// Grounded on the original implementation's pooled_thread_impl: it waits on
// a condition variable shared with its pool for either a task or a quit
// signal, runs the task with the pool's lock released, then returns itself
// to the pool's idle list instead of exiting.
type pooledWorker struct {
	pool *ThreadPool
	cond *condVar // shares pool.mu

	// task, done, and quit are all guarded by pool.mu, not a private lock —
	// the worker and its pool share one mutex so that checking "is the pool
	// closed", picking an idle worker, and assigning it a task happen as one
	// atomic step from Spawn's point of view.
	task func()
	done chan struct{}
	quit bool
}

func (w *pooledWorker) run() {
	p := w.pool
	p.mu.Lock()
	for {
		for w.task == nil && !w.quit {
			w.cond.wait()
		}
		if w.task == nil {
			// Quit requested and nothing left assigned: exit for good.
			p.mu.Unlock()
			return
		}

		task := w.task
		done := w.done
		p.mu.Unlock()

		task()

		p.mu.Lock()
		w.task = nil
		w.done = nil
		p.releaseLocked(w)
		close(done)
	}
}

// ThreadPool is a reusable set of worker goroutines that a [Loop] can borrow
// to drive its dispatch, via [NewPooledLoop]. Workers are lazily created on
// first need and kept on an idle list for reuse rather than spawned fresh
// per [ThreadPool.Spawn] call.
type ThreadPool struct {
	mu        sync.Mutex
	idle      []*pooledWorker
	all       []*pooledWorker
	closed    bool
	wg        sync.WaitGroup
	logger    Logger
	closeOnce sync.Once
}

// NewThreadPool returns a ready-to-use [ThreadPool] with no workers yet;
// they are created as [ThreadPool.Spawn] needs them.
func NewThreadPool(opts ...PoolOption) *ThreadPool {
	cfg := newPoolConfig(opts)
	return &ThreadPool{logger: cfg.logger}
}

// AsyncTask is a handle to one unit of work spawned by [ThreadPool.Spawn].
type AsyncTask struct {
	done chan struct{}
}

// Join blocks until the task's function returns.
func (t AsyncTask) Join() {
	if t.done == nil {
		return
	}
	<-t.done
}

// Detach abandons the handle without waiting. The underlying worker still
// runs the function to completion and is still accounted for by the owning
// [ThreadPool.Close]; Detach only affects this particular handle.
func (t AsyncTask) Detach() {}

// getOrCreateWorkerLocked returns an idle worker, or spawns a new one, for
// immediate task assignment by the caller. Must be called with p.mu held.
func (p *ThreadPool) getOrCreateWorkerLocked() *pooledWorker {
	if n := len(p.idle); n > 0 {
		w := p.idle[n-1]
		p.idle = p.idle[:n-1]
		return w
	}

	w := &pooledWorker{pool: p}
	w.cond = newCondVar(&p.mu)
	p.all = append(p.all, w)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		w.run()
	}()

	p.logger.Log(Entry{Level: LevelDebug, Message: "thread pool spawned new worker", Fields: map[string]any{"pool_size": len(p.all)}})
	return w
}

// releaseLocked returns w to the idle list, unless the pool has since been
// closed (in which case w will see quit on its own and exit). Must be
// called with p.mu held.
func (p *ThreadPool) releaseLocked(w *pooledWorker) {
	if p.closed {
		return
	}
	p.idle = append(p.idle, w)
}

// Spawn hands f to an idle worker, or a freshly created one if none is
// idle, and returns an [AsyncTask] for it. It returns [ErrPoolClosed]
// wrapped via [wrapSpawnErr] if the pool has already been closed, along
// with a zero-value AsyncTask.
func (p *ThreadPool) Spawn(f func()) (AsyncTask, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return AsyncTask{}, wrapSpawnErr(ErrPoolClosed)
	}

	w := p.getOrCreateWorkerLocked()
	done := make(chan struct{})
	w.task = f
	w.done = done
	p.mu.Unlock()

	w.cond.signal()
	return AsyncTask{done: done}, nil
}

// Close marks the pool closed to further Spawn calls, signals every idle
// and in-flight worker to quit once its current task (if any) finishes, and
// blocks until all of them have returned. Safe to call more than once; only
// the first call does any work.
func (p *ThreadPool) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.idle = nil
		workers := p.all
		for _, w := range workers {
			w.quit = true
		}
		p.mu.Unlock()

		for _, w := range workers {
			w.cond.broadcast()
		}

		p.logger.Log(Entry{Level: LevelDebug, Message: "thread pool closing", Fields: map[string]any{"worker_count": len(workers)}})
		p.wg.Wait()
	})
}
