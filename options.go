package eventloop

// LoopOption configures a [Loop] at construction time via [NewOwnedLoop],
// [NewPooledLoop], or [NewThreadlessLoop].
type LoopOption interface {
	applyLoop(*loopConfig)
}

// PoolOption configures a [ThreadPool] at construction time via
// [NewThreadPool].
type PoolOption interface {
	applyPool(*poolConfig)
}

type loopConfig struct {
	clock  Clock
	logger Logger
}

type poolConfig struct {
	logger Logger
}

func newLoopConfig(opts []LoopOption) loopConfig {
	cfg := loopConfig{clock: systemClock{}, logger: noopLogger{}}
	for _, o := range opts {
		o.applyLoop(&cfg)
	}
	return cfg
}

func newPoolConfig(opts []PoolOption) poolConfig {
	cfg := poolConfig{logger: noopLogger{}}
	for _, o := range opts {
		o.applyPool(&cfg)
	}
	return cfg
}

type clockOption struct{ clock Clock }

func (o clockOption) applyLoop(c *loopConfig) { c.clock = o.clock }

// WithClock overrides a [Loop]'s source of "now", for deterministic timer
// tests. Default is the real wall clock.
func WithClock(c Clock) LoopOption {
	return clockOption{clock: c}
}

type loggerOption struct{ logger Logger }

func (o loggerOption) applyLoop(c *loopConfig) { c.logger = o.logger }
func (o loggerOption) applyPool(c *poolConfig) { c.logger = o.logger }

// WithLogger attaches a [Logger] to a [Loop] or [ThreadPool]. Default is a
// logger that discards every entry.
func WithLogger(l Logger) interface {
	LoopOption
	PoolOption
} {
	return loggerOption{logger: l}
}
