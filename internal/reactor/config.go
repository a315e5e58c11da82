package reactor

import "runtime"

// Config tunes a Loop.
type Config struct {
	PoolSize       int // concurrent QueueWork jobs
	ReadBufferSize int // per-stream read buffer
	Backlog        int // accepted connections held for Accept
	IngressBatch   int // posted callbacks run per iteration before timers are checked again
}

// DefaultConfig returns the defaults: a pool of 4, 64KiB read buffers.
func DefaultConfig() Config {
	return Config{
		PoolSize:       4,
		ReadBufferSize: 64 * 1024,
		Backlog:        128,
		IngressBatch:   256,
	}
}

// Effective returns c with unset fields defaulted and the pool capped, as a
// Loop built from c would run.
func (c Config) Effective() Config { return c.normalized() }

func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.PoolSize <= 0 {
		c.PoolSize = def.PoolSize
	}
	if c.PoolSize > 32*runtime.GOMAXPROCS(0) {
		c.PoolSize = 32 * runtime.GOMAXPROCS(0)
	}
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = def.ReadBufferSize
	}
	if c.Backlog <= 0 {
		c.Backlog = def.Backlog
	}
	if c.IngressBatch <= 0 {
		c.IngressBatch = def.IngressBatch
	}
	return c
}
