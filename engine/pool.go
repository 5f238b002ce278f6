package engine

import (
	"sync"

	"github.com/hupe1980/httpflow/core"
	"github.com/hupe1980/httpflow/logging"
)

// DefaultMaxIdle is the number of idle multiplexing handles a pool retains.
// Handles released beyond this bound are closed and discarded.
const DefaultMaxIdle = 3

// PoolOptions holds overrides passed to NewHandlePool.
type PoolOptions struct {
	// MaxIdle caps the idle free-list.
	MaxIdle int
	// Logger receives pool diagnostics.
	Logger logging.Logger
}

// HandlePool is a bounded free-list of multiplexing handles. Handles are
// relatively expensive to create, so a small number of idle ones is kept for
// reuse; unbounded retention would waste resources.
//
// Checkout and Release are safe for concurrent use: batches running on
// separate goroutines share one pool, and no two of them can claim the same
// idle handle.
type HandlePool struct {
	newHandle func() core.MultiHandle
	logger    logging.Logger

	mu      sync.Mutex
	idle    []core.MultiHandle
	maxIdle int
}

// NewHandlePool creates a pool that builds handles with newHandle on cache
// misses.
func NewHandlePool(newHandle func() core.MultiHandle, optFns ...func(o *PoolOptions)) *HandlePool {
	opts := PoolOptions{MaxIdle: DefaultMaxIdle, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &HandlePool{
		newHandle: newHandle,
		logger:    opts.Logger,
		maxIdle:   opts.MaxIdle,
	}
}

// Checkout returns an idle handle or creates a new one.
func (p *HandlePool) Checkout() core.MultiHandle {
	p.mu.Lock()
	if n := len(p.idle); n > 0 {
		h := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		p.logger.Debug("multiplexing handle checked out", "idle", n-1)
		return h
	}
	p.mu.Unlock()

	p.logger.Debug("multiplexing handle created")
	return p.newHandle()
}

// Release returns a handle to the idle free-list, closing and discarding it
// instead when the pool already holds its maximum of idle handles.
func (p *HandlePool) Release(h core.MultiHandle) {
	p.mu.Lock()
	if len(p.idle) < p.maxIdle {
		p.idle = append(p.idle, h)
		n := len(p.idle)
		p.mu.Unlock()
		p.logger.Debug("multiplexing handle released", "idle", n)
		return
	}
	p.mu.Unlock()

	_ = h.Close()
	p.logger.Debug("multiplexing handle discarded")
}

// IdleCount reports the number of handles currently idle in the pool.
func (p *HandlePool) IdleCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// Close discards every idle handle.
func (p *HandlePool) Close() {
	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	for _, h := range idle {
		_ = h.Close()
	}
}
