package host

import (
	"sync"
	"sync/atomic"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// Lock is the exclusivity lock of the host: only the goroutine holding it may call into
// host owned state. The execution bridge releases it for the duration of network calls and
// reacquires it before converting results.
type Lock interface {
	// Acquire blocks until the caller holds the lock
	Acquire()
	// Release gives the lock up. Must only be called by the holder.
	Release()
}

// --------------------------------------------------------------------------
// GIL
// --------------------------------------------------------------------------

// GIL is a single-holder lock with instrumentation. It models a host interpreter in which
// exactly one thread executes interpreted code at a time.
type GIL struct {
	mu       sync.Mutex
	held     atomic.Bool
	acquires atomic.Int64
	releases atomic.Int64
}

// NewGIL returns an unheld lock
func NewGIL() *GIL {
	return &GIL{}
}

func (g *GIL) Acquire() {
	g.mu.Lock()
	g.held.Store(true)
	g.acquires.Add(1)
}

func (g *GIL) Release() {
	if !g.held.Swap(false) {
		panic("host: release of an unheld lock")
	}
	g.releases.Add(1)
	g.mu.Unlock()
}

// Held reports whether some goroutine currently holds the lock
func (g *GIL) Held() bool {
	return g.held.Load()
}

// Do runs fn while holding the lock, like a host thread running interpreted code
func (g *GIL) Do(fn func()) {
	g.Acquire()
	defer g.Release()
	fn()
}

// Stats returns how often the lock was acquired and released
func (g *GIL) Stats() (acquires, releases int64) {
	return g.acquires.Load(), g.releases.Load()
}

// --------------------------------------------------------------------------
// NoLock
// --------------------------------------------------------------------------

// NoLock is used by hosts without an exclusivity constraint
type NoLock struct{}

func (NoLock) Acquire() {}
func (NoLock) Release() {}
