package bridge

import (
	"context"
	"sync"

	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/conn"
	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/host"
	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/runtime"
	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/telemetry"
)

type awaitState uint8

const (
	statePending awaitState = iota
	stateReady
	stateCancelled
)

// Awaitable is the host facing side of an operation started with RunAsync
type Awaitable[R any] struct {
	mu     sync.Mutex
	state  awaitState
	value  R
	err    error
	waker  func()
	detach func()
	done   chan struct{}
	lock   host.Lock
}

func newAwaitable[R any](lock host.Lock) *Awaitable[R] {
	return &Awaitable[R]{done: make(chan struct{}), lock: lock}
}

// RunAsync starts op on the runtime and returns immediately. Capture and session clone
// happen here, with the host lock held; the lock is not released since spawning never
// blocks. The converted result is delivered on the bridge's loop.
func RunAsync[T, R any](ctx context.Context, b *Bridge, h *conn.Handle, labels telemetry.Labels, op Op[T], convert Convert[T, R]) *Awaitable[R] {
	a := newAwaitable[R](b.lock)
	var zero R

	captured := telemetry.Capture(ctx)
	session, err := h.Acquire()
	if err != nil {
		a.resolve(zero, MapError(err))
		return a
	}

	task, err := runtime.Spawn(b.sched, func() (T, error) {
		defer session.Release()
		value, err := execute(ctx, session, captured, labels, op)
		b.deliver(func() {
			if a.Cancelled() {
				plog.Debugf("%s finished after cancel, result discarded", labels.SpanName())
				return
			}
			if err != nil {
				a.resolve(zero, MapError(err))
				return
			}
			a.resolve(convert(value))
		})
		return value, err
	})
	if err != nil {
		session.Release()
		a.resolve(zero, MapError(err))
		return a
	}

	a.mu.Lock()
	a.detach = task.Detach
	a.mu.Unlock()
	return a
}

// deliver runs fn on the host loop. Without a usable loop fn runs on the calling worker
// after acquiring the host lock.
func (b *Bridge) deliver(fn func()) {
	if b.loop != nil {
		if err := b.loop.CallSoon(fn); err == nil {
			return
		}
		plog.Warningf("host loop closed, delivering result on the worker")
	}
	b.lock.Acquire()
	defer b.lock.Release()
	fn()
}

// --------------------------------------------------------------------------
// Awaitable API
// --------------------------------------------------------------------------

// Poll returns the result if the operation finished (ok is true). Otherwise wake is
// registered and called once the result was delivered. A later Poll replaces the waker.
func (a *Awaitable[R]) Poll(wake func()) (value R, err error, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch a.state {
	case stateReady:
		return a.value, a.err, true
	case stateCancelled:
		var zero R
		return zero, ErrCancelled, true
	default:
		a.waker = wake
		var zero R
		return zero, nil, false
	}
}

// Cancel abandons the operation. The runtime task keeps running to completion, its result
// is discarded. Returns false if the result was already delivered.
func (a *Awaitable[R]) Cancel() bool {
	a.mu.Lock()
	if a.state != statePending {
		a.mu.Unlock()
		return false
	}
	a.state = stateCancelled
	detach := a.detach
	waker := a.waker
	a.waker = nil
	close(a.done)
	a.mu.Unlock()

	if detach != nil {
		detach()
	}
	if waker != nil {
		waker()
	}
	return true
}

// Cancelled reports whether Cancel won against the result delivery
func (a *Awaitable[R]) Cancelled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state == stateCancelled
}

// Done is closed when the result was delivered or the awaitable was cancelled
func (a *Awaitable[R]) Done() <-chan struct{} {
	return a.done
}

// Wait blocks until Done and returns the result. If ctx ends first the awaitable is
// cancelled. Like the blocking calls it expects the caller to hold the host lock and gives
// it up while waiting, so a result delivered under the lock can arrive. With a host loop
// configured, the loop must be running for Wait to return.
func (a *Awaitable[R]) Wait(ctx context.Context) (R, error) {
	_, _ = withoutLock(a.lock, func() (struct{}, error) {
		select {
		case <-a.done:
		case <-ctx.Done():
			a.Cancel()
		}
		return struct{}{}, nil
	})
	value, err, _ := a.Poll(nil)
	return value, err
}

func (a *Awaitable[R]) resolve(value R, err error) {
	a.mu.Lock()
	if a.state != statePending {
		a.mu.Unlock()
		return
	}
	a.state = stateReady
	a.value = value
	a.err = err
	waker := a.waker
	a.waker = nil
	close(a.done)
	a.mu.Unlock()

	if waker != nil {
		waker()
	}
}
