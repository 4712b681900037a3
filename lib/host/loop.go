package host

import (
	"context"
	"errors"
	"sync"

	"github.com/eapache/queue"
)

// ErrLoopClosed is returned when scheduling on a stopped loop
var ErrLoopClosed = errors.New("host: event loop closed")

// Loop is the event loop of the host. Callbacks can be scheduled from any goroutine and run
// one after another on the goroutine executing Run, each while holding the host lock.
type Loop struct {
	lock Lock

	mu      sync.Mutex
	ready   *queue.Queue
	wake    chan struct{}
	stopped bool
}

// NewLoop creates a loop that runs its callbacks under lock
func NewLoop(lock Lock) *Loop {
	if lock == nil {
		lock = NoLock{}
	}
	return &Loop{
		lock:  lock,
		ready: queue.New(),
		wake:  make(chan struct{}, 1),
	}
}

// Lock returns the lock the loop runs callbacks under
func (l *Loop) Lock() Lock {
	return l.lock
}

// CallSoon schedules fn on the loop. Safe for concurrent use.
func (l *Loop) CallSoon(fn func()) error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return ErrLoopClosed
	}
	l.ready.Add(fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

// Pending returns the number of scheduled callbacks
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ready.Length()
}

// Run executes callbacks until ctx ends or Stop is called. Callbacks still queued when the
// loop stops are dropped.
func (l *Loop) Run(ctx context.Context) error {
	for {
		for {
			fn, ok := l.next()
			if !ok {
				break
			}
			l.lock.Acquire()
			fn()
			l.lock.Release()
		}

		l.mu.Lock()
		stopped := l.stopped
		l.mu.Unlock()
		if stopped {
			return nil
		}

		select {
		case <-ctx.Done():
			l.Stop()
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// RunOnce executes all callbacks that are currently queued and returns their number
func (l *Loop) RunOnce() int {
	n := 0
	for {
		fn, ok := l.next()
		if !ok {
			return n
		}
		l.lock.Acquire()
		fn()
		l.lock.Release()
		n++
	}
}

// Stop ends Run and rejects further callbacks
func (l *Loop) Stop() {
	l.mu.Lock()
	l.stopped = true
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ready.Length() == 0 {
		return nil, false
	}
	return l.ready.Remove().(func()), true
}
