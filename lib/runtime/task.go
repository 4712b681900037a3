package runtime

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Task is the handle of a function running on a Scheduler
type Task[T any] struct {
	done     chan struct{}
	value    T
	err      error
	detached atomic.Bool
}

// Spawn submits fn to s and returns its task handle immediately.
// A panic inside fn is reported as the task error.
func Spawn[T any](s Scheduler, fn func() (T, error)) (*Task[T], error) {
	t := &Task[T]{done: make(chan struct{})}
	err := s.Submit(func() {
		defer close(t.done)
		defer func() {
			if r := recover(); r != nil {
				t.err = fmt.Errorf("runtime: task panicked: %v", r)
			}
		}()
		t.value, t.err = fn()
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// BlockOn runs fn on s and blocks the calling goroutine until it finished.
// If ctx ends first the task is detached and ctx.Err() is returned.
func BlockOn[T any](ctx context.Context, s Scheduler, fn func() (T, error)) (T, error) {
	t, err := Spawn(s, fn)
	if err != nil {
		var zero T
		return zero, err
	}
	return t.Wait(ctx)
}

// Done is closed once the task finished
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finished or ctx ends. In the latter case the task is detached.
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.value, t.err
	case <-ctx.Done():
		t.Detach()
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the outcome of a finished task. ok is false while the task is running.
func (t *Task[T]) Result() (value T, err error, ok bool) {
	select {
	case <-t.done:
		return t.value, t.err, true
	default:
		var zero T
		return zero, nil, false
	}
}

// Detach marks the task as abandoned. It keeps running, its result is dropped.
func (t *Task[T]) Detach() {
	if t.detached.CompareAndSwap(false, true) {
		plog.Debugf("task detached, result will be discarded")
	}
}

// Detached reports whether Detach was called
func (t *Task[T]) Detached() bool {
	return t.detached.Load()
}
