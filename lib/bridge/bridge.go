package bridge

import (
	"context"

	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/conn"
	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/host"
	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/runtime"
	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/telemetry"
	"github.com/lni/dragonboat/v4/logger"
)

var plog = logger.GetLogger("bridge")

// Op is the network part of a call. It runs on a runtime worker with the session cloned
// from the connection handle and must not touch host state.
type Op[T any] func(ctx context.Context, s *conn.Session) (T, error)

// Convert turns the native result into the value handed to the call site. It runs while the
// host lock is held.
type Convert[T, R any] func(T) (R, error)

// Identity is a Convert that returns its input
func Identity[T any](v T) (T, error) {
	return v, nil
}

// Bridge connects call sites holding the host lock with the runtime
type Bridge struct {
	sched runtime.Scheduler
	lock  host.Lock
	loop  *host.Loop
}

// New creates a bridge. A nil scheduler selects the shared runtime, a nil lock selects
// host.NoLock. Results of RunAsync are delivered on loop; without a loop they are converted
// on the worker after acquiring the lock.
func New(sched runtime.Scheduler, lock host.Lock, loop *host.Loop) *Bridge {
	if sched == nil {
		sched = runtime.Default()
	}
	if lock == nil {
		lock = host.NoLock{}
	}
	return &Bridge{sched: sched, lock: lock, loop: loop}
}

// Lock returns the host lock the bridge releases and reacquires
func (b *Bridge) Lock() host.Lock {
	return b.lock
}

// Scheduler returns the scheduler operations run on
func (b *Bridge) Scheduler() runtime.Scheduler {
	return b.sched
}

// --------------------------------------------------------------------------
// Blocking mode
// --------------------------------------------------------------------------

// RunBlocking runs op on the runtime and blocks the calling goroutine until it finished.
// The caller holds the host lock. The trace context is captured and the session cloned
// before the lock is released; the lock is reacquired before convert runs. Between release
// and reacquire the calling goroutine makes no host calls.
func RunBlocking[T, R any](ctx context.Context, b *Bridge, h *conn.Handle, labels telemetry.Labels, op Op[T], convert Convert[T, R]) (R, error) {
	var zero R

	captured := telemetry.Capture(ctx)
	session, err := h.Acquire()
	if err != nil {
		return zero, MapError(err)
	}

	task, err := runtime.Spawn(b.sched, func() (T, error) {
		defer session.Release()
		return execute(ctx, session, captured, labels, op)
	})
	if err != nil {
		session.Release()
		return zero, MapError(err)
	}

	value, err := withoutLock(b.lock, func() (T, error) {
		return task.Wait(ctx)
	})
	if err != nil {
		return zero, MapError(err)
	}
	return convert(value)
}

// withoutLock releases the host lock around fn and always reacquires it, also if fn panics
func withoutLock[T any](lock host.Lock, fn func() (T, error)) (T, error) {
	lock.Release()
	defer lock.Acquire()
	return fn()
}

// execute runs op inside a span parented to the captured context and records its duration
func execute[T any](ctx context.Context, s *conn.Session, captured telemetry.Context, labels telemetry.Labels, op Op[T]) (T, error) {
	labels.Conn = s.Info()
	opCtx, span := telemetry.Attach(ctx, captured, labels.SpanName(), labels)
	timer := telemetry.StartTimer(labels)

	value, err := op(opCtx, s)

	timer.Observe(err)
	span.End(err)
	if err != nil {
		plog.Debugf("%s failed: %v", labels.SpanName(), err)
	}
	return value, err
}
