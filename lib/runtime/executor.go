package runtime

import (
	"errors"
	"fmt"
	"io"
	goruntime "runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var (
	plog = logger.GetLogger("runtime")

	// ErrExecutorClosed is returned when submitting to a closed executor
	ErrExecutorClosed = errors.New("runtime: executor closed")
	// ErrSharedRuntime is returned when closing the process wide runtime
	ErrSharedRuntime = errors.New("runtime: the shared runtime cannot be closed")
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// Scheduler runs functions on worker goroutines. The execution bridge only depends on this
// interface so tests can substitute their own scheduler.
type Scheduler interface {
	// Submit queues fn for execution. It never blocks on fn itself.
	Submit(fn func()) error
	// NumWorkers returns the number of worker goroutines
	NumWorkers() int
}

// --------------------------------------------------------------------------
// Shared Runtime
// --------------------------------------------------------------------------

var (
	sharedOnce sync.Once
	shared     *Executor
)

// Default returns the process wide runtime. It is created on first use with one worker per
// CPU and lives until the process exits.
func Default() *Executor {
	sharedOnce.Do(func() {
		shared = New(goruntime.NumCPU())
		shared.shared = true
		plog.Infof("shared runtime started with %d workers", shared.workers)
	})
	return shared
}

// --------------------------------------------------------------------------
// Executor
// --------------------------------------------------------------------------

// Executor is a fixed pool of worker goroutines fed by a lock-free injection queue
type Executor struct {
	queue   *injectQueue
	workers int
	wg      sync.WaitGroup
	closed  atomic.Bool
	shared  bool

	nextID   atomic.Uint64
	inflight *xsync.MapOf[uint64, time.Time]

	set       *metrics.Set
	submitted *metrics.Counter
	completed *metrics.Counter
	panicked  *metrics.Counter
	taskTime  *metrics.Summary
}

// New creates an executor with the given number of workers.
// If workers <= 0 one worker per CPU is started.
func New(workers int) *Executor {
	if workers <= 0 {
		workers = goruntime.NumCPU()
	}

	e := &Executor{
		queue:    newInjectQueue(),
		workers:  workers,
		inflight: xsync.NewMapOf[uint64, time.Time](),
		set:      metrics.NewSet(),
	}
	e.submitted = e.set.NewCounter("kvrt_runtime_tasks_submitted_total")
	e.completed = e.set.NewCounter("kvrt_runtime_tasks_completed_total")
	e.panicked = e.set.NewCounter("kvrt_runtime_tasks_panicked_total")
	e.taskTime = e.set.NewSummary("kvrt_runtime_task_duration_seconds")
	e.set.NewGauge("kvrt_runtime_tasks_queued", func() float64 { return float64(e.queue.len()) })
	e.set.NewGauge("kvrt_runtime_tasks_inflight", func() float64 { return float64(e.inflight.Size()) })
	e.set.NewGauge("kvrt_runtime_workers", func() float64 { return float64(e.workers) })

	e.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go e.work(i)
	}
	return e
}

// --------------------------------------------------------------------------
// Interface Methods (docu see runtime.Scheduler)
// --------------------------------------------------------------------------

func (e *Executor) Submit(fn func()) error {
	if fn == nil {
		return fmt.Errorf("runtime: nil task")
	}
	if e.closed.Load() {
		return ErrExecutorClosed
	}

	id := e.nextID.Add(1)
	wrapped := func() {
		start := time.Now()
		e.inflight.Store(id, start)
		defer func() {
			e.inflight.Delete(id)
			e.taskTime.UpdateDuration(start)
			e.completed.Inc()
		}()
		e.call(id, fn)
	}

	if !e.queue.push(wrapped) {
		return ErrExecutorClosed
	}
	e.submitted.Inc()
	return nil
}

func (e *Executor) NumWorkers() int {
	return e.workers
}

// --------------------------------------------------------------------------
// Lifecycle and stats
// --------------------------------------------------------------------------

// Close stops accepting tasks, waits until the queued tasks ran and stops the workers.
// The shared runtime cannot be closed.
func (e *Executor) Close() error {
	if e.shared {
		return ErrSharedRuntime
	}
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	e.queue.close()
	e.wg.Wait()
	return nil
}

// Inflight returns the number of tasks currently executing
func (e *Executor) Inflight() int {
	return e.inflight.Size()
}

// Queued returns the number of tasks waiting for a worker
func (e *Executor) Queued() int {
	return e.queue.len()
}

// WritePrometheus writes the executor metrics in Prometheus text format
func (e *Executor) WritePrometheus(w io.Writer) {
	e.set.WritePrometheus(w)
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func (e *Executor) work(id int) {
	defer e.wg.Done()
	for fn := range e.queue.recv() {
		fn()
	}
	plog.Debugf("worker %d stopped", id)
}

// call runs fn and keeps a panicking task from taking the worker down
func (e *Executor) call(id uint64, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.panicked.Inc()
			plog.Errorf("task %d panicked: %v", id, r)
		}
	}()
	fn()
}
