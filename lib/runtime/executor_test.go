package runtime

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDefaultIsSingleton(t *testing.T) {
	a := Default()
	b := Default()
	if a != b {
		t.Fatalf("Default should always return the same executor")
	}
	if a.NumWorkers() < 1 {
		t.Errorf("Expected at least one worker, got %d", a.NumWorkers())
	}
	if err := a.Close(); !errors.Is(err, ErrSharedRuntime) {
		t.Errorf("Expected ErrSharedRuntime, got %v", err)
	}
	// still usable after the rejected close
	v, err := BlockOn(context.Background(), a, func() (int, error) { return 7, nil })
	if err != nil || v != 7 {
		t.Errorf("Expected 7, got %d (%v)", v, err)
	}
}

func TestExecutorRunsAllTasks(t *testing.T) {
	e := New(4)
	defer e.Close()

	var count atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 1000; i++ {
		wg.Add(1)
		if err := e.Submit(func() {
			defer wg.Done()
			count.Add(1)
		}); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}
	wg.Wait()

	if count.Load() != 1000 {
		t.Errorf("Expected 1000 executed tasks, got %d", count.Load())
	}
}

func TestExecutorRunsTasksInParallel(t *testing.T) {
	e := New(2)
	defer e.Close()

	// both tasks must run at the same time to get past the barrier
	var barrier sync.WaitGroup
	barrier.Add(2)
	done := make(chan struct{}, 2)
	for i := 0; i < 2; i++ {
		_ = e.Submit(func() {
			barrier.Done()
			barrier.Wait()
			done <- struct{}{}
		})
	}

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("Tasks did not run in parallel")
		}
	}
}

func TestExecutorCloseRejectsSubmit(t *testing.T) {
	e := New(1)
	if err := e.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := e.Submit(func() {}); !errors.Is(err, ErrExecutorClosed) {
		t.Errorf("Expected ErrExecutorClosed, got %v", err)
	}
	// closing twice is fine
	if err := e.Close(); err != nil {
		t.Errorf("Second close failed: %v", err)
	}
}

func TestPanickingTaskKeepsWorkerAlive(t *testing.T) {
	e := New(1)
	defer e.Close()

	_, err := BlockOn(context.Background(), e, func() (int, error) { panic("boom") })
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("Expected panic error, got %v", err)
	}

	v, err := BlockOn(context.Background(), e, func() (string, error) { return "ok", nil })
	if err != nil || v != "ok" {
		t.Errorf("Worker should survive a panic, got %q (%v)", v, err)
	}
}

func TestTaskWaitDetachesOnContext(t *testing.T) {
	e := New(1)
	defer e.Close()

	release := make(chan struct{})
	task, err := Spawn(e, func() (int, error) {
		<-release
		return 1, nil
	})
	if err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := task.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline error, got %v", err)
	}
	if !task.Detached() {
		t.Errorf("Task should be detached")
	}
	if _, _, ok := task.Result(); ok {
		t.Errorf("Task should still be running")
	}

	close(release)
	<-task.Done()
	if v, _, ok := task.Result(); !ok || v != 1 {
		t.Errorf("Detached task should still finish, got %d ok=%t", v, ok)
	}
}

func TestExecutorMetrics(t *testing.T) {
	e := New(1)
	defer e.Close()

	_, _ = BlockOn(context.Background(), e, func() (int, error) { return 0, nil })

	var buf bytes.Buffer
	e.WritePrometheus(&buf)
	out := buf.String()
	for _, name := range []string{"kvrt_runtime_tasks_submitted_total 1", "kvrt_runtime_workers 1"} {
		if !strings.Contains(out, name) {
			t.Errorf("Expected %q in metrics output:\n%s", name, out)
		}
	}
}
