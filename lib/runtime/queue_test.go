package runtime

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// TestQueueDeliversInOrder tests that a single producer sees FIFO delivery
func TestQueueDeliversInOrder(t *testing.T) {
	q := newInjectQueue()
	defer q.close()

	got := make([]int, 0, 10)
	for i := 0; i < 10; i++ {
		i := i
		if !q.push(func() { got = append(got, i) }) {
			t.Fatalf("Failed to push task %d", i)
		}
	}

	for i := 0; i < 10; i++ {
		select {
		case fn := <-q.recv():
			fn()
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("Timeout waiting for task %d", i)
		}
	}

	for i, v := range got {
		if v != i {
			t.Errorf("Expected task %d at position %d, got %d", i, i, v)
		}
	}
}

// TestQueueConcurrentProducers verifies that no task is lost or duplicated
func TestQueueConcurrentProducers(t *testing.T) {
	q := newInjectQueue()
	defer q.close()

	const producers = 8
	const perProducer = 500

	var mu sync.Mutex
	seen := make(map[int]int)

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				v := p*perProducer + i
				q.push(func() {
					mu.Lock()
					seen[v]++
					mu.Unlock()
				})
			}
		}(p)
	}

	for i := 0; i < producers*perProducer; i++ {
		select {
		case fn := <-q.recv():
			fn()
		case <-time.After(time.Second):
			t.Fatalf("Timeout after %d tasks", i)
		}
	}
	wg.Wait()

	if len(seen) != producers*perProducer {
		t.Fatalf("Expected %d distinct tasks, got %d", producers*perProducer, len(seen))
	}
	for v, n := range seen {
		if n != 1 {
			t.Errorf("Task %d delivered %d times", v, n)
		}
	}
}

// TestQueueCloseDrains tests that queued tasks survive close and push fails afterwards
func TestQueueCloseDrains(t *testing.T) {
	q := newInjectQueue()

	ran := 0
	for i := 0; i < 5; i++ {
		q.push(func() { ran++ })
	}
	q.close()

	if q.push(func() {}) {
		t.Errorf("Push should fail on a closed queue")
	}

	for fn := range q.recv() {
		fn()
	}
	if ran != 5 {
		t.Errorf("Expected 5 drained tasks, got %d", ran)
	}
}

// TestQueueCloseWhilePushing tests that every accepted push runs when close races producers
func TestQueueCloseWhilePushing(t *testing.T) {
	for round := 0; round < 50; round++ {
		q := newInjectQueue()

		var ran atomic.Int64
		consumed := make(chan struct{})
		go func() {
			defer close(consumed)
			for fn := range q.recv() {
				fn()
			}
		}()

		var accepted atomic.Int64
		var wg sync.WaitGroup
		start := make(chan struct{})
		for p := 0; p < 8; p++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				for i := 0; i < 100; i++ {
					if q.push(func() { ran.Add(1) }) {
						accepted.Add(1)
					}
				}
			}()
		}

		close(start)
		q.close()
		wg.Wait()

		select {
		case <-consumed:
		case <-time.After(5 * time.Second):
			t.Fatalf("Round %d: queue did not shut down", round)
		}
		if ran.Load() != accepted.Load() {
			t.Fatalf("Round %d: %d tasks accepted but %d ran", round, accepted.Load(), ran.Load())
		}
	}
}

// TestQueueRejectsNil tests that nil tasks are not queued
func TestQueueRejectsNil(t *testing.T) {
	q := newInjectQueue()
	defer q.close()

	if q.push(nil) {
		t.Errorf("Push of a nil task should fail")
	}
	if q.len() != 0 {
		t.Errorf("Expected empty queue, got %d", q.len())
	}
}
