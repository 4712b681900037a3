package runtime

import (
	goruntime "runtime"
	"sync"
	"sync/atomic"
)

// node is one element of the injection queue
type node struct {
	fn   func()
	next atomic.Pointer[node]
}

// injectQueue is an unbounded lock-free multi-producer queue. A single pump goroutine moves
// tasks from the linked list into an unbuffered channel, any number of workers receive from
// that channel. Ordering between concurrent producers is the order in which their CAS wins.
type injectQueue struct {
	head   atomic.Pointer[node]
	tail   atomic.Pointer[node]
	out    chan func()
	pump   sync.WaitGroup
	closed atomic.Bool
	length atomic.Int64

	// producers between the closed check and linking their node
	pushing atomic.Int64

	mu   sync.Mutex
	cond *sync.Cond
}

func newInjectQueue() *injectQueue {
	sentinel := &node{}
	q := &injectQueue{out: make(chan func())}
	q.cond = sync.NewCond(&q.mu)
	q.head.Store(sentinel)
	q.tail.Store(sentinel)

	q.pump.Add(1)
	go q.run()
	return q
}

// push appends fn. Returns false if fn is nil or the queue is closed.
func (q *injectQueue) push(fn func()) bool {
	q.pushing.Add(1)
	defer q.pushing.Add(-1)
	if fn == nil || q.closed.Load() {
		return false
	}

	n := &node{fn: fn}
	var spins uint8
	for {
		tail := q.tail.Load()
		next := tail.next.Load()
		if next == nil {
			if tail.next.CompareAndSwap(nil, n) {
				// a failed swing is fine, another producer helped already
				q.tail.CompareAndSwap(tail, n)
				q.length.Add(1)

				q.mu.Lock()
				q.cond.Signal()
				q.mu.Unlock()
				return true
			}
		} else {
			// help a producer that linked its node but did not move the tail yet
			q.tail.CompareAndSwap(tail, next)
		}

		// exponential backoff under contention
		if spins < 10 {
			spins++
			for i := 0; i < 1<<spins; i++ {
				goruntime.Gosched()
			}
		}
		goruntime.Gosched()
	}
}

// run hands queued tasks to the workers until the queue is closed and drained
func (q *injectQueue) run() {
	defer q.pump.Done()
	defer close(q.out)

	for {
		drained := true
		for {
			head := q.head.Load()
			next := head.next.Load()
			if next == nil {
				break
			}
			drained = false

			fn := next.fn
			q.head.Store(next)
			q.out <- fn
			q.length.Add(-1)
			next.fn = nil
		}

		if drained {
			if q.closed.Load() {
				// a push that saw the queue open must still be delivered
				for q.pushing.Load() > 0 {
					goruntime.Gosched()
				}
				if q.head.Load().next.Load() == nil {
					return
				}
				continue
			}
			q.mu.Lock()
			if q.head.Load().next.Load() == nil && !q.closed.Load() {
				q.cond.Wait()
			}
			q.mu.Unlock()
		}
	}
}

// recv is the channel the workers read from. It is closed once the queue is closed and empty.
func (q *injectQueue) recv() <-chan func() {
	return q.out
}

// close stops accepting new tasks. Tasks already queued are still delivered.
func (q *injectQueue) close() {
	q.closed.Store(true)
	q.mu.Lock()
	q.cond.Signal()
	q.mu.Unlock()
}

// len is the number of tasks waiting for a worker
func (q *injectQueue) len() int {
	return int(q.length.Load())
}
