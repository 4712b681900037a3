package host

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGILInstrumentation(t *testing.T) {
	g := NewGIL()
	assert.False(t, g.Held())

	g.Do(func() {
		assert.True(t, g.Held())
	})
	assert.False(t, g.Held())

	acquires, releases := g.Stats()
	assert.Equal(t, int64(1), acquires)
	assert.Equal(t, int64(1), releases)

	assert.Panics(t, func() { g.Release() })
}

func TestGILExcludesOtherHolders(t *testing.T) {
	g := NewGIL()
	g.Acquire()

	entered := make(chan struct{})
	go g.Do(func() { close(entered) })

	select {
	case <-entered:
		t.Fatal("second holder entered while the lock was held")
	case <-time.After(20 * time.Millisecond):
	}

	g.Release()
	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("second holder never entered")
	}
}

func TestLoopRunsCallbacksUnderLock(t *testing.T) {
	g := NewGIL()
	loop := NewLoop(g)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = loop.Run(ctx) }()

	var wg sync.WaitGroup
	results := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, loop.CallSoon(func() { results <- g.Held() }))
		}()
	}
	wg.Wait()

	for i := 0; i < 10; i++ {
		select {
		case held := <-results:
			assert.True(t, held, "callback ran without the lock")
		case <-time.After(time.Second):
			t.Fatalf("callback %d never ran", i)
		}
	}
}

func TestLoopRunOnceAndStop(t *testing.T) {
	loop := NewLoop(nil)

	order := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		i := i
		require.NoError(t, loop.CallSoon(func() { order = append(order, i) }))
	}
	assert.Equal(t, 3, loop.Pending())
	assert.Equal(t, 3, loop.RunOnce())
	assert.Equal(t, []int{0, 1, 2}, order)

	loop.Stop()
	assert.ErrorIs(t, loop.CallSoon(func() {}), ErrLoopClosed)
	assert.NoError(t, loop.Run(context.Background()))
}
