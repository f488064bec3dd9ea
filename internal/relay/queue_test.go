package relay

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue[string]()

	for _, v := range []string{"A", "B", "C"} {
		require.True(t, q.Push(v))
	}
	assert.Equal(t, 3, q.Len())

	for _, want := range []string{"A", "B", "C"} {
		got, ok := q.TryPop()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}

	_, ok := q.TryPop()
	assert.False(t, ok, "pop from empty queue should return false")
}

func TestQueue_WaitSignalsPush(t *testing.T) {
	q := NewQueue[int]()

	done := make(chan int)
	go func() {
		for {
			if v, ok := q.TryPop(); ok {
				done <- v
				return
			}
			<-q.Wait()
		}
	}()

	time.Sleep(10 * time.Millisecond)
	q.Push(7)

	select {
	case v := <-done:
		assert.Equal(t, 7, v)
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken by push")
	}
}

func TestQueue_CloseRejectsPushKeepsBuffered(t *testing.T) {
	q := NewQueue[int]()
	q.Push(1)
	q.Close()
	q.Close()

	assert.True(t, q.Closed())
	assert.False(t, q.Push(2), "push after close should fail")

	v, ok := q.TryPop()
	require.True(t, ok, "buffered element should survive close")
	assert.Equal(t, 1, v)

	select {
	case <-q.Wait():
	case <-time.After(time.Second):
		t.Fatal("wait should not block on a closed queue")
	}
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	q := NewQueue[int]()

	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				q.Push(i)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 800, q.Len())
}
