package browser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventQueuePreservesOrder(t *testing.T) {
	q := newEventQueue()
	q.push("a")
	q.push("b")
	q.push("c")

	for _, want := range []string{"a", "b", "c"} {
		got, ok := q.pop()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
}

func TestEventQueuePushNeverBlocks(t *testing.T) {
	q := newEventQueue()

	// A consumer stuck inside delivery must not stall the producer side.
	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		ev, ok := q.pop()
		require.True(t, ok)
		assert.Equal(t, 0, ev)
		close(started)
		<-release
	}()

	q.push(0)
	<-started

	done := make(chan struct{})
	go func() {
		for i := 1; i <= 1000; i++ {
			q.push(i)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("push blocked while the consumer was busy")
	}
	close(release)

	// Everything queued during the stall is still delivered, in order.
	for i := 1; i <= 1000; i++ {
		ev, ok := q.pop()
		require.True(t, ok)
		require.Equal(t, i, ev)
	}
}

func TestEventQueueCloseUnblocksPop(t *testing.T) {
	q := newEventQueue()

	popped := make(chan bool, 1)
	go func() {
		_, ok := q.pop()
		popped <- ok
	}()

	q.close()
	select {
	case ok := <-popped:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("pop did not return after close")
	}

	// Pushes after close are dropped.
	q.push("late")
	_, ok := q.pop()
	assert.False(t, ok)
}

func TestEventQueueDrainsAfterClose(t *testing.T) {
	q := newEventQueue()
	q.push("pending")
	q.close()

	ev, ok := q.pop()
	require.True(t, ok, "events queued before close are still delivered")
	assert.Equal(t, "pending", ev)

	_, ok = q.pop()
	assert.False(t, ok)
}
