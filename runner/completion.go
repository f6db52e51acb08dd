package runner

import (
	"context"
	"sync"
)

// completion is a one-shot result slot. Several racing paths (the next-test
// message, the bail timer, errors) try to finish a run; the first resolve
// wins and every later attempt is a no-op.
type completion struct {
	once sync.Once
	done chan struct{}
	err  error
}

func newCompletion() *completion {
	return &completion{done: make(chan struct{})}
}

// resolve completes the run with err (nil for success). Safe to call from
// any goroutine, any number of times.
func (c *completion) resolve(err error) {
	c.once.Do(func() {
		c.err = err
		close(c.done)
	})
}

// resolved reports whether the run has completed.
func (c *completion) resolved() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// wait blocks until the run completes or ctx is done.
func (c *completion) wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
