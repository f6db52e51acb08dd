package runner

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventLogPreservesArrivalOrder(t *testing.T) {
	log := NewEventLog()
	log.Append("first")
	log.Append("second %d", 2)
	log.Append("third")

	assert.Equal(t, "first\nsecond 2\nthird", log.String())
	assert.Equal(t, 3, log.Len())
}

func TestEventLogStripsANSI(t *testing.T) {
	log := NewEventLog()
	log.Append("\x1b[31massertion failed\x1b[0m")
	assert.Equal(t, "assertion failed", log.String())
}

func TestEventLogConcurrentAppends(t *testing.T) {
	log := NewEventLog()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			log.Append("line %d", n)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, log.Len())
	// Every line made it in intact, whatever the interleaving.
	for i := 0; i < 50; i++ {
		assert.Contains(t, log.String(), fmt.Sprintf("line %d", i))
	}
	assert.Len(t, strings.Split(log.String(), "\n"), 50)
}
