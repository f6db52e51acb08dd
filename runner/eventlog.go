package runner

import (
	"fmt"
	"strings"
	"sync"

	"github.com/acarl005/stripansi"
)

// EventLog accumulates human-readable diagnostics observed during one run:
// console output, page errors, navigation events. It is append-only and
// order-preserves arrival; no ordering is guaranteed between independent
// event sources. Attached to failure reports for diagnosis.
type EventLog struct {
	mu    sync.Mutex
	lines []string
}

// NewEventLog creates an empty log.
func NewEventLog() *EventLog {
	return &EventLog{}
}

// Append formats and records one line. ANSI escape sequences are stripped;
// sim logging tends to leak color codes into the console.
func (l *EventLog) Append(format string, args ...any) {
	line := stripansi.Strip(fmt.Sprintf(format, args...))
	l.mu.Lock()
	l.lines = append(l.lines, line)
	l.mu.Unlock()
}

// Len returns the number of recorded lines.
func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lines)
}

// String joins the recorded lines in arrival order.
func (l *EventLog) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.lines, "\n")
}
