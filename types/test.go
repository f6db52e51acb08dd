package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// TestStatus represents the possible states of a test execution
type TestStatus string

const (
	TestStatusPass  TestStatus = "pass"
	TestStatusFail  TestStatus = "fail"
	TestStatusSkip  TestStatus = "skip"
	TestStatusError TestStatus = "error"
)

// TestInfo describes one test invocation handed out by the CT server.
// It is immutable for the duration of one run.
type TestInfo struct {
	// URL is the path fragment of the test page, relative to
	// continuous-testing/aqua/html/ on the server. It may already carry a
	// query string.
	URL string `json:"url"`
	// Test is the hierarchical test identifier, e.g.
	// ["acid-base-solutions", "fuzz", "unbuilt"].
	Test []string `json:"test"`
	// SnapshotName names the snapshot this test belongs to.
	SnapshotName string `json:"snapshotName"`
	// Timestamp is the snapshot creation time in epoch milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// ID returns the dot-joined test identifier used in logs and metrics.
func (t TestInfo) ID() string {
	return strings.Join(t.Test, ".")
}

// Validate checks that the required fields are present.
func (t TestInfo) Validate() error {
	if t.URL == "" {
		return errors.New("test url is required")
	}
	if len(t.Test) == 0 {
		return errors.New("test identifier is required")
	}
	if t.SnapshotName == "" {
		return errors.New("snapshot name is required")
	}
	if t.Timestamp == 0 {
		return errors.New("timestamp is required")
	}
	return nil
}

// RunResult captures the client-side outcome of a single test run.
// Status reflects what the page reported through the client; the CT server
// remains the source of truth for pass/fail bookkeeping.
type RunResult struct {
	Info     TestInfo
	Status   TestStatus
	Error    error
	Duration time.Duration
	Attempts int
}

// RunStats tracks test run statistics for one client session.
type RunStats struct {
	Total     int
	Passed    int
	Failed    int
	Skipped   int
	Errors    int
	StartTime time.Time
	EndTime   time.Time
}

// Add records one run outcome.
func (s *RunStats) Add(status TestStatus) {
	s.Total++
	switch status {
	case TestStatusPass:
		s.Passed++
	case TestStatusFail:
		s.Failed++
	case TestStatusSkip:
		s.Skipped++
	default:
		s.Errors++
	}
}

// Status reduces the stats to a single overall status.
func (s *RunStats) Status() TestStatus {
	switch {
	case s.Failed > 0 || s.Errors > 0:
		return TestStatusFail
	case s.Total == 0 || s.Total == s.Skipped:
		return TestStatusSkip
	default:
		return TestStatusPass
	}
}

func (s *RunStats) String() string {
	return fmt.Sprintf("%d total, %d passed, %d failed, %d skipped, %d errors",
		s.Total, s.Passed, s.Failed, s.Skipped, s.Errors)
}
