// Package logging persists per-run result logs to disk so a flaky
// browser session can be diagnosed after the fact.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/phetsims/ct-runner/types"
)

// RunDirectoryPrefix is the standardized prefix for run directories.
const RunDirectoryPrefix = "ctrun-"

const (
	summaryFilename  = "summary.log"
	failuresFilename = "failures.log"
)

// FileLogger writes test outcomes for a single run under
// {baseDir}/ctrun-{runID}/. Every result gets a summary line; failed and
// errored tests additionally get their full error text, browser event log
// included, appended to failures.log.
type FileLogger struct {
	baseDir  string
	logDir   string
	runID    string
	log      logrus.FieldLogger
	mu       sync.Mutex
	summary  *os.File
	failures *os.File
}

// NewFileLogger creates the run directory and opens both log files.
func NewFileLogger(baseDir string, runID string, log logrus.FieldLogger) (*FileLogger, error) {
	if runID == "" {
		return nil, fmt.Errorf("runID is required")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	logDir := filepath.Join(baseDir, RunDirectoryPrefix+runID)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
	}

	summary, err := os.Create(filepath.Join(logDir, summaryFilename))
	if err != nil {
		return nil, fmt.Errorf("failed to create summary file: %w", err)
	}
	failures, err := os.Create(filepath.Join(logDir, failuresFilename))
	if err != nil {
		summary.Close()
		return nil, fmt.Errorf("failed to create failures file: %w", err)
	}

	log.WithField("dir", logDir).Debug("file logger initialized")

	return &FileLogger{
		baseDir:  baseDir,
		logDir:   logDir,
		runID:    runID,
		log:      log,
		summary:  summary,
		failures: failures,
	}, nil
}

// GetRunID returns the run identifier this logger writes under.
func (l *FileLogger) GetRunID() string {
	return l.runID
}

// GetDirectory returns the directory results are written to.
func (l *FileLogger) GetDirectory() string {
	return l.logDir
}

// LogRun records a single test outcome.
func (l *FileLogger) LogRun(result types.RunResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	line := fmt.Sprintf("%s %-5s %-40s %s attempts=%d\n",
		time.Now().UTC().Format(time.RFC3339),
		result.Status,
		result.Info.ID(),
		result.Duration.Round(time.Millisecond),
		result.Attempts,
	)
	if _, err := l.summary.WriteString(line); err != nil {
		return fmt.Errorf("failed to write summary line: %w", err)
	}

	if result.Status != types.TestStatusFail && result.Status != types.TestStatusError {
		return nil
	}

	detail := "(no error detail)"
	if result.Error != nil {
		detail = result.Error.Error()
	}
	entry := fmt.Sprintf("=== %s (%s)\n%s\n\n", result.Info.ID(), result.Status, detail)
	if _, err := l.failures.WriteString(entry); err != nil {
		return fmt.Errorf("failed to write failure entry: %w", err)
	}
	return nil
}

// Close flushes and closes both log files.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for _, f := range []*os.File{l.summary, l.failures} {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
