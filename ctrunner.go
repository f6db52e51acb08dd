// Package ctrunner is the continuous-testing browser client service. It
// polls the CT server for test pages, runs each one in a controlled browser
// tab and reports the outcome back, or runs an explicit list of tests once
// and exits.
package ctrunner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/phetsims/ct-runner/aquaserver"
	"github.com/phetsims/ct-runner/browser"
	"github.com/phetsims/ct-runner/exitcodes"
	"github.com/phetsims/ct-runner/logging"
	"github.com/phetsims/ct-runner/registry"
	"github.com/phetsims/ct-runner/runner"
	"github.com/phetsims/ct-runner/types"
)

// ctrunner is the continuous-testing client service.
type ctrunner struct {
	ctx        context.Context
	config     *Config
	version    string
	registry   *registry.Registry
	client     *aquaserver.Client
	launcher   browser.Launcher
	fileLogger *logging.FileLogger

	// run executes a single test; injectable for tests.
	run runFunc

	running atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup

	shutdownCallback func(error) // Callback to signal application shutdown
}

func New(ctx context.Context, config *Config, version string, shutdownCallback func(error)) (*ctrunner, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	config.Log.WithFields(logrus.Fields{
		"server":      config.Server,
		"runOnce":     config.RunOnce,
		"concurrency": config.Concurrency,
		"profile":     config.ProfileFile,
		"runID":       config.RunID,
	}).Debug("creating ct-runner")

	reg, err := registry.NewRegistry(registry.Config{
		Log:         config.Log,
		ProfileFile: config.ProfileFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}

	fileLogger, err := logging.NewFileLogger(config.LogDir, config.RunID, config.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create file logger: %w", err)
	}

	return &ctrunner{
		ctx:              ctx,
		config:           config,
		version:          version,
		registry:         reg,
		client:           aquaserver.NewClient(config.Server, config.Log),
		launcher:         browser.NewChromeLauncher(config.Log),
		fileLogger:       fileLogger,
		run:              runner.RunTest,
		done:             make(chan struct{}),
		shutdownCallback: shutdownCallback,
	}, nil
}

// Start runs the client. In run-once mode it runs the configured tests,
// prints a summary and returns; otherwise it starts the polling workers and
// returns once they are up.
func (n *ctrunner) Start(ctx context.Context) error {
	// Panic safety net: a runtime error must exit with code 2.
	defer func() {
		if r := recover(); r != nil {
			n.config.Log.WithField("error", r).Error("runtime error occurred")
			os.Exit(exitcodes.RuntimeErr)
		}
	}()

	n.ctx = ctx
	n.done = make(chan struct{})
	n.running.Store(true)

	if n.config.RunOnce {
		n.config.Log.WithField("tests", len(n.config.Tests)).Info("starting ct-runner in run-once mode")
		return n.runOnce(ctx)
	}

	n.config.Log.WithFields(logrus.Fields{
		"server":      n.config.Server,
		"concurrency": n.config.Concurrency,
	}).Info("starting ct-runner in continuous mode")

	for i := 0; i < n.config.Concurrency; i++ {
		id := i
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			if err := n.workerLoop(n.ctx, id); err != nil {
				n.config.Log.WithError(err).Error("worker loop failed")
			}
		}()
	}

	n.config.Log.Debug("ct-runner started successfully")
	return nil
}

// runOnce runs the configured tests across the worker pool, prints the
// summary table and triggers shutdown. Failed or errored tests surface as a
// TestFailureError so the process exits with code 1.
func (n *ctrunner) runOnce(ctx context.Context) error {
	start := time.Now()
	results := make([]types.RunResult, len(n.config.Tests))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n.config.Concurrency)

	workers := make(chan *worker, n.config.Concurrency)
	for i := 0; i < n.config.Concurrency; i++ {
		workers <- n.newWorker(i)
	}
	defer func() {
		close(workers)
		for w := range workers {
			w.discard()
		}
	}()

	for i, info := range n.config.Tests {
		i, info := i, info
		g.Go(func() error {
			w := <-workers
			defer func() { workers <- w }()

			if skip, reason := n.registry.ShouldSkip(info); skip {
				w.log.WithFields(logrus.Fields{"test": info.ID(), "reason": reason}).Info("skipping test")
				results[i] = types.RunResult{Info: info, Status: types.TestStatusSkip, Attempts: 0}
			} else {
				results[i] = n.runTest(gctx, w, info)
			}
			n.record(results[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return NewRuntimeError(err)
	}

	var stats types.RunStats
	for _, r := range results {
		stats.Add(r.Status)
	}

	n.printSummaryTable(results, &stats, time.Since(start))
	fmt.Println(stats.String())
	n.config.Log.WithFields(logrus.Fields{
		"run_id": n.config.RunID,
		"status": stats.Status(),
	}).Info("test run completed")

	if stats.Status() == types.TestStatusFail {
		return NewTestFailureError(stats.String())
	}

	go func() {
		n.shutdownCallback(nil)
	}()
	return nil
}

// Stop stops the ct-runner service.
func (n *ctrunner) Stop(ctx context.Context) error {
	n.config.Log.Info("stopping ct-runner")

	if !n.running.Load() {
		n.config.Log.Debug("service already stopped, nothing to do")
		return nil
	}

	// Update running state first to prevent new test runs
	n.running.Store(false)

	n.config.Log.Debug("sending done signal to goroutines")
	close(n.done)
	n.wg.Wait()

	if n.fileLogger != nil {
		if err := n.fileLogger.Close(); err != nil {
			n.config.Log.WithError(err).Warn("closing run log failed")
		}
	}

	n.config.Log.Info("ct-runner stopped successfully")
	return nil
}

// Stopped returns true if the ct-runner service is stopped.
func (n *ctrunner) Stopped() bool {
	return !n.running.Load()
}

// WaitForShutdown blocks until all workers have exited.
func (n *ctrunner) WaitForShutdown() {
	n.wg.Wait()
}
