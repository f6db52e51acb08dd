package ctrunner

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/phetsims/ct-runner/browser"
	"github.com/phetsims/ct-runner/metrics"
	"github.com/phetsims/ct-runner/runner"
	"github.com/phetsims/ct-runner/types"
)

// maxPollDelay caps the backoff between polls of an idle or unreachable
// server.
const maxPollDelay = 60 * time.Second

// runFunc runs a single test. Swapped out in tests.
type runFunc func(ctx context.Context, info types.TestInfo, opts runner.Options) error

// recordingReporter wraps the real reporter and remembers what the page
// reported so the client can derive its own view of the outcome. The CT
// server remains the source of truth.
type recordingReporter struct {
	base   runner.ResultReporter
	mu     sync.Mutex
	passed int
	failed int
}

func (r *recordingReporter) Report(ctx context.Context, message string, info types.TestInfo, passed bool) error {
	r.mu.Lock()
	if passed {
		r.passed++
	} else {
		r.failed++
	}
	r.mu.Unlock()
	return r.base.Report(ctx, message, info, passed)
}

// status derives the client-side outcome of a run. A run that resolved
// without any report counts as skipped: the page moved on without telling
// us anything.
func (r *recordingReporter) status(runErr error) types.TestStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case runErr != nil:
		return types.TestStatusError
	case r.failed > 0:
		return types.TestStatusFail
	case r.passed > 0:
		return types.TestStatusPass
	default:
		return types.TestStatusSkip
	}
}

// noopReporter swallows results. Used when --report-results=false.
type noopReporter struct{}

func (noopReporter) Report(context.Context, string, types.TestInfo, bool) error {
	return nil
}

// worker owns one browser instance and reuses it across tests. After a
// runtime error the browser is discarded so the next test starts clean.
type worker struct {
	launcher   browser.Launcher
	launchOpts browser.LaunchOptions
	log        logrus.FieldLogger

	b browser.Browser
}

func (w *worker) ensureBrowser(ctx context.Context) (browser.Browser, error) {
	if w.b != nil {
		return w.b, nil
	}
	b, err := w.launcher.Launch(ctx, w.launchOpts)
	if err != nil {
		return nil, err
	}
	w.b = b
	return b, nil
}

func (w *worker) discard() {
	if w.b == nil {
		return
	}
	if err := w.b.Close(); err != nil {
		w.log.WithError(err).Warn("closing worker browser failed")
		metrics.RecordError("browser-close-failed")
	}
	w.b = nil
}

func (n *ctrunner) newWorker(id int) *worker {
	return &worker{
		launcher:   n.launcher,
		launchOpts: n.launchOptions(),
		log:        n.config.Log.WithField("worker", id),
	}
}

func (n *ctrunner) launchOptions() browser.LaunchOptions {
	opts := browser.DefaultLaunchOptions()
	opts.ExecPath = n.config.BrowserPath
	opts.Headless = n.config.Headless
	return opts
}

func (n *ctrunner) baseReporter() runner.ResultReporter {
	if !n.config.ReportResults {
		return noopReporter{}
	}
	return n.client
}

// runTest runs one test with retries, reusing the worker's browser. Runtime
// errors discard the browser and burn an attempt; pass/fail outcomes never
// retry.
func (n *ctrunner) runTest(ctx context.Context, w *worker, info types.TestInfo) types.RunResult {
	log := w.log.WithField("test", info.ID())

	nav := n.config.NavigationTimeout
	bail := n.config.BailTimeout
	if navOverride, bailOverride := n.registry.TimeoutsFor(info); navOverride > 0 || bailOverride > 0 {
		if navOverride > 0 {
			nav = navOverride
		}
		if bailOverride > 0 {
			bail = bailOverride
		}
		log.WithFields(logrus.Fields{"navigation": nav, "bail": bail}).Debug("using profile timeout overrides")
	}

	start := time.Now()
	// Every test gets at least one attempt, whatever the config says.
	maxAttempts := n.config.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	var (
		rec      *recordingReporter
		runErr   error
		attempts int
	)
	for attempts < maxAttempts {
		attempts++
		rec = &recordingReporter{base: n.baseReporter()}

		b, err := w.ensureBrowser(ctx)
		if err != nil {
			runErr = err
			log.WithError(err).Error("launching browser failed")
			metrics.RecordErrorDetails("browser-launch-failed", err)
		} else {
			runErr = n.run(ctx, info, runner.Options{
				Server:            n.config.Server,
				Browser:           b,
				Reporter:          rec,
				NavigationTimeout: nav,
				BailTimeout:       bail,
				Log:               w.log,
			})
		}
		if runErr == nil {
			break
		}

		// A wedged browser poisons every later run on it.
		w.discard()
		log.WithError(runErr).WithField("attempt", attempts).Warn("test run errored")
		if ctx.Err() != nil {
			break
		}
	}

	return types.RunResult{
		Info:     info,
		Status:   rec.status(runErr),
		Error:    runErr,
		Duration: time.Since(start),
		Attempts: attempts,
	}
}

// record persists one outcome to metrics and the run log.
func (n *ctrunner) record(result types.RunResult) {
	metrics.RecordRun(result.Info.SnapshotName, n.config.RunID, result.Status, result.Duration)
	if n.fileLogger != nil {
		if err := n.fileLogger.LogRun(result); err != nil {
			n.config.Log.WithError(err).Error("writing run log failed")
		}
	}
}

// workerLoop polls the server for work until the context is cancelled or the
// service stops. Empty polls and poll errors back off exponentially up to
// maxPollDelay.
func (n *ctrunner) workerLoop(ctx context.Context, id int) error {
	w := n.newWorker(id)
	defer w.discard()

	delay := n.config.PollInterval
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-n.done:
			return nil
		default:
		}

		info, err := n.client.NextTest(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			metrics.RecordPoll("error")
			w.log.WithError(err).Warn("polling for next test failed")
			if !n.sleep(ctx, delay) {
				return nil
			}
			delay = nextDelay(delay)
			continue
		}
		if info == nil {
			metrics.RecordPoll("empty")
			w.log.Debug("server has no work")
			if !n.sleep(ctx, delay) {
				return nil
			}
			delay = nextDelay(delay)
			continue
		}
		metrics.RecordPoll("test")
		delay = n.config.PollInterval

		if skip, reason := n.registry.ShouldSkip(*info); skip {
			w.log.WithFields(logrus.Fields{"test": info.ID(), "reason": reason}).Info("skipping test")
			n.record(types.RunResult{Info: *info, Status: types.TestStatusSkip})
			continue
		}

		n.record(n.runTest(ctx, w, *info))
	}
}

// sleep waits for d, returning false if the service stopped first.
func (n *ctrunner) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-n.done:
		return false
	case <-ctx.Done():
		return false
	}
}

func nextDelay(d time.Duration) time.Duration {
	d *= 2
	if d > maxPollDelay {
		d = maxPollDelay
	}
	return d
}
