// Package runner drives one simulation test page to completion inside a
// controlled browser tab and relays its outcome to the CT server.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/phetsims/ct-runner/browser"
	"github.com/phetsims/ct-runner/metrics"
	"github.com/phetsims/ct-runner/types"
)

// Message types the page delivers through the parent shim.
const (
	messagePass = "test-pass"
	messageFail = "test-fail"
	messageNext = "test-next"
)

// pageMessage is the JSON shape of a message from the test page.
type pageMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// RunTest runs one test page to completion.
//
// It resolves (returns nil) once the page signals it is ready to move to
// the next test, or once the bail timeout fires after a pass/fail was
// already reported. Resolution does NOT imply the test passed: pass/fail
// is reported to the CT server as a side effect, independent of the
// returned error.
//
// It fails with a *RunError (carrying the accumulated event log) when the
// navigation errors, when the bail timeout fires with no result reported,
// or on any unexpected error during setup. On every exit path the page is
// closed, and the browser is closed iff the runner launched it.
func RunTest(ctx context.Context, info types.TestInfo, opts Options) (err error) {
	opts = opts.withDefaults()
	if verr := info.Validate(); verr != nil {
		return fmt.Errorf("invalid test info: %w", verr)
	}
	log := opts.Log.WithField("test", info.ID())
	events := NewEventLog()

	ctx, span := otel.Tracer("ct-runner").Start(ctx, fmt.Sprintf("test %s", info.ID()))
	defer span.End()

	// Ownership is decided once, up front: a caller-supplied browser is
	// never closed here.
	ownsBrowser := opts.Browser == nil

	var (
		b  browser.Browser
		pg browser.Page
	)
	defer func() {
		// Scoped cleanup on every exit path. A close failure is logged and
		// counted but never masks the primary error.
		if pg != nil {
			if cerr := pg.Close(); cerr != nil {
				log.WithError(cerr).Warn("closing test page failed")
				metrics.RecordError("page-close-failed")
			}
		}
		if ownsBrowser && b != nil {
			if cerr := b.Close(); cerr != nil {
				log.WithError(cerr).Warn("closing browser failed")
				metrics.RecordError("browser-close-failed")
			}
		}
		if err != nil {
			err = &RunError{Info: info, Err: err, Log: events.String()}
		}
	}()

	if ownsBrowser {
		b, err = opts.Launcher.Launch(ctx, *opts.LaunchOptions)
		if err != nil {
			return fmt.Errorf("launching browser: %w", err)
		}
	} else {
		b = opts.Browser
	}

	pg, err = b.NewPage(ctx)
	if err != nil {
		return fmt.Errorf("opening test page: %w", err)
	}

	targetURL, err := BuildTestURL(opts.Server, info)
	if err != nil {
		return err
	}

	done := newCompletion()
	var reported atomic.Bool

	// The browser serializes binding calls, so the three message kinds are
	// handled strictly in arrival order.
	handler := func(payload string) {
		var msg pageMessage
		if jerr := json.Unmarshal([]byte(payload), &msg); jerr != nil {
			// Unrelated postMessage traffic lands here too; drop it without
			// polluting the event log.
			log.WithField("payload", truncate(payload, 200)).Debug("ignoring non-JSON page message")
			return
		}
		switch msg.Type {
		case messagePass:
			reported.Store(true)
			deliverReport(ctx, opts.Reporter, log, msg.Message, info, true)
		case messageFail:
			events.Append("[FAIL] %s", msg.Message)
			reported.Store(true)
			deliverReport(ctx, opts.Reporter, log,
				fmt.Sprintf("%s\n%s", msg.Message, events.String()), info, false)
		case messageNext:
			// The only message kind that resolves the run directly.
			done.resolve(nil)
		default:
			log.WithField("type", msg.Type).Debug("ignoring page message of unknown type")
		}
	}
	if err = pg.ExposeBinding(ctx, BindingName, handler); err != nil {
		return fmt.Errorf("exposing message binding: %w", err)
	}
	if err = pg.AddInitScript(ctx, parentShim(BindingName)); err != nil {
		return fmt.Errorf("installing parent shim: %w", err)
	}

	// Diagnostic listeners only ever append to the log; none of them fail
	// the run on their own.
	pg.Subscribe(func(ev browser.Event) {
		switch ev.Kind {
		case browser.EventConsole:
			events.Append("[CONSOLE] %s", ev.Text)
		case browser.EventPageError:
			events.Append("[PAGE ERROR] %s", ev.Text)
		case browser.EventFrameNavigated:
			events.Append("[NAVIGATED] %s", ev.URL)
		case browser.EventResponse:
			if ev.URL == targetURL && (ev.Status < 200 || ev.Status >= 400) {
				events.Append("[BAD RESPONSE] %d for %s", ev.Status, ev.URL)
			}
		}
	})

	// Last-resort safety net. It decides from state observed at fire time
	// and never cancels in-flight work; normal completion stops it.
	bail := time.AfterFunc(opts.BailTimeout, func() {
		if reported.Load() {
			// The page stalled after reporting a result. The server has the
			// outcome, so the run still counts as complete.
			log.Warn("page reported a result but never sent test-next; moving on")
			done.resolve(nil)
			return
		}
		done.resolve(ErrNoNextTest)
	})
	defer bail.Stop()

	navCtx, cancelNav := context.WithTimeout(ctx, opts.NavigationTimeout)
	defer cancelNav()
	log.WithField("url", targetURL).Debug("navigating to test page")
	if err = pg.Navigate(navCtx, targetURL); err != nil {
		return fmt.Errorf("navigating to %s: %w", targetURL, err)
	}

	return done.wait(ctx)
}

// deliverReport sends one pass/fail record to the server. A delivery
// failure is logged and counted; it does not fail the run.
func deliverReport(ctx context.Context, reporter ResultReporter, log logrus.FieldLogger,
	message string, info types.TestInfo, passed bool) {

	if err := reporter.Report(ctx, message, info, passed); err != nil {
		log.WithError(err).Error("reporting test result failed")
		metrics.RecordError("report-failed")
		return
	}
	metrics.RecordReport(info.SnapshotName, passed)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
