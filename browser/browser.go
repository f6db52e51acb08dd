// Package browser defines the headless-browser automation capability the
// test runner consumes, and provides its Chrome implementation. The runner
// only depends on the interfaces here, so tests can substitute fakes.
package browser

import (
	"context"
	"errors"
)

var (
	ErrBrowserClosed = errors.New("browser closed")
	ErrPageClosed    = errors.New("page closed")
)

// LaunchOptions configures a new browser instance.
type LaunchOptions struct {
	// ExecPath is the browser executable. Empty means auto-detect.
	ExecPath string
	// Headless runs the browser without a display.
	Headless bool
	// DisableGPU disables GPU hardware acceleration. WebGL sims still run
	// through the software rasterizer.
	DisableGPU bool
	// ExtraFlags are additional command-line flags (name -> value).
	ExtraFlags map[string]any
}

// DefaultLaunchOptions returns the launch configuration used by the CT
// fleet: headless with GPU acceleration disabled.
func DefaultLaunchOptions() LaunchOptions {
	return LaunchOptions{
		Headless:   true,
		DisableGPU: true,
	}
}

// Launcher launches new browser instances.
type Launcher interface {
	Launch(ctx context.Context, opts LaunchOptions) (Browser, error)
}

// Browser is one running browser instance. Whoever created it is
// responsible for calling Close exactly once.
type Browser interface {
	// NewPage opens a fresh tab.
	NewPage(ctx context.Context) (Page, error)
	// Close tears the browser process down.
	Close() error
}

// EventKind discriminates the diagnostic events surfaced from a page.
type EventKind string

const (
	// EventConsole is console output from page scripts.
	EventConsole EventKind = "console"
	// EventPageError is an uncaught exception or page-level error.
	EventPageError EventKind = "pageerror"
	// EventFrameNavigated fires when a frame in the page navigates.
	EventFrameNavigated EventKind = "framenavigated"
	// EventResponse fires for each HTTP response the page receives.
	EventResponse EventKind = "response"
)

// Event is one diagnostic event observed on a page.
type Event struct {
	Kind EventKind
	// Text carries console output or an error description.
	Text string
	// URL is the navigated or responded-to URL, where applicable.
	URL string
	// Status is the HTTP status code for EventResponse.
	Status int64
}

// BindingFunc receives the raw payload string a page script passed to an
// exposed host binding. Calls are delivered serially, in arrival order.
type BindingFunc func(payload string)

// Page is one browser tab. Pages are created fresh per test run and are
// never shared; the creator must call Close on every exit path.
type Page interface {
	// ExposeBinding installs a host function callable from page scripts as
	// window[name](payload). Must be called before Navigate.
	ExposeBinding(ctx context.Context, name string, fn BindingFunc) error
	// AddInitScript registers source to run in the page before any of the
	// page's own scripts, on every subsequent navigation.
	AddInitScript(ctx context.Context, source string) error
	// Subscribe registers a sink for diagnostic events. Sinks may fire from
	// the browser's event goroutine and must not block.
	Subscribe(sink func(Event))
	// Navigate drives the page to url. The ctx deadline bounds the
	// navigation; messages and events keep flowing while it is in flight.
	Navigate(ctx context.Context, url string) error
	// Close tears the tab down.
	Close() error
}
