package runner

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/phetsims/ct-runner/aquaserver"
	"github.com/phetsims/ct-runner/browser"
	"github.com/phetsims/ct-runner/types"
)

const (
	// DefaultServer is the production CT server.
	DefaultServer = "https://sparky.colorado.edu"

	// DefaultNavigationTimeout bounds the initial page navigation.
	DefaultNavigationTimeout = 90 * time.Second

	// DefaultBailTimeout is the outer safety net for the whole run. It must
	// exceed the navigation timeout: navigation itself may time out and the
	// page can still recover by reporting a result.
	DefaultBailTimeout = 400 * time.Second

	// BindingName is the host function the injected parent shim delivers
	// page messages to.
	BindingName = "ctPostMessage"
)

// ResultReporter relays one pass/fail outcome to the CT server.
type ResultReporter interface {
	Report(ctx context.Context, message string, info types.TestInfo, passed bool) error
}

// Options configures one RunTest invocation. The zero value is usable;
// every field has a documented default.
type Options struct {
	// Server is the CT server base URL. Defaults to DefaultServer.
	Server string

	// Launcher creates a browser when none is supplied.
	// Defaults to the Chrome launcher.
	Launcher browser.Launcher

	// Browser is an existing instance to reuse. When set, the caller keeps
	// ownership and the runner will never close it. When nil the runner
	// launches its own and closes it before returning.
	Browser browser.Browser

	// LaunchOptions configures the launched browser. Ignored when Browser
	// is supplied. Defaults to browser.DefaultLaunchOptions.
	LaunchOptions *browser.LaunchOptions

	// Reporter receives pass/fail outcomes. Defaults to the HTTP client
	// for Server.
	Reporter ResultReporter

	// NavigationTimeout bounds page navigation.
	// Defaults to DefaultNavigationTimeout.
	NavigationTimeout time.Duration

	// BailTimeout bounds the overall wait for the next-test signal.
	// Defaults to DefaultBailTimeout.
	BailTimeout time.Duration

	// Log receives run diagnostics. Defaults to the standard logrus logger.
	Log logrus.FieldLogger
}

// withDefaults returns a fully populated copy of o. Pure: o is not
// modified, and every field of the result is non-zero.
func (o Options) withDefaults() Options {
	if o.Server == "" {
		o.Server = DefaultServer
	}
	if o.Log == nil {
		o.Log = logrus.StandardLogger()
	}
	if o.Launcher == nil {
		o.Launcher = browser.NewChromeLauncher(o.Log)
	}
	if o.LaunchOptions == nil {
		launchOpts := browser.DefaultLaunchOptions()
		o.LaunchOptions = &launchOpts
	}
	if o.Reporter == nil {
		o.Reporter = aquaserver.NewClient(o.Server, o.Log)
	}
	if o.NavigationTimeout <= 0 {
		o.NavigationTimeout = DefaultNavigationTimeout
	}
	if o.BailTimeout <= 0 {
		o.BailTimeout = DefaultBailTimeout
	}
	return o
}
