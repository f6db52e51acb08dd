package flags

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/phetsims/ct-runner/runner"
)

const EnvVarPrefix = "CT_RUNNER"

func prefixEnvVars(name string) []string {
	return []string{EnvVarPrefix + "_" + name}
}

var (
	Server = &cli.StringFlag{
		Name:    "server",
		Value:   runner.DefaultServer,
		EnvVars: prefixEnvVars("SERVER"),
		Usage:   "Base URL of the continuous-testing server",
	}
	BrowserPath = &cli.StringFlag{
		Name:    "browser-path",
		Value:   "",
		EnvVars: prefixEnvVars("BROWSER_PATH"),
		Usage:   "Path to the Chrome/Chromium binary. Empty uses the system default.",
	}
	Headless = &cli.BoolFlag{
		Name:    "headless",
		Value:   true,
		EnvVars: prefixEnvVars("HEADLESS"),
		Usage:   "Run the browser headless",
	}
	NavigationTimeout = &cli.DurationFlag{
		Name:    "navigation-timeout",
		Value:   runner.DefaultNavigationTimeout,
		EnvVars: prefixEnvVars("NAVIGATION_TIMEOUT"),
		Usage:   "Budget for loading the test page",
	}
	BailTimeout = &cli.DurationFlag{
		Name:    "bail-timeout",
		Value:   runner.DefaultBailTimeout,
		EnvVars: prefixEnvVars("BAIL_TIMEOUT"),
		Usage:   "Budget for the page to ask for the next test before the run is abandoned",
	}
	Concurrency = &cli.IntFlag{
		Name:    "concurrency",
		Value:   1,
		EnvVars: prefixEnvVars("CONCURRENCY"),
		Usage:   "Number of tests run in parallel, each in its own page",
	}
	PollInterval = &cli.DurationFlag{
		Name:    "poll-interval",
		Value:   5 * time.Second,
		EnvVars: prefixEnvVars("POLL_INTERVAL"),
		Usage:   "Delay before asking the server for work again when it has none",
	}
	MaxAttempts = &cli.IntFlag{
		Name:    "max-attempts",
		Value:   1,
		EnvVars: prefixEnvVars("MAX_ATTEMPTS"),
		Usage:   "Times a test is retried after a runtime error before it counts as errored",
	}
	TestURL = &cli.StringSliceFlag{
		Name:    "test-url",
		EnvVars: prefixEnvVars("TEST_URL"),
		Usage:   "Test page fragment to run once instead of polling the server. Repeatable.",
	}
	SnapshotName = &cli.StringFlag{
		Name:    "snapshot-name",
		Value:   "manual",
		EnvVars: prefixEnvVars("SNAPSHOT_NAME"),
		Usage:   "Snapshot name attached to --test-url runs",
	}
	LogDir = &cli.StringFlag{
		Name:    "logdir",
		Value:   "logs",
		EnvVars: prefixEnvVars("LOGDIR"),
		Usage:   "Directory to store run logs",
	}
	ProfileFile = &cli.StringFlag{
		Name:    "profile",
		Value:   "",
		EnvVars: prefixEnvVars("PROFILE"),
		Usage:   "Path to client profile file (eg. 'profile.yaml')",
	}
	ReportResults = &cli.BoolFlag{
		Name:    "report-results",
		Value:   true,
		EnvVars: prefixEnvVars("REPORT_RESULTS"),
		Usage:   "Report pass/fail results back to the server. Disable for local debugging.",
	}
	LogLevel = &cli.StringFlag{
		Name:    "log-level",
		Value:   "info",
		EnvVars: prefixEnvVars("LOG_LEVEL"),
		Usage:   "Log level (trace, debug, info, warn, error)",
	}
	LogFormat = &cli.StringFlag{
		Name:    "log-format",
		Value:   "text",
		EnvVars: prefixEnvVars("LOG_FORMAT"),
		Usage:   "Log format (text, json)",
	}
)

var optionalFlags = []cli.Flag{
	Server,
	BrowserPath,
	Headless,
	NavigationTimeout,
	BailTimeout,
	Concurrency,
	PollInterval,
	MaxAttempts,
	TestURL,
	SnapshotName,
	LogDir,
	ProfileFile,
	ReportResults,
	LogLevel,
	LogFormat,
}

var Flags []cli.Flag

func init() {
	Flags = append(Flags, optionalFlags...)
}

// CheckRequired validates flag values that the cli package cannot check on
// its own.
func CheckRequired(ctx *cli.Context) error {
	if ctx.String(Server.Name) == "" {
		return fmt.Errorf("flag %s is required", Server.Name)
	}
	if ctx.Int(Concurrency.Name) < 1 {
		return fmt.Errorf("flag %s must be at least 1", Concurrency.Name)
	}
	if ctx.Int(MaxAttempts.Name) < 1 {
		return fmt.Errorf("flag %s must be at least 1", MaxAttempts.Name)
	}
	if _, err := logrus.ParseLevel(ctx.String(LogLevel.Name)); err != nil {
		return fmt.Errorf("flag %s: %w", LogLevel.Name, err)
	}
	switch ctx.String(LogFormat.Name) {
	case "text", "json":
	default:
		return fmt.Errorf("flag %s must be 'text' or 'json'", LogFormat.Name)
	}
	return nil
}
