package ctrunner

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/phetsims/ct-runner/flags"
	"github.com/phetsims/ct-runner/types"
)

// Config holds the application configuration
type Config struct {
	Server            string           // Base URL of the CT server
	BrowserPath       string           // Chrome/Chromium binary, empty for system default
	Headless          bool             // Run the browser headless
	NavigationTimeout time.Duration    // Budget for loading the test page
	BailTimeout       time.Duration    // Budget for the page to request the next test
	Concurrency       int              // Number of concurrent test workers
	PollInterval      time.Duration    // Delay before re-polling an idle server
	MaxAttempts       int              // Retries after runtime errors before a test counts as errored
	RunOnce           bool             // Run the listed tests and exit instead of polling
	Tests             []types.TestInfo // Tests to run in run-once mode
	LogDir            string           // Directory to store run logs
	ProfileFile       string           // Optional client profile (skips, timeout overrides)
	ReportResults     bool             // Report results back to the server
	RunID             string           // Identifier for this client session
	Log               logrus.FieldLogger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log logrus.FieldLogger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}

	logDir, err := filepath.Abs(ctx.String(flags.LogDir.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for log directory: %w", err)
	}

	var profileFile string
	if p := ctx.String(flags.ProfileFile.Name); p != "" {
		profileFile, err = filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for profile '%s': %w", p, err)
		}
	}

	testURLs := ctx.StringSlice(flags.TestURL.Name)
	tests := make([]types.TestInfo, 0, len(testURLs))
	snapshotName := ctx.String(flags.SnapshotName.Name)
	for _, u := range testURLs {
		info, err := manualTestInfo(u, snapshotName)
		if err != nil {
			return nil, err
		}
		tests = append(tests, info)
	}

	return &Config{
		Server:            strings.TrimSuffix(ctx.String(flags.Server.Name), "/"),
		BrowserPath:       ctx.String(flags.BrowserPath.Name),
		Headless:          ctx.Bool(flags.Headless.Name),
		NavigationTimeout: ctx.Duration(flags.NavigationTimeout.Name),
		BailTimeout:       ctx.Duration(flags.BailTimeout.Name),
		Concurrency:       ctx.Int(flags.Concurrency.Name),
		PollInterval:      ctx.Duration(flags.PollInterval.Name),
		MaxAttempts:       ctx.Int(flags.MaxAttempts.Name),
		RunOnce:           len(tests) > 0,
		Tests:             tests,
		LogDir:            logDir,
		ProfileFile:       profileFile,
		ReportResults:     ctx.Bool(flags.ReportResults.Name),
		RunID:             uuid.New().String(),
		Log:               log,
	}, nil
}

// manualTestInfo builds the TestInfo for a --test-url run. The identifier is
// derived from the page name so logs and metrics stay readable.
func manualTestInfo(fragment, snapshotName string) (types.TestInfo, error) {
	trimmed := fragment
	if i := strings.IndexByte(trimmed, '?'); i >= 0 {
		trimmed = trimmed[:i]
	}
	name := strings.TrimSuffix(path.Base(trimmed), path.Ext(trimmed))
	if name == "" || name == "." || name == "/" {
		return types.TestInfo{}, fmt.Errorf("cannot derive a test name from url %q", fragment)
	}

	info := types.TestInfo{
		URL:          fragment,
		Test:         []string{name, "manual"},
		SnapshotName: snapshotName,
		Timestamp:    time.Now().UnixMilli(),
	}
	if err := info.Validate(); err != nil {
		return types.TestInfo{}, fmt.Errorf("invalid test url %q: %w", fragment, err)
	}
	return info, nil
}
