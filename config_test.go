package ctrunner

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/phetsims/ct-runner/flags"
)

func cliContext(t *testing.T, args map[string]string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range flags.Flags {
		require.NoError(t, f.Apply(set))
	}
	ctx := cli.NewContext(cli.NewApp(), set, nil)
	for name, value := range args {
		require.NoError(t, set.Set(name, value))
	}
	return ctx
}

func TestNewConfigDefaults(t *testing.T) {
	cfg, err := NewConfig(cliContext(t, nil), quietLogger())
	require.NoError(t, err)

	assert.Equal(t, "https://sparky.colorado.edu", cfg.Server)
	assert.True(t, cfg.Headless)
	assert.False(t, cfg.RunOnce)
	assert.Empty(t, cfg.Tests)
	assert.Equal(t, 1, cfg.Concurrency)
	assert.Equal(t, 1, cfg.MaxAttempts)
	assert.True(t, cfg.ReportResults)
	assert.NotEmpty(t, cfg.RunID)
	assert.True(t, len(cfg.LogDir) > 0)
}

func TestNewConfigTrimsServerSlash(t *testing.T) {
	cfg, err := NewConfig(cliContext(t, map[string]string{
		"server": "https://bayes.colorado.edu/",
	}), quietLogger())
	require.NoError(t, err)
	assert.Equal(t, "https://bayes.colorado.edu", cfg.Server)
}

func TestNewConfigManualTests(t *testing.T) {
	cfg, err := NewConfig(cliContext(t, map[string]string{
		"test-url":      "density/density_en.html?fuzz&ea",
		"snapshot-name": "local-check",
	}), quietLogger())
	require.NoError(t, err)

	assert.True(t, cfg.RunOnce)
	require.Len(t, cfg.Tests, 1)
	info := cfg.Tests[0]
	assert.Equal(t, "density/density_en.html?fuzz&ea", info.URL)
	assert.Equal(t, []string{"density_en", "manual"}, info.Test)
	assert.Equal(t, "local-check", info.SnapshotName)
	assert.NotZero(t, info.Timestamp)
	assert.NoError(t, info.Validate())
}

func TestNewConfigRejectsInvalidFlags(t *testing.T) {
	_, err := NewConfig(cliContext(t, map[string]string{"concurrency": "0"}), quietLogger())
	assert.Error(t, err)
}
