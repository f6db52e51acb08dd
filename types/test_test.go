package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTestInfo() TestInfo {
	return TestInfo{
		URL:          "acid-base-solutions/acid-base-solutions_en.html?brand=phet",
		Test:         []string{"acid-base-solutions", "fuzz", "built"},
		SnapshotName: "snapshot-1710000000000",
		Timestamp:    1710000000000,
	}
}

func TestTestInfoID(t *testing.T) {
	info := validTestInfo()
	assert.Equal(t, "acid-base-solutions.fuzz.built", info.ID())

	info.Test = []string{"single"}
	assert.Equal(t, "single", info.ID())
}

func TestTestInfoValidate(t *testing.T) {
	require.NoError(t, validTestInfo().Validate())

	tests := []struct {
		name   string
		mutate func(*TestInfo)
	}{
		{"missing url", func(i *TestInfo) { i.URL = "" }},
		{"missing test identifier", func(i *TestInfo) { i.Test = nil }},
		{"missing snapshot name", func(i *TestInfo) { i.SnapshotName = "" }},
		{"missing timestamp", func(i *TestInfo) { i.Timestamp = 0 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			info := validTestInfo()
			tc.mutate(&info)
			assert.Error(t, info.Validate())
		})
	}
}

func TestRunStatsAdd(t *testing.T) {
	var stats RunStats
	stats.Add(TestStatusPass)
	stats.Add(TestStatusPass)
	stats.Add(TestStatusFail)
	stats.Add(TestStatusSkip)
	stats.Add(TestStatusError)

	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 2, stats.Passed)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Errors)
}

func TestRunStatsStatus(t *testing.T) {
	var stats RunStats
	assert.Equal(t, TestStatusSkip, stats.Status())

	stats.Add(TestStatusSkip)
	assert.Equal(t, TestStatusSkip, stats.Status())

	stats.Add(TestStatusPass)
	assert.Equal(t, TestStatusPass, stats.Status())

	stats.Add(TestStatusFail)
	assert.Equal(t, TestStatusFail, stats.Status())
}
