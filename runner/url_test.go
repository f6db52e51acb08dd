package runner

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phetsims/ct-runner/types"
)

func urlTestInfo(fragment string) types.TestInfo {
	return types.TestInfo{
		URL:          fragment,
		Test:         []string{"energy-skate-park", "fuzz", "unbuilt"},
		SnapshotName: "snapshot-1710000000000",
		Timestamp:    1710000000000,
	}
}

func TestBuildTestURLCarriesTestInfo(t *testing.T) {
	info := urlTestInfo("energy-skate-park/energy-skate-park_en.html")
	built, err := BuildTestURL("https://sparky.colorado.edu", info)
	require.NoError(t, err)

	parsed, err := url.Parse(built)
	require.NoError(t, err)
	assert.Equal(t, "/continuous-testing/aqua/html/energy-skate-park/energy-skate-park_en.html", parsed.Path)

	values := parsed.Query()["testInfo"]
	require.Len(t, values, 1, "expected exactly one testInfo query parameter")

	var decoded testInfoQuery
	require.NoError(t, json.Unmarshal([]byte(values[0]), &decoded))
	assert.Equal(t, info.Test, decoded.Test)
	assert.Equal(t, info.SnapshotName, decoded.SnapshotName)
	assert.Equal(t, info.Timestamp, decoded.Timestamp)
}

func TestBuildTestURLJoining(t *testing.T) {
	// A fragment with an existing query string joins with '&'.
	info := urlTestInfo("foo.html?a=1")
	built, err := BuildTestURL("https://sparky.colorado.edu", info)
	require.NoError(t, err)
	assert.Contains(t, built, "foo.html?a=1&testInfo=")

	// A bare fragment joins with '?'.
	info = urlTestInfo("foo.html")
	built, err = BuildTestURL("https://sparky.colorado.edu", info)
	require.NoError(t, err)
	assert.Contains(t, built, "foo.html?testInfo=")
	assert.Equal(t, 1, strings.Count(built, "?"))
}

func TestBuildTestURLTrimsServerSlash(t *testing.T) {
	info := urlTestInfo("foo.html")
	built, err := BuildTestURL("https://sparky.colorado.edu/", info)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(built, "https://sparky.colorado.edu/continuous-testing/aqua/html/foo.html"))
}
