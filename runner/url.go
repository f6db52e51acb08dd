package runner

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/phetsims/ct-runner/types"
)

// testPathPrefix is where the server exposes built test pages.
const testPathPrefix = "/continuous-testing/aqua/html/"

// testInfoQuery is the tuple serialized into the testInfo query parameter.
// The page parses it to know which sub-test to run and how to label its
// reports.
type testInfoQuery struct {
	Test         []string `json:"test"`
	SnapshotName string   `json:"snapshotName"`
	Timestamp    int64    `json:"timestamp"`
}

// BuildTestURL constructs the page URL for one test: the test's path
// fragment under the server's test root, plus a testInfo query parameter
// carrying the URL-encoded JSON identifier tuple. The joining character is
// '&' when the fragment already carries a query string, '?' otherwise.
func BuildTestURL(server string, info types.TestInfo) (string, error) {
	payload, err := json.Marshal(testInfoQuery{
		Test:         info.Test,
		SnapshotName: info.SnapshotName,
		Timestamp:    info.Timestamp,
	})
	if err != nil {
		return "", fmt.Errorf("encoding testInfo: %w", err)
	}

	separator := "?"
	if strings.Contains(info.URL, "?") {
		separator = "&"
	}
	return strings.TrimRight(server, "/") + testPathPrefix + info.URL +
		separator + "testInfo=" + url.QueryEscape(string(payload)), nil
}
