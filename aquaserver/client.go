// Package aquaserver is the HTTP client for the continuous-testing server:
// it asks for the next test to run and delivers pass/fail results.
package aquaserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/phetsims/ct-runner/types"
)

const (
	nextTestPath   = "/aquaserver/next-test"
	testResultPath = "/aquaserver/test-result"

	requestTimeout = 30 * time.Second
	maxBodySize    = 1 << 20
)

// Client talks to one CT server.
type Client struct {
	base string
	http *http.Client
	log  logrus.FieldLogger
}

// NewClient creates a client for the server at base. A nil logger falls
// back to the standard logrus logger.
func NewClient(base string, log logrus.FieldLogger) *Client {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: requestTimeout},
		log:  log,
	}
}

// NextTest asks the server for the next test to run. A nil TestInfo with a
// nil error means the server has nothing to hand out right now.
func (c *Client) NextTest(ctx context.Context) (*types.TestInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+nextTestPath, nil)
	if err != nil {
		return nil, fmt.Errorf("building next-test request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting next test: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("next-test: unexpected status %s", resp.Status)
	}

	var info types.TestInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&info); err != nil {
		return nil, fmt.Errorf("decoding next-test response: %w", err)
	}
	if err := info.Validate(); err != nil {
		return nil, fmt.Errorf("next-test returned an invalid test: %w", err)
	}
	return &info, nil
}

// resultPayload is the wire shape of one test-result record.
type resultPayload struct {
	Test         []string `json:"test"`
	SnapshotName string   `json:"snapshotName"`
	Timestamp    int64    `json:"timestamp"`
	Passed       bool     `json:"passed"`
	Message      string   `json:"message,omitempty"`
}

// Report delivers one pass/fail record for info. It implements the
// runner's ResultReporter contract.
func (c *Client) Report(ctx context.Context, message string, info types.TestInfo, passed bool) error {
	body, err := json.Marshal(resultPayload{
		Test:         info.Test,
		SnapshotName: info.SnapshotName,
		Timestamp:    info.Timestamp,
		Passed:       passed,
		Message:      message,
	})
	if err != nil {
		return fmt.Errorf("encoding test result: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+testResultPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building test-result request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sending test result: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	// Drain so the connection is reusable.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("test-result: unexpected status %s", resp.Status)
	}
	c.log.WithFields(logrus.Fields{
		"test":   info.ID(),
		"passed": passed,
	}).Debug("test result delivered")
	return nil
}
