package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/phetsims/ct-runner/types"
)

func TestErrToLabel(t *testing.T) {
	assert.Equal(t, "nil", errToLabel(nil))
	assert.Equal(t, "connection_refused", errToLabel(errors.New("connection refused")))
	assert.Equal(t, "bad_status_for_url", errToLabel(errors.New("bad status 503 for /url!")))
}

func TestRecordRun(t *testing.T) {
	before := testutil.CollectAndCount(runsTotal)

	RecordRun("snapshot-1", "session-a", types.TestStatusPass, 2*time.Second)
	assert.Equal(t, before+1, testutil.CollectAndCount(runsTotal))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(runsTotal.WithLabelValues("snapshot-1", "session-a", "pass")))

	// Invalid results are dropped rather than recorded under a bogus label.
	RecordRun("snapshot-1", "session-a", types.TestStatus("bogus"), time.Second)
	assert.Equal(t, before+1, testutil.CollectAndCount(runsTotal))
}

func TestRecordReport(t *testing.T) {
	RecordReport("snapshot-2", true)
	RecordReport("snapshot-2", true)
	RecordReport("snapshot-2", false)

	assert.Equal(t, float64(2), testutil.ToFloat64(reportsTotal.WithLabelValues("snapshot-2", "true")))
	assert.Equal(t, float64(1), testutil.ToFloat64(reportsTotal.WithLabelValues("snapshot-2", "false")))
}

func TestRecordPoll(t *testing.T) {
	RecordPoll("empty")
	assert.GreaterOrEqual(t, testutil.ToFloat64(pollsTotal.WithLabelValues("empty")), float64(1))
}
