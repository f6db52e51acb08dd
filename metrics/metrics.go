package metrics

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/phetsims/ct-runner/types"
)

const (
	MetricsNamespace = "ct"
)

var (
	Debug                bool = true
	validResults              = []types.TestStatus{types.TestStatusPass, types.TestStatusFail, types.TestStatusSkip, types.TestStatusError}
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "runs_total",
		Help:      "Count of test runs by outcome",
	}, []string{
		"snapshot",
		"session_id",
		"result",
	})

	runDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration_seconds",
		Help:      "Duration of the most recent test run",
	}, []string{
		"snapshot",
		"session_id",
	})

	reportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "reports_total",
		Help:      "Count of results delivered to the CT server",
	}, []string{
		"snapshot",
		"passed",
	})

	pollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "polls_total",
		Help:      "Count of next-test polls by outcome",
	}, []string{
		"outcome",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		logrus.WithFields(logrus.Fields{
			"m":     "errors_total",
			"error": error,
		}).Debug("metric inc")
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

// RecordRun records the client-side outcome of one test run.
func RecordRun(snapshot string, sessionID string, result types.TestStatus, duration time.Duration) {
	if !isValidResult(result) {
		logrus.WithField("result", result).Error("RecordRun - invalid result")
		return
	}
	if Debug {
		logrus.WithFields(logrus.Fields{
			"m":          "runs_total",
			"snapshot":   snapshot,
			"session_id": sessionID,
			"result":     result,
			"duration":   duration,
		}).Debug("metric inc")
	}
	runsTotal.WithLabelValues(snapshot, sessionID, string(result)).Inc()
	runDuration.WithLabelValues(snapshot, sessionID).Set(duration.Seconds())
}

// RecordReport records one result delivered to the CT server.
func RecordReport(snapshot string, passed bool) {
	reportsTotal.WithLabelValues(snapshot, fmt.Sprintf("%t", passed)).Inc()
}

// RecordPoll records the outcome of one next-test poll: "test", "empty"
// or "error".
func RecordPoll(outcome string) {
	pollsTotal.WithLabelValues(outcome).Inc()
}

func isValidResult(result types.TestStatus) bool {
	return slices.Contains(validResults, result)
}
