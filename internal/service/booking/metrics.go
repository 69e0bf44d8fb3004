package booking

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeApplied = "applied"
	outcomeStale   = "stale"
	outcomeError   = "error"

	resultSuccess    = "success"
	resultValidation = "validation_error"
	resultStaff      = "insufficient_staff"
	resultFailure    = "failure"
)

var (
	submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "booking",
		Subsystem: "form",
		Name:      "submissions_total",
		Help:      "Number of reservation submissions by mode and result.",
	}, []string{"mode", "result"})

	availabilityResponsesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "booking",
		Subsystem: "form",
		Name:      "availability_responses_total",
		Help:      "Number of availability responses by outcome.",
	}, []string{"outcome"})

	availabilityFetchSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "booking",
		Subsystem: "form",
		Name:      "availability_fetch_seconds",
		Help:      "Latency of availability lookups.",
		Buckets:   prometheus.DefBuckets,
	})
)

// Collectors はPushgatewayへ送信するメトリクスを返します
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		submissionsTotal,
		availabilityResponsesTotal,
		availabilityFetchSeconds,
	}
}

func submitMode(s FormState) string {
	if s.IsEdit() {
		return "update"
	}
	return "create"
}
