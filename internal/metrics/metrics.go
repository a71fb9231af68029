package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels triages that produced a report.
	OutcomeSuccess = "success"
	// OutcomeError labels triages that failed (invalid input or unavailable registry).
	OutcomeError = "error"
)

var (
	triagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flake_triage",
			Name:      "triages_total",
			Help:      "Total number of test runs triaged, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	triageDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "flake_triage",
			Name:      "triage_seconds",
			Help:      "Triage latency in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)

	failuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flake_triage",
			Name:      "failures_total",
			Help:      "Failing tests seen during triage, partitioned by classification.",
		},
		[]string{"classification"},
	)

	alertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flake_triage",
			Name:      "failure_alerts_total",
			Help:      "Repeated failure alerts raised, partitioned by kind.",
		},
		[]string{"kind"},
	)

	staleIssuesClosedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "flake_triage",
			Name:      "stale_issues_closed_total",
			Help:      "Tracker issues closed because their test recovered.",
		},
	)
)

// Register attaches flake-triage collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		triagesTotal,
		triageDurationSeconds,
		failuresTotal,
		alertsTotal,
		staleIssuesClosedTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveTriage records a triage duration and outcome label.
func ObserveTriage(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	triagesTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	triageDurationSeconds.Observe(duration.Seconds())
}

// ObserveFailures counts explained and actionable failures of a run.
func ObserveFailures(explained, actionable int) {
	failuresTotal.WithLabelValues("known_flaky").Add(float64(explained))
	failuresTotal.WithLabelValues("actionable").Add(float64(actionable))
}

// ObserveAlert counts a repeated failure alert.
func ObserveAlert(kind string) {
	alertsTotal.WithLabelValues(kind).Inc()
}

// ObserveStaleIssuesClosed counts closed tracker issues.
func ObserveStaleIssuesClosed(n int) {
	if n > 0 {
		staleIssuesClosedTotal.Add(float64(n))
	}
}
