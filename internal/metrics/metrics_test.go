package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second register: %v", err)
	}
}

func TestObserveTriageNormalisesOutcome(t *testing.T) {
	before := testutil.ToFloat64(triagesTotal.WithLabelValues(OutcomeSuccess))
	ObserveTriage(-time.Second, "partial")
	after := testutil.ToFloat64(triagesTotal.WithLabelValues(OutcomeSuccess))
	if after != before+1 {
		t.Fatalf("expected unknown outcomes to count as success, got %v -> %v", before, after)
	}
}

func TestObserveFailures(t *testing.T) {
	before := testutil.ToFloat64(failuresTotal.WithLabelValues("actionable"))
	ObserveFailures(2, 3)
	if got := testutil.ToFloat64(failuresTotal.WithLabelValues("actionable")); got != before+3 {
		t.Fatalf("expected actionable counter to grow by 3, got %v -> %v", before, got)
	}
}
