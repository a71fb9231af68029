package models

import (
	"time"

	"github.com/miradorstack/flake-triage/internal/flakes"
)

// Outcome is the terminal state of a single test execution.
type Outcome string

const (
	OutcomePass Outcome = "pass"
	OutcomeFail Outcome = "fail"
	OutcomeSkip Outcome = "skip"
)

// ParseOutcome maps loose outcome strings onto an Outcome. Unknown values map to skip.
func ParseOutcome(value string) Outcome {
	switch value {
	case "pass", "passed", "PASS", "success":
		return OutcomePass
	case "fail", "failed", "FAIL", "failure", "error":
		return OutcomeFail
	default:
		return OutcomeSkip
	}
}

// TestResult records how one test, at any depth of its suite hierarchy, finished.
type TestResult struct {
	Package string
	Name    string
	Outcome Outcome
	Elapsed time.Duration
}

// Failed reports whether the test failed.
func (r TestResult) Failed() bool { return r.Outcome == OutcomeFail }

// TestRun is the set of results collected from one CI pipeline.
type TestRun struct {
	RunID     string
	Project   string
	Sequence  int64
	Notify    bool
	StartedAt time.Time
	Results   []TestResult
}

// KnownFlakes maps a Go package to the test names flagged as flaky in it.
type KnownFlakes map[string]flakes.Set

// For returns the flaky tests of pkg, never nil.
func (k KnownFlakes) For(pkg string) flakes.Set {
	if set, ok := k[pkg]; ok && set != nil {
		return set
	}
	return flakes.NewSet()
}

// Add records name as flaky in pkg.
func (k KnownFlakes) Add(pkg, name string) {
	set, ok := k[pkg]
	if !ok {
		set = flakes.NewSet()
		k[pkg] = set
	}
	set.Add(name)
}

// Count returns the number of flaky tests across packages.
func (k KnownFlakes) Count() int {
	total := 0
	for _, set := range k {
		total += set.Len()
	}
	return total
}
