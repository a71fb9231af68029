package models

import "time"

// Route names the team and chat channel that own a set of failures.
type Route struct {
	RuleID  string `json:"rule_id,omitempty"`
	Team    string `json:"team,omitempty"`
	Channel string `json:"channel,omitempty"`
	Muted   bool   `json:"muted,omitempty"`
}

// PackageVerdict is the classification of one package's failures.
type PackageVerdict struct {
	Package    string   `json:"package"`
	Executed   int      `json:"executed"`
	Failing    []string `json:"failing,omitempty"`
	KnownFlaky []string `json:"known_flaky,omitempty"`
	Actionable []string `json:"actionable,omitempty"`
	Leaves     []string `json:"leaves,omitempty"`
	Route      Route    `json:"route"`
}

// HasActionable reports whether any failure is left after removing known flakes.
func (v PackageVerdict) HasActionable() bool { return len(v.Actionable) > 0 }

// TriageReport summarises the triage of a test run.
type TriageReport struct {
	ReportID  string           `json:"report_id"`
	RunID     string           `json:"run_id"`
	Project   string           `json:"project"`
	Verdicts  []PackageVerdict `json:"verdicts"`
	Alerts    []FailureAlert   `json:"alerts,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// Totals returns the failing, explained and actionable counts across packages.
func (r TriageReport) Totals() (failing, explained, actionable int) {
	for _, v := range r.Verdicts {
		failing += len(v.Failing)
		explained += len(v.KnownFlaky)
		actionable += len(v.Actionable)
	}
	return failing, explained, actionable
}

// HasActionable reports whether any package has unexplained failures.
func (r TriageReport) HasActionable() bool {
	for _, v := range r.Verdicts {
		if v.HasActionable() {
			return true
		}
	}
	return false
}
