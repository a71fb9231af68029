package models

// ExplainRequest asks whether a single failure is known flaky.
type ExplainRequest struct {
	Project string
	Package string
	Test    string
	// Failing lists the other tests that failed in the same run.
	Failing []string
}

// StaleIssuesRequest triggers a sweep of tracker issues whose test recovered.
type StaleIssuesRequest struct {
	Project string
	DryRun  bool
}
