package models

// Issue is a ticket filed for a failing test.
type Issue struct {
	Key      string    `json:"key"`
	Status   string    `json:"status"`
	Summary  string    `json:"summary"`
	Comments []Comment `json:"comments"`
}

// Comment is a single comment on an Issue.
type Comment struct {
	Author string `json:"author"`
	Body   string `json:"body"`
}

// StaleIssuesResult reports the outcome of a stale ticket sweep.
type StaleIssuesResult struct {
	Examined int      `json:"examined"`
	Closed   []string `json:"closed"`
	Errors   []string `json:"errors"`
	DryRun   bool     `json:"dry_run"`
}
