package models

// AlertKind distinguishes repeated failure alerts.
type AlertKind string

const (
	// AlertConsecutive fires when a test fails several runs in a row.
	AlertConsecutive AlertKind = "consecutive"
	// AlertCumulative fires when a test fails too often over the tracking window.
	AlertCumulative AlertKind = "cumulative"
)

// TestHistory tracks recent executions of a test.
type TestHistory struct {
	Consecutive int    `json:"consecutive_failures"`
	Window      []bool `json:"window"`
}

// Failures counts failing executions in the window.
func (h *TestHistory) Failures() int {
	n := 0
	for _, failed := range h.Window {
		if failed {
			n++
		}
	}
	return n
}

// ExecutionHistory is the persisted failure history of a project.
type ExecutionHistory struct {
	Sequence int64                   `json:"sequence"`
	Tests    map[string]*TestHistory `json:"tests"`
}

// FailureAlert reports a test that keeps failing.
type FailureAlert struct {
	Package     string    `json:"package"`
	Test        string    `json:"test"`
	Kind        AlertKind `json:"kind"`
	Consecutive int       `json:"consecutive"`
	Failures    int       `json:"failures"`
	Window      int       `json:"window"`
}
