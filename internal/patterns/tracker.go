package patterns

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/miradorstack/flake-triage/internal/flakes"
	"github.com/miradorstack/flake-triage/internal/models"
)

// Store abstracts persistence for execution histories.
type Store interface {
	LoadHistory(ctx context.Context, project string) (models.ExecutionHistory, error)
	SaveHistory(ctx context.Context, project string, history models.ExecutionHistory) error
}

// Thresholds control when repeated failures raise alerts.
type Thresholds struct {
	Consecutive int
	WindowSize  int
	FailureRate float64
}

// DefaultThresholds alert on three failures in a row or half of the last ten runs.
func DefaultThresholds() Thresholds {
	return Thresholds{Consecutive: 3, WindowSize: 10, FailureRate: 0.5}
}

// Execution is the outcome of one test in one run.
type Execution struct {
	Package string
	Test    string
	Failed  bool
}

// Tracker maintains per-test failure streaks across runs.
type Tracker struct {
	store      Store
	thresholds Thresholds
	logger     *slog.Logger
}

// NewTracker constructs a Tracker; zero thresholds fall back to the defaults.
func NewTracker(logger *slog.Logger, store Store, thresholds Thresholds) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultThresholds()
	if thresholds.Consecutive <= 0 {
		thresholds.Consecutive = defaults.Consecutive
	}
	if thresholds.WindowSize <= 0 {
		thresholds.WindowSize = defaults.WindowSize
	}
	if thresholds.FailureRate <= 0 {
		thresholds.FailureRate = defaults.FailureRate
	}
	return &Tracker{store: store, thresholds: thresholds, logger: logger}
}

// Load returns the stored history of project.
func (t *Tracker) Load(ctx context.Context, project string) (models.ExecutionHistory, error) {
	if t.store == nil {
		return models.ExecutionHistory{Tests: map[string]*models.TestHistory{}}, nil
	}
	history, err := t.store.LoadHistory(ctx, project)
	if err != nil {
		return models.ExecutionHistory{}, err
	}
	if history.Tests == nil {
		history.Tests = map[string]*models.TestHistory{}
	}
	return history, nil
}

// Update folds the executions of run sequence into history, persists it, and returns the
// alerts raised. Runs older than the stored history are ignored.
func (t *Tracker) Update(ctx context.Context, project string, sequence int64, history models.ExecutionHistory, executions []Execution) ([]models.FailureAlert, error) {
	if history.Tests == nil {
		history.Tests = map[string]*models.TestHistory{}
	}
	if sequence > 0 && history.Sequence > sequence {
		t.logger.Info("skipping out-of-order history update",
			slog.String("project", project),
			slog.Int64("stored_sequence", history.Sequence),
			slog.Int64("sequence", sequence))
		return nil, nil
	}
	if sequence > 0 {
		history.Sequence = sequence
	}

	alerts := t.apply(history, executions)

	if t.store != nil {
		if err := t.store.SaveHistory(ctx, project, history); err != nil {
			return alerts, err
		}
	}
	return alerts, nil
}

func (t *Tracker) apply(history models.ExecutionHistory, executions []Execution) []models.FailureAlert {
	var alerts []models.FailureAlert
	for _, exec := range executions {
		key := HistoryKey(exec.Package, exec.Test)
		entry, tracked := history.Tests[key]
		if !tracked {
			if !exec.Failed {
				continue
			}
			entry = &models.TestHistory{}
			history.Tests[key] = entry
		}

		if exec.Failed {
			entry.Consecutive++
		} else {
			entry.Consecutive = 0
		}
		entry.Window = append(entry.Window, exec.Failed)
		if len(entry.Window) > t.thresholds.WindowSize {
			entry.Window = entry.Window[len(entry.Window)-t.thresholds.WindowSize:]
		}

		if entry.Failures() == 0 {
			delete(history.Tests, key)
			continue
		}
		if !exec.Failed {
			continue
		}

		if entry.Consecutive == t.thresholds.Consecutive {
			alerts = append(alerts, t.alert(exec, entry, models.AlertConsecutive))
		}
		if len(entry.Window) == t.thresholds.WindowSize &&
			float64(entry.Failures())/float64(len(entry.Window)) >= t.thresholds.FailureRate {
			alerts = append(alerts, t.alert(exec, entry, models.AlertCumulative))
		}
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		if alerts[i].Package != alerts[j].Package {
			return alerts[i].Package < alerts[j].Package
		}
		return alerts[i].Test < alerts[j].Test
	})
	return alerts
}

func (t *Tracker) alert(exec Execution, entry *models.TestHistory, kind models.AlertKind) models.FailureAlert {
	return models.FailureAlert{
		Package:     exec.Package,
		Test:        exec.Test,
		Kind:        kind,
		Consecutive: entry.Consecutive,
		Failures:    entry.Failures(),
		Window:      len(entry.Window),
	}
}

// StillFailing returns the names of tests that failed at least once in their window.
func (t *Tracker) StillFailing(ctx context.Context, project string) (flakes.Set, error) {
	history, err := t.Load(ctx, project)
	if err != nil {
		return nil, err
	}
	failing := flakes.NewSet()
	for key, entry := range history.Tests {
		if entry.Failures() == 0 {
			continue
		}
		_, test := SplitHistoryKey(key)
		failing.Add(test)
	}
	return failing, nil
}

// HistoryKey identifies a test across runs.
func HistoryKey(pkg, test string) string {
	if pkg == "" {
		return test
	}
	return pkg + " " + test
}

// SplitHistoryKey reverses HistoryKey. Package paths never contain spaces.
func SplitHistoryKey(key string) (pkg, test string) {
	if i := strings.IndexByte(key, ' '); i >= 0 {
		return key[:i], key[i+1:]
	}
	return "", key
}
