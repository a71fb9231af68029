package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/miradorstack/flake-triage/internal/extractors"
	"github.com/miradorstack/flake-triage/internal/flakes"
	"github.com/miradorstack/flake-triage/internal/metrics"
	"github.com/miradorstack/flake-triage/internal/models"
	"github.com/miradorstack/flake-triage/internal/notify"
	"github.com/miradorstack/flake-triage/internal/patterns"
	"github.com/miradorstack/flake-triage/internal/repo"
	"github.com/miradorstack/flake-triage/internal/utils"
)

// HistoryTracker describes the failure history operations required for the pipeline.
type HistoryTracker interface {
	Load(ctx context.Context, project string) (models.ExecutionHistory, error)
	Update(ctx context.Context, project string, sequence int64, history models.ExecutionHistory, executions []patterns.Execution) ([]models.FailureAlert, error)
}

// ReportWriter persists triage reports.
type ReportWriter interface {
	StoreReport(ctx context.Context, report models.TriageReport) error
}

// Pipeline orchestrates the triage of a test run.
type Pipeline struct {
	logger   *slog.Logger
	registry repo.Registry
	history  HistoryTracker
	reports  ReportWriter
	router   *Router
	poster   notify.Poster
	now      func() time.Time
}

// NewPipeline constructs a new triage pipeline. history, reports and poster are optional.
func NewPipeline(
	logger *slog.Logger,
	registry repo.Registry,
	history HistoryTracker,
	reports ReportWriter,
	router *Router,
	poster notify.Poster,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if router == nil {
		router = NewRouterFromRules(nil, "", nil)
	}
	return &Pipeline{
		logger:   logger,
		registry: registry,
		history:  history,
		reports:  reports,
		router:   router,
		poster:   poster,
		now:      time.Now,
	}
}

// Triage classifies the failures of run against the known flakes of its project, updates
// the failure history and notifies owners of unexplained failures.
func (p *Pipeline) Triage(ctx context.Context, run models.TestRun) (models.TriageReport, error) {
	const op = "engine.Triage"
	if p.registry == nil {
		return models.TriageReport{}, utils.NewAppError(op, utils.KindPrecondition, "flaky registry not configured", nil)
	}
	if err := validateRun(run); err != nil {
		return models.TriageReport{}, utils.NewAppError(op, utils.KindInvalid, err.Error(), nil)
	}

	var (
		known      models.KnownFlakes
		history    models.ExecutionHistory
		historyErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		known, err = p.registry.KnownFlakes(gctx, run.Project)
		if err != nil {
			return utils.NewAppError(op, utils.KindUnavailable, "fetch known flakes", err)
		}
		return nil
	})
	if p.history != nil {
		g.Go(func() error {
			history, historyErr = p.history.Load(gctx, run.Project)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.TriageReport{}, err
	}

	report := models.TriageReport{
		ReportID:  uuid.NewString(),
		RunID:     run.RunID,
		Project:   run.Project,
		Verdicts:  make([]models.PackageVerdict, 0),
		CreatedAt: p.now().UTC(),
	}
	for _, outcome := range extractors.SplitOutcomes(run.Results) {
		report.Verdicts = append(report.Verdicts, p.classify(outcome, known.For(outcome.Package)))
	}

	switch {
	case p.history == nil:
	case historyErr != nil:
		p.logger.Warn("failure history unavailable, skipping alerts",
			slog.String("project", run.Project),
			slog.Any("error", historyErr))
	default:
		alerts, err := p.history.Update(ctx, run.Project, run.Sequence, history, executions(run.Results))
		if err != nil {
			p.logger.Warn("failed to persist failure history", slog.Any("error", err))
		}
		report.Alerts = alerts
	}

	if p.reports != nil {
		if err := p.reports.StoreReport(ctx, report); err != nil {
			p.logger.Warn("failed to persist report", slog.String("report_id", report.ReportID), slog.Any("error", err))
		}
	}

	if run.Notify {
		p.notify(ctx, report)
	}

	_, explained, actionable := report.Totals()
	metrics.ObserveFailures(explained, actionable)
	for _, alert := range report.Alerts {
		metrics.ObserveAlert(string(alert.Kind))
	}

	p.logger.Info("triaged test run",
		slog.String("project", run.Project),
		slog.String("run_id", run.RunID),
		slog.String("report_id", report.ReportID),
		slog.Int("packages", len(report.Verdicts)),
		slog.Int("known_flaky", explained),
		slog.Int("actionable", actionable),
		slog.Int("alerts", len(report.Alerts)))
	return report, nil
}

// Explain reports whether a failure of test in pkg is known flaky, given the other tests
// that failed in the same run. It agrees with the KnownFlaky list Triage would report.
func (p *Pipeline) Explain(ctx context.Context, project, pkg, test string, failing []string) (bool, error) {
	const op = "engine.Explain"
	if p.registry == nil {
		return false, utils.NewAppError(op, utils.KindPrecondition, "flaky registry not configured", nil)
	}
	if strings.TrimSpace(test) == "" {
		return false, utils.NewAppError(op, utils.KindInvalid, "test name is required", nil)
	}

	known, err := p.registry.KnownFlakes(ctx, project)
	if err != nil {
		return false, utils.NewAppError(op, utils.KindUnavailable, "fetch known flakes", err)
	}
	failed := flakes.NewSet(failing...)
	failed.Add(test)
	return flakes.NewClassifier(known.For(pkg), failed).Explained().Has(test), nil
}

func (p *Pipeline) classify(outcome extractors.PackageOutcome, known flakes.Set) models.PackageVerdict {
	classifier := flakes.NewClassifier(known, outcome.Failing)
	explained := classifier.Explained()
	actionable := classifier.Actionable()

	verdict := models.PackageVerdict{
		Package:    outcome.Package,
		Executed:   len(outcome.Executed),
		Failing:    outcome.Failing.Sorted(),
		KnownFlaky: explained.Sorted(),
		Actionable: actionable.Sorted(),
		Leaves:     flakes.Leaves(actionable),
	}
	if verdict.HasActionable() {
		verdict.Route = p.router.Route(outcome.Package, verdict.Leaves)
	}
	return verdict
}

func (p *Pipeline) notify(ctx context.Context, report models.TriageReport) {
	if p.poster == nil {
		return
	}

	var g errgroup.Group
	post := func(channel, text string) {
		g.Go(func() error {
			if err := p.poster.PostMessage(ctx, channel, text); err != nil {
				p.logger.Warn("failed to post chat message",
					slog.String("channel", channel),
					slog.Any("error", err))
			}
			return nil
		})
	}

	for _, verdict := range report.Verdicts {
		if !verdict.HasActionable() || verdict.Route.Muted || verdict.Route.Channel == "" {
			continue
		}
		post(verdict.Route.Channel, notify.RenderVerdict(report, verdict))
	}
	if len(report.Alerts) > 0 && p.router.defaultChannel != "" {
		post(p.router.defaultChannel, notify.RenderAlerts(report.Project, report.Alerts))
	}
	_ = g.Wait()
}

func validateRun(run models.TestRun) error {
	if strings.TrimSpace(run.Project) == "" {
		return fmt.Errorf("project is required")
	}
	for i, res := range run.Results {
		if strings.TrimSpace(res.Name) == "" {
			return fmt.Errorf("test %d has no name", i)
		}
	}
	return nil
}

func executions(results []models.TestResult) []patterns.Execution {
	out := make([]patterns.Execution, 0, len(results))
	for _, res := range results {
		if res.Outcome == models.OutcomeSkip {
			continue
		}
		out = append(out, patterns.Execution{Package: res.Package, Test: res.Name, Failed: res.Failed()})
	}
	return out
}
