package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/flake-triage/internal/api"
	"github.com/miradorstack/flake-triage/internal/engine"
	"github.com/miradorstack/flake-triage/internal/flakes"
	"github.com/miradorstack/flake-triage/internal/metrics"
	"github.com/miradorstack/flake-triage/internal/models"
	"github.com/miradorstack/flake-triage/internal/repo"
	"github.com/miradorstack/flake-triage/internal/utils"
)

// ReportLoader reads back stored triage reports.
type ReportLoader interface {
	LoadReport(ctx context.Context, id string) (models.TriageReport, error)
}

// FailureHistory lists the tests that failed recently.
type FailureHistory interface {
	StillFailing(ctx context.Context, project string) (flakes.Set, error)
}

// StaleIssueCloser sweeps tracker issues whose test recovered.
type StaleIssueCloser interface {
	CloseStale(ctx context.Context, stillFailing flakes.Set, dryRun bool) (models.StaleIssuesResult, error)
}

// TriageService implements the gRPC FlakeTriage service.
type TriageService struct {
	logger         *slog.Logger
	pipeline       *engine.Pipeline
	reports        ReportLoader
	history        FailureHistory
	closer         StaleIssueCloser
	defaultProject string
	latencies      *utils.LatencyTracker
}

// NewTriageService constructs the triage service facade. Collaborators other than the
// pipeline may be nil, in which case the matching methods fail with FailedPrecondition.
func NewTriageService(logger *slog.Logger, pipeline *engine.Pipeline, reports ReportLoader, history FailureHistory, closer StaleIssueCloser, defaultProject string) *TriageService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TriageService{
		logger:         logger,
		pipeline:       pipeline,
		reports:        reports,
		history:        history,
		closer:         closer,
		defaultProject: defaultProject,
		latencies:      utils.NewLatencyTracker(1024),
	}
}

var _ api.FlakeTriageServer = (*TriageService)(nil)

// Triage classifies the failures of a test run.
func (s *TriageService) Triage(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	if s.pipeline == nil {
		return nil, status.Error(codes.FailedPrecondition, "pipeline not configured")
	}

	run, err := api.FromStructTestRun(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	s.logger.Debug("Triage called", slog.String("project", run.Project), slog.String("run_id", run.RunID), slog.Int("tests", len(run.Results)))

	start := time.Now()
	report, err := s.pipeline.Triage(ctx, run)
	duration := time.Since(start)
	if err != nil {
		metrics.ObserveTriage(duration, metrics.OutcomeError)
		s.logger.Error("triage failed", slog.String("project", run.Project), slog.Any("error", err))
		return nil, toStatus(err, "triage failed")
	}
	s.latencies.Observe(duration)
	metrics.ObserveTriage(duration, metrics.OutcomeSuccess)
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		s.logger.Info("triage latency", slog.Duration("p95", s.latencies.Percentile(95)), slog.Int("samples", count))
	}

	out, err := api.ToStructReport(report)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// ExplainTest reports whether a single failure is known flaky.
func (s *TriageService) ExplainTest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	if s.pipeline == nil {
		return nil, status.Error(codes.FailedPrecondition, "pipeline not configured")
	}

	explainReq, err := api.FromStructExplainRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if explainReq.Project == "" {
		explainReq.Project = s.defaultProject
	}

	known, err := s.pipeline.Explain(ctx, explainReq.Project, explainReq.Package, explainReq.Test, explainReq.Failing)
	if err != nil {
		s.logger.Error("explain failed", slog.String("test", explainReq.Test), slog.Any("error", err))
		return nil, toStatus(err, "explain failed")
	}
	return api.ToStructExplainResponse(explainReq, known), nil
}

// GetReport returns a previously stored report.
func (s *TriageService) GetReport(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	if s.reports == nil {
		return nil, status.Error(codes.FailedPrecondition, "report store not configured")
	}

	id, err := api.FromStructReportID(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	report, err := s.reports.LoadReport(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrReportNotFound) {
			return nil, status.Errorf(codes.NotFound, "report %s not found", id)
		}
		s.logger.Error("load report failed", slog.String("report_id", id), slog.Any("error", err))
		return nil, toStatus(err, "failed to load report")
	}

	out, err := api.ToStructReport(report)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// CloseStaleIssues closes tracker issues whose test no longer fails.
func (s *TriageService) CloseStaleIssues(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	if s.closer == nil || s.history == nil {
		return nil, status.Error(codes.FailedPrecondition, "issue tracker not configured")
	}

	staleReq, err := api.FromStructStaleIssuesRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if staleReq.Project == "" {
		staleReq.Project = s.defaultProject
	}

	stillFailing, err := s.history.StillFailing(ctx, staleReq.Project)
	if err != nil {
		s.logger.Error("load failure history failed", slog.Any("error", err))
		return nil, status.Error(codes.Unavailable, "failure history unavailable")
	}

	result, err := s.closer.CloseStale(ctx, stillFailing, staleReq.DryRun)
	if err != nil {
		s.logger.Error("close stale issues failed", slog.Any("error", err))
		return nil, status.Error(codes.Unavailable, "issue tracker unavailable")
	}
	if !result.DryRun {
		metrics.ObserveStaleIssuesClosed(len(result.Closed))
	}
	return api.ToStructStaleIssuesResult(result), nil
}

// LatencyP95 returns the current p95 triage latency.
func (s *TriageService) LatencyP95() time.Duration {
	if s.latencies == nil {
		return 0
	}
	return s.latencies.Percentile(95)
}

func toStatus(err error, msg string) error {
	switch utils.KindOf(err) {
	case utils.KindInvalid:
		return status.Error(codes.InvalidArgument, err.Error())
	case utils.KindNotFound:
		return status.Error(codes.NotFound, err.Error())
	case utils.KindPrecondition:
		return status.Error(codes.FailedPrecondition, err.Error())
	case utils.KindUnavailable:
		return status.Errorf(codes.Unavailable, "%s: %v", msg, err)
	default:
		return status.Errorf(codes.Internal, "%s: %v", msg, err)
	}
}
