package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/miradorstack/flake-triage/internal/cache"
	"github.com/miradorstack/flake-triage/internal/models"
)

// ErrReportNotFound is returned when a report id is unknown or expired.
var ErrReportNotFound = errors.New("report not found")

// ReportStore keeps triage reports in the cache for later retrieval.
type ReportStore struct {
	cache cache.Provider
	ttl   time.Duration
}

// NewReportStore returns a store writing reports with the given retention.
func NewReportStore(provider cache.Provider, ttl time.Duration) *ReportStore {
	if provider == nil {
		provider = cache.NoopProvider{}
	}
	return &ReportStore{cache: provider, ttl: ttl}
}

// StoreReport persists report under its id.
func (s *ReportStore) StoreReport(ctx context.Context, report models.TriageReport) error {
	if report.ReportID == "" {
		return fmt.Errorf("report id is required")
	}
	return cache.SetJSON(ctx, s.cache, cache.Key("report", report.ReportID), report, s.ttl)
}

// LoadReport returns the report stored under id.
func (s *ReportStore) LoadReport(ctx context.Context, id string) (models.TriageReport, error) {
	var report models.TriageReport
	err := cache.GetJSON(ctx, s.cache, cache.Key("report", id), &report)
	switch {
	case errors.Is(err, cache.ErrCacheMiss):
		return models.TriageReport{}, ErrReportNotFound
	case err != nil:
		return models.TriageReport{}, fmt.Errorf("load report: %w", err)
	}
	return report, nil
}
