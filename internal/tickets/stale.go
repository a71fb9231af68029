// Package tickets closes tracker issues opened for failing tests once those tests recover.
package tickets

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/miradorstack/flake-triage/internal/flakes"
	"github.com/miradorstack/flake-triage/internal/models"
)

// DefaultStaleQuery selects the open issues created for failing tests.
const DefaultStaleQuery = `status = "To Do" AND summary ~ "Failed agent CI test"`

var testNameMarker = regexp.MustCompile(`Test name: (.*)\n`)

// Tracker is the subset of an issue tracker used to close stale issues.
type Tracker interface {
	SearchIssues(ctx context.Context, query string) ([]models.Issue, error)
	CloseIssue(ctx context.Context, key, comment string) error
}

// StaleIssue pairs an issue with the recovered test it was opened for.
type StaleIssue struct {
	Issue models.Issue
	Test  string
}

// SelectStale returns the issues whose comments all come from automation and whose test is
// no longer failing.
func SelectStale(issues []models.Issue, stillFailing flakes.Set) []StaleIssue {
	var stale []StaleIssue
	for _, issue := range issues {
		test, ok := botOnlyTestName(issue.Comments)
		if !ok || test == "" || stillFailing.Has(test) {
			continue
		}
		stale = append(stale, StaleIssue{Issue: issue, Test: test})
	}
	return stale
}

// botOnlyTestName returns the last test name marker, or false once a human has commented.
func botOnlyTestName(comments []models.Comment) (string, bool) {
	test := ""
	for _, comment := range comments {
		if !strings.Contains(strings.ToLower(comment.Author), "robot") {
			return "", false
		}
		if m := testNameMarker.FindStringSubmatch(comment.Body); m != nil {
			test = m[1]
		}
	}
	return test, true
}

// Closer finds and closes stale issues.
type Closer struct {
	tracker Tracker
	query   string
	logger  *slog.Logger
}

// NewCloser constructs a Closer; an empty query falls back to DefaultStaleQuery.
func NewCloser(logger *slog.Logger, tracker Tracker, query string) *Closer {
	if logger == nil {
		logger = slog.Default()
	}
	if query == "" {
		query = DefaultStaleQuery
	}
	return &Closer{tracker: tracker, query: query, logger: logger}
}

// CloseStale closes every stale issue. Failures on a single issue are collected and do not
// stop the sweep. In dry-run mode the tracker is only searched.
func (c *Closer) CloseStale(ctx context.Context, stillFailing flakes.Set, dryRun bool) (models.StaleIssuesResult, error) {
	result := models.StaleIssuesResult{DryRun: dryRun, Closed: []string{}, Errors: []string{}}
	if c.tracker == nil {
		return result, fmt.Errorf("issue tracker not configured")
	}

	issues, err := c.tracker.SearchIssues(ctx, c.query)
	if err != nil {
		return result, fmt.Errorf("search issues: %w", err)
	}
	result.Examined = len(issues)
	c.logger.Info("examining failing test issues", slog.Int("issues", len(issues)))

	for _, stale := range SelectStale(issues, stillFailing) {
		if dryRun {
			c.logger.Info("would close stale issue",
				slog.String("issue", stale.Issue.Key),
				slog.String("test", stale.Test))
			result.Closed = append(result.Closed, stale.Issue.Key)
			continue
		}
		if err := c.tracker.CloseIssue(ctx, stale.Issue.Key, closingComment(stale.Test)); err != nil {
			c.logger.Warn("failed to close issue",
				slog.String("issue", stale.Issue.Key),
				slog.Any("error", err))
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", stale.Issue.Key, err))
			continue
		}
		result.Closed = append(result.Closed, stale.Issue.Key)
	}

	c.logger.Info("closed stale issues",
		slog.Int("closed", len(result.Closed)),
		slog.Bool("dry_run", dryRun))
	return result, nil
}

func closingComment(test string) string {
	return fmt.Sprintf("Test %s has not failed recently, closing this issue automatically.", test)
}
