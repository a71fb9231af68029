package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/miradorstack/flake-triage/internal/metrics"
)

var staleDryRun bool

var closeStaleIssuesCmd = &cobra.Command{
	Use:   "close-stale-issues",
	Short: "Close tracker issues of tests that no longer fail",
	Long: `Close the issues opened for failing tests when the test has not failed within the
failure history window and nobody but automation has commented on the issue.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if a.closer == nil {
			return fmt.Errorf("issue tracker not configured (clients.tracker.baseURL)")
		}
		if !a.durable && !staleDryRun {
			return fmt.Errorf("failure history requires the Valkey cache; enable cache or use --dry-run")
		}

		stillFailing, err := a.history.StillFailing(cmd.Context(), a.cfg.Project)
		if err != nil {
			return fmt.Errorf("load failure history: %w", err)
		}
		a.logger.Info("loaded failure history", slog.Int("still_failing", stillFailing.Len()))

		result, err := a.closer.CloseStale(cmd.Context(), stillFailing, staleDryRun)
		if err != nil {
			return err
		}
		if !result.DryRun {
			metrics.ObserveStaleIssuesClosed(len(result.Closed))
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	closeStaleIssuesCmd.Flags().BoolVar(&staleDryRun, "dry-run", false, "Report the issues that would be closed without closing them")
}
