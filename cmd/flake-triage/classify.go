package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/miradorstack/flake-triage/internal/engine"
	"github.com/miradorstack/flake-triage/internal/extractors"
	"github.com/miradorstack/flake-triage/internal/models"
	"github.com/miradorstack/flake-triage/internal/repo"
)

var (
	classifyEvents string
	classifyFlakes string
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Triage a go test -json log against a flakes file",
	Long: `Read the output of "go test -json" and report which failures are explained by the
known flaky tests listed in a flakes file.

The report is printed as JSON. The command exits with status 1 when at least one failure
is not explained by a known flake.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		flakesPath := classifyFlakes
		if flakesPath == "" {
			flakesPath = a.cfg.Clients.Registry.File
		}
		return runClassify(cmd.Context(), a.logger, classifyEvents, flakesPath, a.cfg.Project, cmd.OutOrStdout())
	},
}

func init() {
	classifyCmd.Flags().StringVar(&classifyEvents, "events", "", "Path to go test -json output (- for stdin)")
	classifyCmd.Flags().StringVar(&classifyFlakes, "flakes", "", "Path to the YAML flakes file (default from config)")
	_ = classifyCmd.MarkFlagRequired("events")
}

func runClassify(ctx context.Context, logger *slog.Logger, eventsPath, flakesPath, project string, out io.Writer) error {
	results, err := readEvents(eventsPath)
	if err != nil {
		return err
	}

	pipeline := engine.NewPipeline(logger, repo.NewFileRegistry(flakesPath), nil, nil, nil, nil)
	report, err := pipeline.Triage(ctx, models.TestRun{Project: project, Results: results})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if report.HasActionable() {
		return errActionable
	}
	return nil
}

func readEvents(path string) ([]models.TestResult, error) {
	if path == "-" {
		return extractors.ParseTestEvents(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open events: %w", err)
	}
	defer f.Close()
	return extractors.ParseTestEvents(f)
}
