package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	project    string
)

// errActionable signals that classify found failures no known flake explains.
var errActionable = errors.New("unexplained test failures")

var rootCmd = &cobra.Command{
	Use:   "flake-triage",
	Short: "Separate known flaky test failures from real regressions",
	Long: `flake-triage classifies failing Go tests against a registry of known flaky tests.

A failing suite is only excused when every failing subtest below it is a known flake, so
real regressions hidden inside a flaky suite still surface.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file (or set FLAKE_TRIAGE_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&project, "project", "", "Project whose flakes and history are used (default from config)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(closeStaleIssuesCmd)
	rootCmd.AddCommand(postMessageCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errActionable) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
