package notify

import (
	"fmt"
	"strings"

	"github.com/miradorstack/flake-triage/internal/models"
)

// MaxListed bounds the number of tests named in a single message.
const MaxListed = 10

// RenderVerdict describes the actionable failures of one package.
func RenderVerdict(report models.TriageReport, verdict models.PackageVerdict) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %d unexplained failure(s) in %s", report.Project, len(verdict.Actionable), verdict.Package)
	if report.RunID != "" {
		fmt.Fprintf(&b, " (run %s)", report.RunID)
	}
	b.WriteString("\n")
	if verdict.Route.Team != "" {
		fmt.Fprintf(&b, "Owner: %s\n", verdict.Route.Team)
	}
	writeBounded(&b, verdict.Leaves)
	if n := len(verdict.KnownFlaky); n > 0 {
		fmt.Fprintf(&b, "%d known flaky failure(s) ignored.\n", n)
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderAlerts describes tests that keep failing across runs.
func RenderAlerts(project string, alerts []models.FailureAlert) string {
	if len(alerts) == 0 {
		return ""
	}
	lines := make([]string, 0, len(alerts))
	for _, alert := range alerts {
		switch alert.Kind {
		case models.AlertConsecutive:
			lines = append(lines, fmt.Sprintf("%s %s failed %d times in a row", alert.Package, alert.Test, alert.Consecutive))
		default:
			lines = append(lines, fmt.Sprintf("%s %s failed %d of the last %d runs", alert.Package, alert.Test, alert.Failures, alert.Window))
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %d test(s) keep failing\n", project, len(alerts))
	writeBounded(&b, lines)
	return strings.TrimRight(b.String(), "\n")
}

func writeBounded(b *strings.Builder, items []string) {
	for i, item := range items {
		if i == MaxListed {
			fmt.Fprintf(b, "  ... and %d more\n", len(items)-MaxListed)
			return
		}
		fmt.Fprintf(b, "  - %s\n", item)
	}
}
