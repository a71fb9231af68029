package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/miradorstack/flake-triage/internal/models"
)

const eventsLog = `{"Action":"run","Package":"pkg/containers","Test":"TestEKSSuite"}
{"Action":"run","Package":"pkg/containers","Test":"TestEKSSuite/TestCPU"}
{"Action":"output","Package":"pkg/containers","Test":"TestEKSSuite/TestCPU","Output":"boom\n"}
{"Action":"fail","Package":"pkg/containers","Test":"TestEKSSuite/TestCPU"}
{"Action":"fail","Package":"pkg/containers","Test":"TestEKSSuite"}
{"Action":"pass","Package":"pkg/containers","Test":"TestKindSuite"}
{"Action":"fail","Package":"pkg/containers"}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunClassifyExplained(t *testing.T) {
	dir := t.TempDir()
	events := writeFile(t, dir, "events.json", eventsLog)
	flakes := writeFile(t, dir, "flakes.yaml", "pkg/containers:\n  - test: TestEKSSuite/TestCPU\n")

	var out bytes.Buffer
	if err := runClassify(context.Background(), quietLogger(), events, flakes, "agent", &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var report models.TriageReport
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if len(report.Verdicts) != 1 {
		t.Fatalf("expected one verdict, got %+v", report.Verdicts)
	}
	if diff := cmp.Diff([]string{"TestEKSSuite", "TestEKSSuite/TestCPU"}, report.Verdicts[0].KnownFlaky); diff != "" {
		t.Fatalf("known flaky mismatch (-want +got):\n%s", diff)
	}
}

func TestRunClassifyActionable(t *testing.T) {
	dir := t.TempDir()
	events := writeFile(t, dir, "events.json", eventsLog)
	flakes := writeFile(t, dir, "flakes.yaml", "pkg/other:\n  - test: TestEKSSuite/TestCPU\n")

	var out bytes.Buffer
	err := runClassify(context.Background(), quietLogger(), events, flakes, "agent", &out)
	if !errors.Is(err, errActionable) {
		t.Fatalf("expected actionable error, got %v", err)
	}
	if out.Len() == 0 {
		t.Fatalf("expected report to be printed even when failures are actionable")
	}
}

func TestRunClassifyMissingEvents(t *testing.T) {
	err := runClassify(context.Background(), quietLogger(), filepath.Join(t.TempDir(), "missing.json"), "", "agent", io.Discard)
	if err == nil || errors.Is(err, errActionable) {
		t.Fatalf("expected open error, got %v", err)
	}
}
