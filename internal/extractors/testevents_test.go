package extractors

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/miradorstack/flake-triage/internal/models"
)

const sampleEvents = `{"Time":"2024-05-01T10:00:00Z","Action":"start","Package":"pkg/containers"}
{"Time":"2024-05-01T10:00:00Z","Action":"run","Package":"pkg/containers","Test":"TestEKSSuite"}
{"Time":"2024-05-01T10:00:00Z","Action":"run","Package":"pkg/containers","Test":"TestEKSSuite/TestCPU"}
{"Time":"2024-05-01T10:00:01Z","Action":"output","Package":"pkg/containers","Test":"TestEKSSuite/TestCPU","Output":"--- FAIL\n"}

{"Time":"2024-05-01T10:00:01Z","Action":"fail","Package":"pkg/containers","Test":"TestEKSSuite/TestCPU","Elapsed":1.5}
{"Time":"2024-05-01T10:00:02Z","Action":"fail","Package":"pkg/containers","Test":"TestEKSSuite","Elapsed":2}
{"Time":"2024-05-01T10:00:02Z","Action":"run","Package":"pkg/agent","Test":"TestStatus"}
{"Time":"2024-05-01T10:00:03Z","Action":"pass","Package":"pkg/agent","Test":"TestStatus","Elapsed":0.25}
{"Time":"2024-05-01T10:00:03Z","Action":"run","Package":"pkg/agent","Test":"TestSkipped"}
{"Time":"2024-05-01T10:00:03Z","Action":"skip","Package":"pkg/agent","Test":"TestSkipped"}
{"Time":"2024-05-01T10:00:04Z","Action":"fail","Package":"pkg/containers","Elapsed":4}
`

func TestParseTestEvents(t *testing.T) {
	results, err := ParseTestEvents(strings.NewReader(sampleEvents))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []models.TestResult{
		{Package: "pkg/containers", Name: "TestEKSSuite", Outcome: models.OutcomeFail, Elapsed: 2 * time.Second},
		{Package: "pkg/containers", Name: "TestEKSSuite/TestCPU", Outcome: models.OutcomeFail, Elapsed: 1500 * time.Millisecond},
		{Package: "pkg/agent", Name: "TestStatus", Outcome: models.OutcomePass, Elapsed: 250 * time.Millisecond},
		{Package: "pkg/agent", Name: "TestSkipped", Outcome: models.OutcomeSkip},
	}
	if diff := cmp.Diff(want, results); diff != "" {
		t.Fatalf("ParseTestEvents mismatch (-want +got):\n%s", diff)
	}
}

func TestParseTestEventsRetryWins(t *testing.T) {
	stream := `{"Action":"fail","Package":"p","Test":"TestFlaky"}
{"Action":"run","Package":"p","Test":"TestFlaky"}
{"Action":"pass","Package":"p","Test":"TestFlaky"}
`
	results, err := ParseTestEvents(strings.NewReader(stream))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].Outcome != models.OutcomePass {
		t.Fatalf("expected the rerun to win, got %+v", results)
	}
}

func TestParseTestEventsMalformedLine(t *testing.T) {
	stream := `{"Action":"pass","Package":"p","Test":"A"}
not json
`
	_, err := ParseTestEvents(strings.NewReader(stream))
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("expected error naming line 2, got %v", err)
	}
}

func TestSplitOutcomes(t *testing.T) {
	outcomes := SplitOutcomes([]models.TestResult{
		{Package: "a", Name: "TestX", Outcome: models.OutcomeFail},
		{Package: "b", Name: "TestY", Outcome: models.OutcomePass},
		{Package: "a", Name: "TestX/sub", Outcome: models.OutcomeFail},
		{Package: "a", Name: "TestZ", Outcome: models.OutcomeSkip},
	})

	if len(outcomes) != 2 || outcomes[0].Package != "a" || outcomes[1].Package != "b" {
		t.Fatalf("unexpected package order: %+v", outcomes)
	}
	if diff := cmp.Diff([]string{"TestX", "TestX/sub", "TestZ"}, outcomes[0].Executed); diff != "" {
		t.Fatalf("executed mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"TestX", "TestX/sub"}, outcomes[0].Failing.Sorted()); diff != "" {
		t.Fatalf("failing mismatch (-want +got):\n%s", diff)
	}
	if outcomes[1].Failing.Len() != 0 {
		t.Fatalf("expected no failures in b")
	}
}
