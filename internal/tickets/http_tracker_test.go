package tickets

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/miradorstack/flake-triage/internal/models"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func respond(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
}

func TestHTTPTrackerSearchIssues(t *testing.T) {
	tracker := NewHTTPTracker("https://jira.example.com", "bot", "secret", "31", time.Second)
	tracker.httpClient = &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/rest/api/2/search" {
			t.Fatalf("unexpected path %s", req.URL.Path)
		}
		if user, pass, ok := req.BasicAuth(); !ok || user != "bot" || pass != "secret" {
			t.Fatalf("missing basic auth")
		}
		var body map[string]any
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body["jql"] != DefaultStaleQuery {
			t.Fatalf("unexpected jql %v", body["jql"])
		}
		return respond(http.StatusOK, `{"issues":[{"key":"CI-1","fields":{
			"summary":"Failed agent CI test TestA",
			"status":{"name":"To Do"},
			"comment":{"comments":[{"author":{"displayName":"CI Robot"},"body":"Test name: TestA\n"}]}}}]}`), nil
	})}

	issues, err := tracker.SearchIssues(context.Background(), DefaultStaleQuery)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []models.Issue{{
		Key:      "CI-1",
		Status:   "To Do",
		Summary:  "Failed agent CI test TestA",
		Comments: []models.Comment{{Author: "CI Robot", Body: "Test name: TestA\n"}},
	}}
	if diff := cmp.Diff(want, issues); diff != "" {
		t.Fatalf("issues mismatch (-want +got):\n%s", diff)
	}
}

func TestHTTPTrackerCloseIssue(t *testing.T) {
	var paths []string
	tracker := NewHTTPTracker("https://jira.example.com/", "bot", "secret", "31", time.Second)
	tracker.httpClient = &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		paths = append(paths, req.URL.Path)
		data, _ := io.ReadAll(req.Body)
		if strings.HasSuffix(req.URL.Path, "/transitions") && !strings.Contains(string(data), `"id":"31"`) {
			t.Fatalf("unexpected transition payload %s", data)
		}
		return respond(http.StatusNoContent, ""), nil
	})}

	if err := tracker.CloseIssue(context.Background(), "CI-7", "closing"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"/rest/api/2/issue/CI-7/comment", "/rest/api/2/issue/CI-7/transitions"}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}
}

func TestHTTPTrackerErrorStatus(t *testing.T) {
	tracker := NewHTTPTracker("https://jira.example.com", "", "", "31", time.Second)
	tracker.httpClient = &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return respond(http.StatusForbidden, `{"errorMessages":["nope"]}`), nil
	})}

	_, err := tracker.SearchIssues(context.Background(), "q")
	if err == nil || !strings.Contains(err.Error(), "nope") {
		t.Fatalf("expected tracker error with body, got %v", err)
	}
}

func TestHTTPTrackerRequiresTransition(t *testing.T) {
	tracker := NewHTTPTracker("https://jira.example.com", "", "", "", time.Second)
	if err := tracker.CloseIssue(context.Background(), "CI-1", ""); err == nil {
		t.Fatalf("expected missing transition error")
	}
}
