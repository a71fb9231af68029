package tickets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/miradorstack/flake-triage/internal/models"
)

const maxSearchResults = 500

// HTTPTracker talks to a Jira-compatible REST API.
type HTTPTracker struct {
	baseURL      string
	user         string
	token        string
	transitionID string
	httpClient   *http.Client
}

// NewHTTPTracker constructs a tracker client. transitionID names the workflow transition
// that moves an issue to done.
func NewHTTPTracker(baseURL, user, token, transitionID string, timeout time.Duration) *HTTPTracker {
	return &HTTPTracker{
		baseURL:      strings.TrimRight(baseURL, "/"),
		user:         user,
		token:        token,
		transitionID: transitionID,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

type searchResponse struct {
	Issues []struct {
		Key    string `json:"key"`
		Fields struct {
			Summary string `json:"summary"`
			Status  struct {
				Name string `json:"name"`
			} `json:"status"`
			Comment struct {
				Comments []struct {
					Author struct {
						DisplayName string `json:"displayName"`
					} `json:"author"`
					Body string `json:"body"`
				} `json:"comments"`
			} `json:"comment"`
		} `json:"fields"`
	} `json:"issues"`
}

// SearchIssues runs a JQL query and returns matching issues with their comments.
func (t *HTTPTracker) SearchIssues(ctx context.Context, query string) ([]models.Issue, error) {
	payload := map[string]any{
		"jql":        query,
		"maxResults": maxSearchResults,
		"fields":     []string{"summary", "status", "comment"},
	}
	var resp searchResponse
	if err := t.postJSON(ctx, "/rest/api/2/search", payload, &resp); err != nil {
		return nil, err
	}

	issues := make([]models.Issue, 0, len(resp.Issues))
	for _, raw := range resp.Issues {
		issue := models.Issue{
			Key:     raw.Key,
			Status:  raw.Fields.Status.Name,
			Summary: raw.Fields.Summary,
		}
		for _, c := range raw.Fields.Comment.Comments {
			issue.Comments = append(issue.Comments, models.Comment{Author: c.Author.DisplayName, Body: c.Body})
		}
		issues = append(issues, issue)
	}
	return issues, nil
}

// CloseIssue comments on the issue and transitions it to done.
func (t *HTTPTracker) CloseIssue(ctx context.Context, key, comment string) error {
	if key == "" {
		return fmt.Errorf("issue key is required")
	}
	if t.transitionID == "" {
		return fmt.Errorf("close transition not configured")
	}
	issuePath := "/rest/api/2/issue/" + url.PathEscape(key)
	if comment != "" {
		if err := t.postJSON(ctx, issuePath+"/comment", map[string]any{"body": comment}, nil); err != nil {
			return fmt.Errorf("comment on %s: %w", key, err)
		}
	}
	payload := map[string]any{"transition": map[string]string{"id": t.transitionID}}
	if err := t.postJSON(ctx, issuePath+"/transitions", payload, nil); err != nil {
		return fmt.Errorf("transition %s: %w", key, err)
	}
	return nil
}

func (t *HTTPTracker) resolvePath(p string) string {
	u, err := url.Parse(t.baseURL)
	if err != nil {
		return t.baseURL + p
	}
	u.Path = path.Join(u.Path, p)
	return u.String()
}

func (t *HTTPTracker) postJSON(ctx context.Context, p string, payload any, out any) error {
	if t.baseURL == "" {
		return fmt.Errorf("issue tracker base URL not configured")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.resolvePath(p), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if t.user != "" || t.token != "" {
		req.SetBasicAuth(t.user, t.token)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("issue tracker returned %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
