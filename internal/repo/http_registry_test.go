package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// stubTransport answers registry requests without a network round trip.
type stubTransport func(*http.Request) (*http.Response, error)

func (f stubTransport) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func stubClient(fn func(*http.Request) (*http.Response, error)) *http.Client {
	return &http.Client{Transport: stubTransport(fn)}
}

func jsonResponse(t *testing.T, status int, payload any) *http.Response {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(bytes.NewReader(data)),
		Header:     make(http.Header),
	}
}

func TestHTTPRegistryCachesSnapshot(t *testing.T) {
	hits := 0
	cacheStub := newRecordingCache()
	registry := NewHTTPRegistry("https://registry.example.com/base", "/api/v1/flakes", time.Second, cacheStub, time.Minute, nil)
	registry.httpClient = stubClient(func(req *http.Request) (*http.Response, error) {
		hits++
		if req.URL.Path != "/base/api/v1/flakes" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body["project"] != "agent" {
			t.Fatalf("unexpected project: %v", body)
		}
		return jsonResponse(t, http.StatusOK, map[string]any{
			"flakes": []map[string]string{
				{"package": "pkg/containers", "test": "TestEKSSuite/TestCPU"},
				{"package": "pkg/containers", "test": "TestKindSuite"},
				{"package": "pkg/agent", "test": ""},
			},
		}), nil
	})

	ctx := context.Background()
	known, err := registry.KnownFlakes(ctx, "agent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"TestEKSSuite/TestCPU", "TestKindSuite"}, known.For("pkg/containers").Sorted()); diff != "" {
		t.Fatalf("known flakes mismatch (-want +got):\n%s", diff)
	}
	if known.For("pkg/agent").Len() != 0 {
		t.Fatalf("expected empty names to be dropped")
	}

	if _, err := registry.KnownFlakes(ctx, "agent"); err != nil {
		t.Fatalf("unexpected cached error: %v", err)
	}
	if hits != 1 {
		t.Fatalf("cache miss triggered network call; hits=%d", hits)
	}
	if ttl := cacheStub.ttl("flake-triage:flakes:agent"); ttl != time.Minute {
		t.Fatalf("unexpected cache ttl %v", ttl)
	}
}

func TestHTTPRegistryErrorStatus(t *testing.T) {
	registry := NewHTTPRegistry("https://registry.example.com", "/flakes", time.Second, nil, 0, nil)
	registry.httpClient = stubClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(t, http.StatusBadGateway, map[string]any{}), nil
	})

	if _, err := registry.KnownFlakes(context.Background(), "agent"); err == nil {
		t.Fatalf("expected error for non-200 response")
	}
}

func TestHTTPRegistryRequiresBaseURL(t *testing.T) {
	registry := NewHTTPRegistry("", "/flakes", time.Second, nil, 0, nil)
	if _, err := registry.KnownFlakes(context.Background(), "agent"); err == nil {
		t.Fatalf("expected error without base URL")
	}
}
