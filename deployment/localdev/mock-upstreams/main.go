package main

import (
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/miradorstack/flake-triage/internal/models"
	"github.com/miradorstack/flake-triage/internal/repo"
	"github.com/miradorstack/flake-triage/internal/utils"
)

type registryFlake struct {
	Package string `json:"package"`
	Test    string `json:"test"`
}

type mockIssue struct {
	Key      string
	Summary  string
	Status   string
	Comments []models.Comment
}

// upstreams fakes the flaky-test registry, the issue tracker and the chat API.
type upstreams struct {
	logger *slog.Logger
	known  models.KnownFlakes

	mu       sync.Mutex
	issues   map[string]*mockIssue
	messages int
}

func main() {
	addr := flag.String("addr", ":8080", "Listen address")
	flakesFile := flag.String("flakes", "", "Optional YAML flakes file served by the registry")
	flag.Parse()

	logger := utils.NewLogger("info", false).With(slog.String("component", "mock-upstreams"))

	known := models.KnownFlakes{}
	known.Add("github.com/example/agent/test/e2e/containers", "TestEKSSuite/TestCPU")
	known.Add("github.com/example/agent/test/e2e/containers", "TestKindSuite/TestMemory/TestMemoryUtilization")
	if *flakesFile != "" {
		data, err := os.ReadFile(*flakesFile)
		if err != nil {
			logger.Error("read flakes file", slog.Any("error", err))
			os.Exit(1)
		}
		if known, err = repo.ParseFlakesFile(data); err != nil {
			logger.Error("parse flakes file", slog.Any("error", err))
			os.Exit(1)
		}
	}

	u := &upstreams{logger: logger, known: known, issues: seedIssues()}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("POST /api/v1/flakes", u.handleFlakes)
	mux.HandleFunc("POST /rest/api/2/search", u.handleSearch)
	mux.HandleFunc("POST /rest/api/2/issue/{key}/comment", u.handleComment)
	mux.HandleFunc("POST /rest/api/2/issue/{key}/transitions", u.handleTransition)
	mux.HandleFunc("POST /api/chat.postMessage", u.handleChat)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           logRequests(logger, mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("listening", slog.String("address", *addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", slog.Any("error", err))
		os.Exit(1)
	}
}

func seedIssues() map[string]*mockIssue {
	robot := "CI Robot"
	return map[string]*mockIssue{
		"CI-101": {
			Key:     "CI-101",
			Summary: "Failed agent CI test TestEKSSuite/TestCPU",
			Status:  "To Do",
			Comments: []models.Comment{
				{Author: robot, Body: "Test name: TestEKSSuite/TestCPU\nPackage: containers\n"},
			},
		},
		"CI-102": {
			Key:     "CI-102",
			Summary: "Failed agent CI test TestKindSuite",
			Status:  "To Do",
			Comments: []models.Comment{
				{Author: robot, Body: "Test name: TestKindSuite\n"},
				{Author: "On-call engineer", Body: "Investigating, please keep open."},
			},
		},
	}
}

func (u *upstreams) handleFlakes(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Project string `json:"project"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	flakes := make([]registryFlake, 0, u.known.Count())
	for pkg, tests := range u.known {
		for _, test := range tests.Sorted() {
			flakes = append(flakes, registryFlake{Package: pkg, Test: test})
		}
	}
	sort.Slice(flakes, func(i, j int) bool {
		if flakes[i].Package != flakes[j].Package {
			return flakes[i].Package < flakes[j].Package
		}
		return flakes[i].Test < flakes[j].Test
	})
	writeJSON(w, map[string]any{"flakes": flakes})
}

func (u *upstreams) handleSearch(w http.ResponseWriter, _ *http.Request) {
	u.mu.Lock()
	defer u.mu.Unlock()

	keys := make([]string, 0, len(u.issues))
	for key, issue := range u.issues {
		if issue.Status == "To Do" {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	issues := make([]map[string]any, 0, len(keys))
	for _, key := range keys {
		issue := u.issues[key]
		comments := make([]map[string]any, 0, len(issue.Comments))
		for _, c := range issue.Comments {
			comments = append(comments, map[string]any{
				"author": map[string]string{"displayName": c.Author},
				"body":   c.Body,
			})
		}
		issues = append(issues, map[string]any{
			"key": issue.Key,
			"fields": map[string]any{
				"summary": issue.Summary,
				"status":  map[string]string{"name": issue.Status},
				"comment": map[string]any{"comments": comments},
			},
		})
	}
	writeJSON(w, map[string]any{"issues": issues})
}

func (u *upstreams) handleComment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	issue, ok := u.issues[r.PathValue("key")]
	if !ok {
		http.NotFound(w, r)
		return
	}
	issue.Comments = append(issue.Comments, models.Comment{Author: "CI Robot", Body: req.Body})
	w.WriteHeader(http.StatusCreated)
}

func (u *upstreams) handleTransition(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	defer u.mu.Unlock()
	issue, ok := u.issues[r.PathValue("key")]
	if !ok {
		http.NotFound(w, r)
		return
	}
	issue.Status = "Done"
	w.WriteHeader(http.StatusNoContent)
}

func (u *upstreams) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Channel string `json:"channel"`
		Text    string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Channel == "" {
		writeJSON(w, map[string]any{"ok": false, "error": "channel_not_found"})
		return
	}
	u.mu.Lock()
	u.messages++
	u.mu.Unlock()
	u.logger.Info("chat message", slog.String("channel", req.Channel), slog.String("text", req.Text))
	writeJSON(w, map[string]any{"ok": true})
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Default().Warn("encode error", slog.Any("error", err))
	}
}

func logRequests(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rw.status),
			slog.Duration("duration", time.Since(start)))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
