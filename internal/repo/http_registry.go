package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/miradorstack/flake-triage/internal/cache"
	"github.com/miradorstack/flake-triage/internal/models"
)

// HTTPRegistry fetches known flakes from a remote flaky-test registry.
type HTTPRegistry struct {
	baseURL    string
	flakesPath string
	httpClient *http.Client
	cache      cache.Provider
	cacheTTL   time.Duration
	logger     *slog.Logger
}

// NewHTTPRegistry constructs a client targeting the configured registry. cacheProvider may
// be nil to disable caching.
func NewHTTPRegistry(baseURL, flakesPath string, timeout time.Duration, cacheProvider cache.Provider, cacheTTL time.Duration, logger *slog.Logger) *HTTPRegistry {
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPRegistry{
		baseURL:    strings.TrimRight(baseURL, "/"),
		flakesPath: flakesPath,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cacheProvider,
		cacheTTL:   cacheTTL,
		logger:     logger,
	}
}

type registryFlake struct {
	Package string `json:"package"`
	Test    string `json:"test"`
}

// KnownFlakes returns the registry snapshot for project, served from cache when fresh.
func (r *HTTPRegistry) KnownFlakes(ctx context.Context, project string) (models.KnownFlakes, error) {
	if r == nil {
		return nil, fmt.Errorf("flaky registry client not initialised")
	}
	if r.baseURL == "" {
		return nil, fmt.Errorf("flaky registry base URL not configured")
	}

	key := cache.Key("flakes", project)
	var cached []registryFlake
	switch err := cache.GetJSON(ctx, r.cache, key, &cached); {
	case err == nil:
		return toKnownFlakes(cached), nil
	case !errors.Is(err, cache.ErrCacheMiss):
		r.logger.Warn("registry cache read failed", slog.String("key", key), slog.Any("error", err))
	}

	var response struct {
		Flakes []registryFlake `json:"flakes"`
	}
	if err := r.postJSON(ctx, r.resolvePath(r.flakesPath), map[string]any{"project": project}, &response); err != nil {
		return nil, fmt.Errorf("flaky registry request failed: %w", err)
	}

	if err := cache.SetJSON(ctx, r.cache, key, response.Flakes, r.cacheTTL); err != nil {
		r.logger.Warn("registry cache write failed", slog.Any("error", err))
	}
	return toKnownFlakes(response.Flakes), nil
}

func toKnownFlakes(flakes []registryFlake) models.KnownFlakes {
	known := make(models.KnownFlakes)
	for _, f := range flakes {
		if f.Test == "" {
			continue
		}
		known.Add(f.Package, f.Test)
	}
	return known
}

func (r *HTTPRegistry) resolvePath(p string) string {
	if r.baseURL == "" {
		return ""
	}
	cleaned := "/" + strings.TrimLeft(p, "/")
	u, err := url.Parse(r.baseURL)
	if err != nil {
		return r.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}

func (r *HTTPRegistry) postJSON(ctx context.Context, endpoint string, payload any, out any) error {
	if endpoint == "" {
		return fmt.Errorf("empty endpoint")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("flaky registry returned %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
