package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FLAKE_TRIAGE_CONFIG", "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != ":50051" || cfg.History.WindowSize != 10 || cfg.History.FailureRate != 0.5 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Clients.Registry.File != "flakes.yaml" {
		t.Fatalf("unexpected flakes file %q", cfg.Clients.Registry.File)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(`server:
  address: ":6000"
clients:
  registry:
    baseURL: "http://registry:8080"
    timeout: 3s
  tracker:
    transitionID: "31"
routing:
  defaultChannel: "#agent-ci"
  excludedTeams: ["docs"]
cache:
  enabled: true
  addr: "valkey:6379"
  reportTTL: 1h
history:
  consecutiveThreshold: 5
`), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("FLAKE_TRIAGE_SERVER_ADDRESS", ":7000")
	t.Setenv("FLAKE_TRIAGE_EXCLUDED_TEAMS", "docs, website ,")
	t.Setenv("FLAKE_TRIAGE_CACHE_DB", "3")
	t.Setenv("FLAKE_TRIAGE_LOG_FORMAT", "json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Address != ":7000" {
		t.Fatalf("expected env override, got %q", cfg.Server.Address)
	}
	if cfg.Server.MetricsAddress != ":2112" {
		t.Fatalf("expected default metrics address, got %q", cfg.Server.MetricsAddress)
	}
	if cfg.Clients.Registry.BaseURL != "http://registry:8080" || cfg.Clients.Registry.Timeout != 3*time.Second {
		t.Fatalf("unexpected registry config %+v", cfg.Clients.Registry)
	}
	if cfg.Clients.Registry.FlakesPath != "/api/v1/flakes" {
		t.Fatalf("expected default flakes path, got %q", cfg.Clients.Registry.FlakesPath)
	}
	if diff := cmp.Diff([]string{"docs", "website"}, cfg.Routing.ExcludedTeams); diff != "" {
		t.Fatalf("excluded teams mismatch (-want +got):\n%s", diff)
	}
	if !cfg.Cache.Enabled || cfg.Cache.DB != 3 || cfg.Cache.ReportTTL != time.Hour {
		t.Fatalf("unexpected cache config %+v", cfg.Cache)
	}
	if cfg.History.ConsecutiveThreshold != 5 || cfg.History.WindowSize != 10 {
		t.Fatalf("unexpected history config %+v", cfg.History)
	}
	if !cfg.Logging.JSON {
		t.Fatalf("expected json logging")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
