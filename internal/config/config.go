package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the triage service and CLI commands.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Clients ClientsConfig `yaml:"clients"`
	Logging LoggingConfig `yaml:"logging"`
	Routing RoutingConfig `yaml:"routing"`
	Cache   CacheConfig   `yaml:"cache"`
	History HistoryConfig `yaml:"history"`
	Project string        `yaml:"project"`
}

// ServerConfig controls gRPC listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// ClientsConfig groups integrations with external systems.
type ClientsConfig struct {
	Registry RegistryClientConfig `yaml:"registry"`
	Tracker  TrackerClientConfig  `yaml:"tracker"`
	Chat     ChatClientConfig     `yaml:"chat"`
}

// RegistryClientConfig selects where known flaky tests come from. BaseURL wins over File.
type RegistryClientConfig struct {
	BaseURL    string        `yaml:"baseURL"`
	FlakesPath string        `yaml:"flakesPath"`
	File       string        `yaml:"file"`
	Timeout    time.Duration `yaml:"timeout"`
}

// TrackerClientConfig configures access to the issue tracker.
type TrackerClientConfig struct {
	BaseURL      string        `yaml:"baseURL"`
	User         string        `yaml:"user"`
	Token        string        `yaml:"token"`
	TransitionID string        `yaml:"transitionID"`
	StaleQuery   string        `yaml:"staleQuery"`
	Timeout      time.Duration `yaml:"timeout"`
}

// ChatClientConfig configures chat notifications.
type ChatClientConfig struct {
	BaseURL string        `yaml:"baseURL"`
	Token   string        `yaml:"token"`
	DryRun  bool          `yaml:"dryRun"`
	Timeout time.Duration `yaml:"timeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// RoutingConfig controls ownership rules for failure notifications.
type RoutingConfig struct {
	Path           string   `yaml:"path"`
	DefaultChannel string   `yaml:"defaultChannel"`
	ExcludedTeams  []string `yaml:"excludedTeams"`
}

// CacheConfig controls the Valkey store holding registry snapshots, reports and history.
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
	RegistryTTL  time.Duration `yaml:"registryTTL"`
	ReportTTL    time.Duration `yaml:"reportTTL"`
}

// HistoryConfig sets the thresholds of repeated failure alerts.
type HistoryConfig struct {
	ConsecutiveThreshold int     `yaml:"consecutiveThreshold"`
	WindowSize           int     `yaml:"windowSize"`
	FailureRate          float64 `yaml:"failureRate"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("FLAKE_TRIAGE_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":50051",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Clients: ClientsConfig{
			Registry: RegistryClientConfig{
				FlakesPath: "/api/v1/flakes",
				File:       "flakes.yaml",
				Timeout:    5 * time.Second,
			},
			Tracker: TrackerClientConfig{Timeout: 10 * time.Second},
			Chat:    ChatClientConfig{Timeout: 5 * time.Second},
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Routing: RoutingConfig{Path: "configs/routing/default.yaml"},
		Cache: CacheConfig{
			Enabled:      false,
			RegistryTTL:  5 * time.Minute,
			ReportTTL:    7 * 24 * time.Hour,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
		},
		History: HistoryConfig{
			ConsecutiveThreshold: 3,
			WindowSize:           10,
			FailureRate:          0.5,
		},
		Project: "default",
	}
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Server.Address, "FLAKE_TRIAGE_SERVER_ADDRESS")
	setString(&cfg.Server.MetricsAddress, "FLAKE_TRIAGE_METRICS_ADDRESS")
	setString(&cfg.Project, "FLAKE_TRIAGE_PROJECT")

	setString(&cfg.Clients.Registry.BaseURL, "FLAKE_TRIAGE_REGISTRY_URL")
	setString(&cfg.Clients.Registry.FlakesPath, "FLAKE_TRIAGE_REGISTRY_FLAKES_PATH")
	setString(&cfg.Clients.Registry.File, "FLAKE_TRIAGE_FLAKES_FILE")
	setString(&cfg.Clients.Tracker.BaseURL, "FLAKE_TRIAGE_TRACKER_URL")
	setString(&cfg.Clients.Tracker.User, "FLAKE_TRIAGE_TRACKER_USER")
	setString(&cfg.Clients.Tracker.Token, "FLAKE_TRIAGE_TRACKER_TOKEN")
	setString(&cfg.Clients.Tracker.TransitionID, "FLAKE_TRIAGE_TRACKER_TRANSITION_ID")
	setString(&cfg.Clients.Chat.BaseURL, "FLAKE_TRIAGE_CHAT_URL")
	setString(&cfg.Clients.Chat.Token, "FLAKE_TRIAGE_CHAT_TOKEN")
	setBool(&cfg.Clients.Chat.DryRun, "FLAKE_TRIAGE_CHAT_DRY_RUN")

	setString(&cfg.Logging.Level, "FLAKE_TRIAGE_LOG_LEVEL")
	if v := os.Getenv("FLAKE_TRIAGE_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}

	setString(&cfg.Routing.Path, "FLAKE_TRIAGE_ROUTING_PATH")
	setString(&cfg.Routing.DefaultChannel, "FLAKE_TRIAGE_DEFAULT_CHANNEL")
	if v := os.Getenv("FLAKE_TRIAGE_EXCLUDED_TEAMS"); v != "" {
		cfg.Routing.ExcludedTeams = splitList(v)
	}

	setString(&cfg.Cache.Addr, "FLAKE_TRIAGE_CACHE_ADDR")
	setBool(&cfg.Cache.Enabled, "FLAKE_TRIAGE_CACHE_ENABLED")
	setString(&cfg.Cache.Username, "FLAKE_TRIAGE_CACHE_USERNAME")
	setString(&cfg.Cache.Password, "FLAKE_TRIAGE_CACHE_PASSWORD")
	setInt(&cfg.Cache.DB, "FLAKE_TRIAGE_CACHE_DB")
	setBool(&cfg.Cache.TLS, "FLAKE_TRIAGE_CACHE_TLS")
	setDuration(&cfg.Cache.DialTimeout, "FLAKE_TRIAGE_CACHE_DIAL_TIMEOUT")
	setDuration(&cfg.Cache.ReadTimeout, "FLAKE_TRIAGE_CACHE_READ_TIMEOUT")
	setDuration(&cfg.Cache.WriteTimeout, "FLAKE_TRIAGE_CACHE_WRITE_TIMEOUT")
	setInt(&cfg.Cache.MaxRetries, "FLAKE_TRIAGE_CACHE_MAX_RETRIES")
	setDuration(&cfg.Cache.RegistryTTL, "FLAKE_TRIAGE_CACHE_REGISTRY_TTL")
	setDuration(&cfg.Cache.ReportTTL, "FLAKE_TRIAGE_CACHE_REPORT_TTL")

	setInt(&cfg.History.ConsecutiveThreshold, "FLAKE_TRIAGE_HISTORY_CONSECUTIVE")
	setInt(&cfg.History.WindowSize, "FLAKE_TRIAGE_HISTORY_WINDOW")
	if v := os.Getenv("FLAKE_TRIAGE_HISTORY_FAILURE_RATE"); v != "" {
		if rate, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.History.FailureRate = rate
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = strings.EqualFold(v, "true") || v == "1"
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
