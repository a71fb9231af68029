package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/miradorstack/flake-triage/internal/cache"
	"github.com/miradorstack/flake-triage/internal/config"
	"github.com/miradorstack/flake-triage/internal/engine"
	"github.com/miradorstack/flake-triage/internal/notify"
	"github.com/miradorstack/flake-triage/internal/patterns"
	"github.com/miradorstack/flake-triage/internal/repo"
	"github.com/miradorstack/flake-triage/internal/tickets"
	"github.com/miradorstack/flake-triage/internal/utils"
)

// app holds the collaborators shared by every command.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	cache    cache.Provider
	durable  bool
	registry repo.Registry
	reports  *repo.ReportStore
	history  *patterns.Tracker
	router   *engine.Router
	poster   notify.Poster
	closer   *tickets.Closer
	pipeline *engine.Pipeline
}

func loadApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if project != "" {
		cfg.Project = project
	}
	logger := utils.NewLoggerTo(os.Stderr, cfg.Logging.Level, cfg.Logging.JSON)
	return newApp(cfg, logger)
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	a.cache = cache.NewMemoryProvider()
	if cfg.Cache.Enabled && cfg.Cache.Addr != "" {
		provider, err := cache.NewValkeyProvider(cache.ValkeyConfig{
			Addr:         cfg.Cache.Addr,
			Username:     cfg.Cache.Username,
			Password:     cfg.Cache.Password,
			DB:           cfg.Cache.DB,
			DialTimeout:  cfg.Cache.DialTimeout,
			ReadTimeout:  cfg.Cache.ReadTimeout,
			WriteTimeout: cfg.Cache.WriteTimeout,
			MaxRetries:   cfg.Cache.MaxRetries,
			TLS:          cfg.Cache.TLS,
		})
		if err != nil {
			logger.Warn("valkey cache unavailable, keeping state in memory", slog.Any("error", err))
		} else {
			a.cache = provider
			a.durable = true
		}
	}

	if cfg.Clients.Registry.BaseURL != "" {
		a.registry = repo.NewHTTPRegistry(
			cfg.Clients.Registry.BaseURL,
			cfg.Clients.Registry.FlakesPath,
			cfg.Clients.Registry.Timeout,
			a.cache,
			cfg.Cache.RegistryTTL,
			logger,
		)
	} else {
		a.registry = repo.NewFileRegistry(cfg.Clients.Registry.File)
	}

	a.reports = repo.NewReportStore(a.cache, cfg.Cache.ReportTTL)
	a.history = patterns.NewTracker(logger, patterns.NewCacheStore(a.cache), patterns.Thresholds{
		Consecutive: cfg.History.ConsecutiveThreshold,
		WindowSize:  cfg.History.WindowSize,
		FailureRate: cfg.History.FailureRate,
	})

	router, err := engine.NewRouter(cfg.Routing.Path, cfg.Routing.DefaultChannel, cfg.Routing.ExcludedTeams, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load routing rules: %w", err)
	}
	a.router = router

	if cfg.Clients.Chat.DryRun || cfg.Clients.Chat.BaseURL == "" {
		a.poster = notify.DryRun{Logger: logger}
	} else {
		a.poster = notify.NewChatClient(cfg.Clients.Chat.BaseURL, cfg.Clients.Chat.Token, cfg.Clients.Chat.Timeout)
	}

	if cfg.Clients.Tracker.BaseURL != "" {
		tracker := tickets.NewHTTPTracker(
			cfg.Clients.Tracker.BaseURL,
			cfg.Clients.Tracker.User,
			cfg.Clients.Tracker.Token,
			cfg.Clients.Tracker.TransitionID,
			cfg.Clients.Tracker.Timeout,
		)
		a.closer = tickets.NewCloser(logger, tracker, cfg.Clients.Tracker.StaleQuery)
	}

	a.pipeline = engine.NewPipeline(logger, a.registry, a.history, a.reports, a.router, a.poster)
	return a, nil
}

// Close releases the cache connection pool.
func (a *app) Close() {
	if a.cache != nil {
		_ = a.cache.Close()
	}
}
