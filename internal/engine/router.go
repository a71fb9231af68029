package engine

import (
	"errors"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/flake-triage/internal/models"
)

// Router assigns failing packages to owning teams and their chat channels.
type Router struct {
	rules          []Rule
	excludedTeams  map[string]struct{}
	defaultChannel string
	logger         *slog.Logger
}

// Rule represents a single ownership rule.
type Rule struct {
	ID      string    `yaml:"id"`
	Match   RuleMatch `yaml:"match"`
	Team    string    `yaml:"team"`
	Channel string    `yaml:"channel"`
}

// RuleMatch defines optional attributes for rule matching.
type RuleMatch struct {
	PackagePrefix string `yaml:"package_prefix"`
	TestPrefix    string `yaml:"test_prefix"`
}

// RuleConfigFile is the YAML root structure.
type RuleConfigFile struct {
	Rules []Rule `yaml:"rules"`
}

// NewRouter loads rules from the provided path. A missing or empty path yields a router
// that sends everything to defaultChannel.
func NewRouter(path, defaultChannel string, excludedTeams []string, logger *slog.Logger) (*Router, error) {
	if logger == nil {
		logger = slog.Default()
	}
	router := &Router{
		excludedTeams:  make(map[string]struct{}, len(excludedTeams)),
		defaultChannel: defaultChannel,
		logger:         logger,
	}
	for _, team := range excludedTeams {
		router.excludedTeams[strings.ToLower(team)] = struct{}{}
	}
	if path == "" {
		return router, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("routing rules not found, using default channel", slog.String("path", path))
			return router, nil
		}
		return nil, err
	}
	var cfg RuleConfigFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	router.rules = cfg.Rules
	return router, nil
}

// NewRouterFromRules builds a router from in-memory rules.
func NewRouterFromRules(rules []Rule, defaultChannel string, excludedTeams []string) *Router {
	router, _ := NewRouter("", defaultChannel, excludedTeams, nil)
	router.rules = rules
	return router
}

// Route returns the owner of pkg's failures. tests are the actionable leaves; a rule with a
// test prefix matches when any of them starts with it. The first matching rule wins.
func (r *Router) Route(pkg string, tests []string) models.Route {
	if r == nil {
		return models.Route{}
	}
	route := models.Route{Channel: r.defaultChannel}
	for _, rule := range r.rules {
		if !rule.matches(pkg, tests) {
			continue
		}
		route = models.Route{RuleID: rule.ID, Team: rule.Team, Channel: rule.Channel}
		if route.Channel == "" {
			route.Channel = r.defaultChannel
		}
		break
	}
	if _, muted := r.excludedTeams[strings.ToLower(route.Team)]; muted && route.Team != "" {
		route.Muted = true
	}
	return route
}

func (rule Rule) matches(pkg string, tests []string) bool {
	if rule.Match.PackagePrefix != "" && !strings.HasPrefix(pkg, rule.Match.PackagePrefix) {
		return false
	}
	if rule.Match.TestPrefix == "" {
		return true
	}
	for _, test := range tests {
		if strings.HasPrefix(test, rule.Match.TestPrefix) {
			return true
		}
	}
	return false
}
