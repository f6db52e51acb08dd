// Package registry loads the per-host client profile: which tests this
// agent must never run and which tests need longer budgets. Underpowered
// fleet machines use it to stay away from sims known to wedge them.
package registry

import (
	"fmt"
	"os"
	"path"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/phetsims/ct-runner/types"
)

// Registry answers skip and timeout questions for test identifiers.
type Registry struct {
	config  Config
	profile Profile
	mu      sync.RWMutex
}

// Config contains registry configuration
type Config struct {
	Log logrus.FieldLogger
	// ProfileFile is the YAML profile path. Empty means an empty profile:
	// nothing is skipped and no timeouts are overridden.
	ProfileFile string
}

// Profile is the on-disk YAML shape.
type Profile struct {
	Skip     []SkipRule    `yaml:"skip"`
	Timeouts []TimeoutRule `yaml:"timeouts"`
}

// SkipRule marks tests this host must not run. Pattern is a glob matched
// against the dot-joined test identifier (e.g. "natural-selection.*").
type SkipRule struct {
	Pattern string `yaml:"pattern"`
	Reason  string `yaml:"reason,omitempty"`
}

// TimeoutRule overrides the runner's timeout budgets for matching tests.
// Zero values leave the corresponding default in place.
type TimeoutRule struct {
	Pattern    string        `yaml:"pattern"`
	Navigation time.Duration `yaml:"navigation,omitempty"`
	Bail       time.Duration `yaml:"bail,omitempty"`
}

// NewRegistry creates a registry, loading and validating the profile file
// when one is configured.
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}

	r := &Registry{config: cfg}
	if cfg.ProfileFile != "" {
		if err := r.loadProfile(cfg.ProfileFile); err != nil {
			return nil, fmt.Errorf("failed to load profile: %w", err)
		}
	}

	cfg.Log.WithFields(logrus.Fields{
		"skipRules":    len(r.profile.Skip),
		"timeoutRules": len(r.profile.Timeouts),
	}).Debug("registry loaded")

	return r, nil
}

func (r *Registry) loadProfile(profilePath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(profilePath)
	if err != nil {
		return fmt.Errorf("reading profile file: %w", err)
	}

	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return fmt.Errorf("parsing profile file: %w", err)
	}

	if err := validateProfile(profile); err != nil {
		return err
	}
	r.profile = profile
	return nil
}

// validateProfile rejects malformed glob patterns at load time rather than
// silently never matching.
func validateProfile(profile Profile) error {
	for _, rule := range profile.Skip {
		if err := checkPattern(rule.Pattern); err != nil {
			return fmt.Errorf("skip rule %q: %w", rule.Pattern, err)
		}
	}
	for _, rule := range profile.Timeouts {
		if err := checkPattern(rule.Pattern); err != nil {
			return fmt.Errorf("timeout rule %q: %w", rule.Pattern, err)
		}
		if rule.Navigation < 0 || rule.Bail < 0 {
			return fmt.Errorf("timeout rule %q: negative duration", rule.Pattern)
		}
	}
	return nil
}

func checkPattern(pattern string) error {
	if pattern == "" {
		return fmt.Errorf("pattern is required")
	}
	if _, err := path.Match(pattern, "probe"); err != nil {
		return fmt.Errorf("invalid pattern: %w", err)
	}
	return nil
}

// ShouldSkip reports whether info matches a skip rule, and why.
func (r *Registry) ShouldSkip(info types.TestInfo) (bool, string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id := info.ID()
	for _, rule := range r.profile.Skip {
		if matched, _ := path.Match(rule.Pattern, id); matched {
			reason := rule.Reason
			if reason == "" {
				reason = fmt.Sprintf("matches skip pattern %q", rule.Pattern)
			}
			return true, reason
		}
	}
	return false, ""
}

// TimeoutsFor returns the navigation and bail overrides for info. Zero
// values mean no override; the first matching rule wins per budget.
func (r *Registry) TimeoutsFor(info types.TestInfo) (navigation, bail time.Duration) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id := info.ID()
	for _, rule := range r.profile.Timeouts {
		matched, _ := path.Match(rule.Pattern, id)
		if !matched {
			continue
		}
		if navigation == 0 && rule.Navigation > 0 {
			navigation = rule.Navigation
		}
		if bail == 0 && rule.Bail > 0 {
			bail = rule.Bail
		}
	}
	return navigation, bail
}
