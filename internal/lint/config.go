package lint

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// GlobalConfig is the [linter] table of config.toml.
type GlobalConfig struct {
	Parallel   bool  `toml:"parallel"`
	FailFast   bool  `toml:"fail_fast"`
	Timeout    int64 `toml:"timeout"` // seconds
	MaxWorkers int   `toml:"max_workers"`
}

// AutofixFileConfig is the [autofix] table of config.toml.
type AutofixFileConfig struct {
	Enabled       bool `toml:"enabled"`
	MaxIterations int  `toml:"max_iterations"`
	Interactive   bool `toml:"interactive"`
}

// CategoryConfig is one category's compiled policy.
type CategoryConfig struct {
	Enabled          bool
	PriorityOverride *int
	FailOn           *Severity
}

// Config is the parsed config.toml plus defaults.
type Config struct {
	Linter     GlobalConfig
	Autofix    AutofixFileConfig
	Categories map[Category]CategoryConfig
}

// DefaultConfig returns the policy used when config.toml is absent.
func DefaultConfig() *Config {
	return &Config{
		Linter: GlobalConfig{
			Parallel: true,
			FailFast: false,
			Timeout:  30,
		},
		Autofix: AutofixFileConfig{
			Enabled:       true,
			MaxIterations: 10,
			Interactive:   false,
		},
		Categories: map[Category]CategoryConfig{},
	}
}

// configFile mirrors config.toml. Category values are either a bare
// bool or a table, so they decode as `any` and are normalized after.
type configFile struct {
	Linter struct {
		Parallel   *bool  `toml:"parallel"`
		FailFast   *bool  `toml:"fail_fast"`
		Timeout    *int64 `toml:"timeout"`
		MaxWorkers *int   `toml:"max_workers"`
	} `toml:"linter"`
	Autofix struct {
		Enabled       *bool `toml:"enabled"`
		MaxIterations *int  `toml:"max_iterations"`
		Interactive   *bool `toml:"interactive"`
	} `toml:"autofix"`
	Categories map[string]any `toml:"categories"`
}

// LoadConfig parses config.toml at path. A missing file yields the
// defaults; a malformed one is a config error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var raw configFile
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if raw.Linter.Parallel != nil {
		cfg.Linter.Parallel = *raw.Linter.Parallel
	}
	if raw.Linter.FailFast != nil {
		cfg.Linter.FailFast = *raw.Linter.FailFast
	}
	if raw.Linter.Timeout != nil {
		cfg.Linter.Timeout = *raw.Linter.Timeout
	}
	if raw.Linter.MaxWorkers != nil {
		cfg.Linter.MaxWorkers = *raw.Linter.MaxWorkers
	}
	if raw.Autofix.Enabled != nil {
		cfg.Autofix.Enabled = *raw.Autofix.Enabled
	}
	if raw.Autofix.MaxIterations != nil {
		cfg.Autofix.MaxIterations = *raw.Autofix.MaxIterations
	}
	if raw.Autofix.Interactive != nil {
		cfg.Autofix.Interactive = *raw.Autofix.Interactive
	}

	for name, v := range raw.Categories {
		cat := ParseCategory(name)
		cc := CategoryConfig{Enabled: true}
		switch val := v.(type) {
		case bool:
			cc.Enabled = val
		case map[string]any:
			if enabled, ok := val["enabled"].(bool); ok {
				cc.Enabled = enabled
			}
			if prio, ok := resolvePriority(val["priority"]); ok {
				cc.PriorityOverride = &prio
			}
			if failOn, ok := val["fail_on"].(string); ok {
				sev := ParseSeverity(failOn)
				cc.FailOn = &sev
			}
		default:
			return nil, fmt.Errorf("parse config: category %q: expected bool or table", name)
		}
		cfg.Categories[cat] = cc
	}
	return cfg, nil
}

// RunnerConfig converts the global settings into scheduler policy.
func (c *Config) RunnerConfig(root string) RunnerConfig {
	return RunnerConfig{
		Root:       root,
		Parallel:   c.Linter.Parallel,
		FailFast:   c.Linter.FailFast,
		Timeout:    time.Duration(c.Linter.Timeout) * time.Second,
		MaxWorkers: c.Linter.MaxWorkers,
	}
}

// categoryConfig returns the category's policy, enabled-by-default when
// unconfigured.
func (c *Config) categoryConfig(cat Category) CategoryConfig {
	if cc, ok := c.Categories[cat]; ok {
		return cc
	}
	return CategoryConfig{Enabled: true}
}
