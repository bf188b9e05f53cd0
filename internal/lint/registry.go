package lint

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pelletier/go-toml/v2"
)

// LintersDir is the per-project rule directory, relative to the root.
const LintersDir = ".adi/linters"

// Rule is one compiled linter rule: globs, policy, and exactly one of a
// command body or an exec body.
type Rule struct {
	ID         string
	Categories []Category
	Severity   Severity
	Priority   int
	Globs      []string
	Excludes   []string

	Command *CommandRule
	Exec    *ExecRule
}

// Registry holds the compiled rule set for a project.
type Registry struct {
	root   string
	config *Config

	rules      []*Rule
	byCategory map[Category][]*Rule
}

// ruleFile mirrors one rule TOML file.
type ruleFile struct {
	Rule ruleSection `toml:"rule"`
}

type ruleSection struct {
	ID         string   `toml:"id"`
	Type       string   `toml:"type"`
	Category   string   `toml:"category"`
	Categories []string `toml:"categories"`
	Severity   string   `toml:"severity"`
	Priority   any      `toml:"priority"`

	Glob struct {
		Patterns []string `toml:"patterns"`
		Exclude  []string `toml:"exclude"`
	} `toml:"glob"`

	Command map[string]any `toml:"command"`
	Exec    map[string]any `toml:"exec"`
	Fix     map[string]any `toml:"fix"`
}

// LoadRegistry reads <root>/.adi/linters/: config.toml for global
// policy, every other .toml file as one rule. Files named
// *.toml.example are ignored; malformed rule files are logged and
// skipped, never fatal.
func LoadRegistry(root string, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dir := filepath.Join(root, LintersDir)

	cfg, err := LoadConfig(filepath.Join(dir, "config.toml"))
	if err != nil {
		return nil, err
	}

	reg := &Registry{
		root:       root,
		config:     cfg,
		byCategory: make(map[Category][]*Rule),
	}

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return reg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read linters dir: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == "config.toml" {
			continue
		}
		if !strings.HasSuffix(name, ".toml") || strings.HasSuffix(name, ".toml.example") {
			continue
		}
		rule, err := loadRuleFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("lint: rule file skipped", "file", name, "error", err)
			continue
		}
		reg.register(rule)
	}

	sort.Slice(reg.rules, func(i, j int) bool {
		if reg.rules[i].Priority != reg.rules[j].Priority {
			return reg.rules[i].Priority > reg.rules[j].Priority
		}
		return reg.rules[i].ID < reg.rules[j].ID
	})
	return reg, nil
}

func (r *Registry) register(rule *Rule) {
	// Final priority: rule override > category override > normal.
	if rule.Priority == 0 {
		rule.Priority = PriorityNormal
		for _, cat := range rule.Categories {
			if cc := r.config.categoryConfig(cat); cc.PriorityOverride != nil {
				rule.Priority = *cc.PriorityOverride
				break
			}
		}
	}
	r.rules = append(r.rules, rule)
	for _, cat := range rule.Categories {
		r.byCategory[cat] = append(r.byCategory[cat], rule)
	}
}

func loadRuleFile(path string) (*Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule: %w", err)
	}
	var rf ruleFile
	if err := toml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse rule: %w", err)
	}
	sec := rf.Rule
	if sec.ID == "" {
		return nil, fmt.Errorf("rule has no id")
	}

	rule := &Rule{
		ID:       sec.ID,
		Severity: ParseSeverity(sec.Severity),
		Globs:    sec.Glob.Patterns,
		Excludes: sec.Glob.Exclude,
	}
	if len(rule.Globs) == 0 {
		rule.Globs = []string{"**/*"}
	}
	for _, glob := range append(rule.Globs, rule.Excludes...) {
		if !doublestar.ValidatePattern(glob) {
			return nil, fmt.Errorf("rule %s: invalid glob %q", sec.ID, glob)
		}
	}

	if len(sec.Categories) > 0 {
		for _, c := range sec.Categories {
			rule.Categories = append(rule.Categories, ParseCategory(c))
		}
	} else if sec.Category != "" {
		rule.Categories = []Category{ParseCategory(sec.Category)}
	} else {
		rule.Categories = []Category{CategoryCodeQuality}
	}

	if prio, ok := resolvePriority(sec.Priority); ok {
		rule.Priority = prio
	}

	switch sec.Type {
	case "command":
		cmd, err := parseCommandRule(sec.Command, sec.Fix)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", sec.ID, err)
		}
		rule.Command = cmd
	case "exec":
		ex, err := parseExecRule(sec.Exec, sec.Fix)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", sec.ID, err)
		}
		rule.Exec = ex
	default:
		return nil, fmt.Errorf("rule %s: unknown type %q", sec.ID, sec.Type)
	}
	return rule, nil
}

// Config returns the loaded global configuration.
func (r *Registry) Config() *Config {
	return r.config
}

// Rules returns every registered rule in priority order.
func (r *Registry) Rules() []*Rule {
	return r.rules
}

// RulesForCategory returns the rules tagged with a category.
func (r *Registry) RulesForCategory(cat Category) []*Rule {
	return r.byCategory[cat]
}

// LintersFor returns the rules applicable to a path: include glob
// matched, not excluded, and in an enabled category. Order is priority
// descending, then rule id ascending (the registry's load order).
func (r *Registry) LintersFor(path string) []*Rule {
	rel := path
	if r.root != "" {
		if rp, err := filepath.Rel(r.root, path); err == nil && !strings.HasPrefix(rp, "..") {
			rel = rp
		}
	}
	rel = filepath.ToSlash(rel)

	var matched []*Rule
rules:
	for _, rule := range r.rules {
		if !r.categoryEnabled(rule) {
			continue
		}
		included := false
		for _, glob := range rule.Globs {
			if ok, _ := doublestar.Match(glob, rel); ok {
				included = true
				break
			}
		}
		if !included {
			continue
		}
		for _, glob := range rule.Excludes {
			if ok, _ := doublestar.Match(glob, rel); ok {
				continue rules
			}
		}
		matched = append(matched, rule)
	}
	return matched
}

// categoryEnabled reports whether at least one of the rule's categories
// is enabled.
func (r *Registry) categoryEnabled(rule *Rule) bool {
	for _, cat := range rule.Categories {
		if r.config.categoryConfig(cat).Enabled {
			return true
		}
	}
	return false
}

// failOnTriggered reports whether an issue trips its category's fail_on
// gate.
func (r *Registry) failOnTriggered(issue Issue) bool {
	cc := r.config.categoryConfig(issue.Category)
	if cc.FailOn == nil {
		return false
	}
	return issue.Severity.Rank() >= cc.FailOn.Rank()
}
