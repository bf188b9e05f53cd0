package lint

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeLinters lays out <root>/.adi/linters/ with the given files.
func writeLinters(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, LintersDir)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return root
}

const noTodoRule = `[rule]
id = "no-todo"
type = "command"
category = "code-quality"
severity = "warning"

[rule.glob]
patterns = ["**/*.rs"]
exclude = ["**/vendor/**"]

[rule.command]
type = "regex-forbid"
pattern = "TODO|FIXME"
message = "Found TODO"
`

func TestLoadRegistry_Basic(t *testing.T) {
	t.Parallel()
	root := writeLinters(t, map[string]string{"no-todo.toml": noTodoRule})

	reg, err := LoadRegistry(root, slog.Default())
	require.NoError(t, err)
	require.Len(t, reg.Rules(), 1)

	rule := reg.Rules()[0]
	assert.Equal(t, "no-todo", rule.ID)
	assert.Equal(t, []Category{CategoryCodeQuality}, rule.Categories)
	assert.Equal(t, SeverityWarning, rule.Severity)
	assert.Equal(t, PriorityNormal, rule.Priority)
	require.NotNil(t, rule.Command)
	assert.Equal(t, CmdRegexForbid, rule.Command.Kind)
}

func TestLoadRegistry_IgnoresExamplesAndConfig(t *testing.T) {
	t.Parallel()
	root := writeLinters(t, map[string]string{
		"no-todo.toml":         noTodoRule,
		"sample.toml.example":  noTodoRule,
		"config.toml":          "[linter]\nfail_fast = true\n",
		"notes.txt":            "not a rule",
	})

	reg, err := LoadRegistry(root, slog.Default())
	require.NoError(t, err)
	assert.Len(t, reg.Rules(), 1)
	assert.True(t, reg.Config().Linter.FailFast)
}

func TestLoadRegistry_MalformedRuleSkipped(t *testing.T) {
	t.Parallel()
	root := writeLinters(t, map[string]string{
		"broken.toml": "this is [not toml",
		"no-id.toml":  "[rule]\ntype = \"command\"\n",
		"good.toml":   noTodoRule,
	})

	reg, err := LoadRegistry(root, slog.Default())
	require.NoError(t, err)
	require.Len(t, reg.Rules(), 1)
	assert.Equal(t, "no-todo", reg.Rules()[0].ID)
}

func TestLoadRegistry_Deterministic(t *testing.T) {
	t.Parallel()
	root := writeLinters(t, map[string]string{
		"a.toml": ruleWithPriority("aa", "low"),
		"b.toml": ruleWithPriority("bb", "critical"),
		"c.toml": ruleWithPriority("cc", "critical"),
	})

	first, err := LoadRegistry(root, slog.Default())
	require.NoError(t, err)
	second, err := LoadRegistry(root, slog.Default())
	require.NoError(t, err)

	idsOf := func(reg *Registry) []string {
		var ids []string
		for _, r := range reg.Rules() {
			ids = append(ids, r.ID)
		}
		return ids
	}
	// Priority desc, then id asc — and stable across loads.
	assert.Equal(t, []string{"bb", "cc", "aa"}, idsOf(first))
	assert.Equal(t, idsOf(first), idsOf(second))
}

func ruleWithPriority(id, priority string) string {
	return `[rule]
id = "` + id + `"
type = "command"
category = "style"
priority = "` + priority + `"

[rule.command]
type = "contains"
text = "x"
message = "m"
`
}

func TestLintersFor_GlobsAndExcludes(t *testing.T) {
	t.Parallel()
	root := writeLinters(t, map[string]string{"no-todo.toml": noTodoRule})
	reg, err := LoadRegistry(root, slog.Default())
	require.NoError(t, err)

	assert.Len(t, reg.LintersFor(filepath.Join(root, "src/lib.rs")), 1)
	assert.Empty(t, reg.LintersFor(filepath.Join(root, "src/lib.go")))
	assert.Empty(t, reg.LintersFor(filepath.Join(root, "vendor/dep/lib.rs")))
}

func TestLintersFor_DisabledCategory(t *testing.T) {
	t.Parallel()
	root := writeLinters(t, map[string]string{
		"no-todo.toml": noTodoRule,
		"config.toml":  "[categories]\ncode_quality = false\n",
	})
	reg, err := LoadRegistry(root, slog.Default())
	require.NoError(t, err)

	assert.Empty(t, reg.LintersFor(filepath.Join(root, "src/lib.rs")))
}

func TestLintersFor_PriorityOrder(t *testing.T) {
	t.Parallel()
	root := writeLinters(t, map[string]string{
		"zz-low.toml":   ruleWithPriorityGlob("zz-low", "low", "**/*"),
		"aa-high.toml":  ruleWithPriorityGlob("aa-high", "high", "**/*"),
		"mm-high.toml":  ruleWithPriorityGlob("mm-high", "high", "**/*"),
	})
	reg, err := LoadRegistry(root, slog.Default())
	require.NoError(t, err)

	rules := reg.LintersFor(filepath.Join(root, "any.txt"))
	require.Len(t, rules, 3)
	assert.Equal(t, "aa-high", rules[0].ID)
	assert.Equal(t, "mm-high", rules[1].ID)
	assert.Equal(t, "zz-low", rules[2].ID)
}

func ruleWithPriorityGlob(id, priority, glob string) string {
	return `[rule]
id = "` + id + `"
type = "command"
category = "style"
priority = "` + priority + `"

[rule.glob]
patterns = ["` + glob + `"]

[rule.command]
type = "contains"
text = "never-present-sentinel"
message = "m"
`
}

func TestCategoryPriorityOverride(t *testing.T) {
	t.Parallel()
	root := writeLinters(t, map[string]string{
		"r.toml":      ruleWithPriorityGlob2("r", "**/*"),
		"config.toml": "[categories.style]\nenabled = true\npriority = 900\n",
	})
	reg, err := LoadRegistry(root, slog.Default())
	require.NoError(t, err)

	require.Len(t, reg.Rules(), 1)
	assert.Equal(t, 900, reg.Rules()[0].Priority)
}

func ruleWithPriorityGlob2(id, glob string) string {
	return `[rule]
id = "` + id + `"
type = "command"
category = "style"

[rule.glob]
patterns = ["` + glob + `"]

[rule.command]
type = "contains"
text = "x"
message = "m"
`
}

func TestLoadConfig_Full(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`[linter]
parallel = false
fail_fast = true
timeout = 60
max_workers = 2

[autofix]
enabled = false
max_iterations = 3
interactive = true

[categories]
style = false

[categories.security]
enabled = true
fail_on = "warning"
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.False(t, cfg.Linter.Parallel)
	assert.True(t, cfg.Linter.FailFast)
	assert.Equal(t, int64(60), cfg.Linter.Timeout)
	assert.Equal(t, 2, cfg.Linter.MaxWorkers)
	assert.False(t, cfg.Autofix.Enabled)
	assert.Equal(t, 3, cfg.Autofix.MaxIterations)
	assert.True(t, cfg.Autofix.Interactive)

	assert.False(t, cfg.Categories[CategoryStyle].Enabled)
	sec := cfg.Categories[CategorySecurity]
	assert.True(t, sec.Enabled)
	require.NotNil(t, sec.FailOn)
	assert.Equal(t, SeverityWarning, *sec.FailOn)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)
	assert.True(t, cfg.Linter.Parallel)
	assert.False(t, cfg.Linter.FailFast)
	assert.Equal(t, int64(30), cfg.Linter.Timeout)
	assert.True(t, cfg.Autofix.Enabled)
	assert.Equal(t, 10, cfg.Autofix.MaxIterations)
}
