package lint

import (
	"context"
	"os"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Runner schedules registry × file set onto a bounded worker pool and
// aggregates issues deterministically.
type Runner struct {
	registry *Registry
	cfg      RunnerConfig
	spans    SpanSource
}

// NewRunner creates a scheduler over a loaded registry. spans may be
// nil; it only feeds max-function-length checks.
func NewRunner(registry *Registry, cfg RunnerConfig, spans SpanSource) *Runner {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = runtime.NumCPU()
	}
	if !cfg.Parallel {
		cfg.MaxWorkers = 1
	}
	return &Runner{registry: registry, cfg: cfg, spans: spans}
}

// task is one (rule, file) pair.
type task struct {
	rule *Rule
	file string
}

// Run executes every applicable rule against every file. Issues are
// sorted by (severity desc, category, file path, line) before
// returning. Fail-fast cancels in-flight work at the first
// error-severity issue.
func (r *Runner) Run(ctx context.Context, files []string) *Result {
	var tasks []task
	for _, file := range files {
		for _, rule := range r.registry.LintersFor(file) {
			tasks = append(tasks, task{rule: rule, file: file})
		}
	}
	if len(tasks) == 0 {
		return &Result{Issues: []Issue{}, Outcome: OutcomeClean}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		issues   []Issue
		failFast bool
		failOn   bool
	)
	collect := func(found []Issue) {
		if len(found) == 0 {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		issues = append(issues, found...)
		for _, is := range found {
			if is.Severity == SeverityError {
				failFast = true
			}
			if r.registry.failOnTriggered(is) {
				failOn = true
			}
		}
		if r.cfg.FailFast && failFast {
			cancel()
		}
	}

	// contentCache deduplicates file reads across rules.
	var cacheMu sync.Mutex
	contents := make(map[string][]byte)
	readFile := func(path string) ([]byte, bool) {
		cacheMu.Lock()
		content, ok := contents[path]
		cacheMu.Unlock()
		if ok {
			return content, content != nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			content = nil
		}
		cacheMu.Lock()
		contents[path] = content
		cacheMu.Unlock()
		return content, content != nil
	}

	g := &errgroup.Group{}
	g.SetLimit(r.cfg.MaxWorkers)
	for _, t := range tasks {
		t := t
		g.Go(func() error {
			if runCtx.Err() != nil {
				return nil // dropped: cancellation beat this task
			}
			content, ok := readFile(t.file)
			if !ok {
				return nil
			}
			switch {
			case t.rule.Command != nil:
				collect(t.rule.Command.run(t.rule, t.file, content, r.spans))
			case t.rule.Exec != nil:
				collect(t.rule.Exec.run(runCtx, t.rule, t.file, content))
			}
			return nil
		})
	}
	g.Wait()

	sortIssues(issues)

	outcome := OutcomeClean
	switch {
	case ctx.Err() != nil:
		outcome = OutcomeCancelled
	case failFast || failOn:
		outcome = OutcomeFailed
	case len(issues) > 0:
		outcome = OutcomeIssues
	}
	if issues == nil {
		issues = []Issue{}
	}
	return &Result{Issues: issues, Outcome: outcome}
}

// sortIssues orders by severity (worst first), then category, file
// path, and line.
func sortIssues(issues []Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.FilePath != b.FilePath {
			return a.FilePath < b.FilePath
		}
		return lineOf(a) < lineOf(b)
	})
}

func lineOf(issue Issue) int {
	if issue.Start == nil {
		return 0
	}
	return issue.Start.Line
}
