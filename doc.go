// Package adex provides a polyglot source code indexer and a
// configurable linter orchestrator built on tree-sitter and SQLite.
//
// # Indexer
//
// The [Engine] walks a project, parses source files for ten languages
// (Go, TypeScript, JavaScript, Python, Rust, C, C++, Java, PHP, Ruby),
// extracts symbols and references, and persists them to a SQLite
// database with full-text search indices. Unchanged files are skipped
// via content hashing; parsing runs across a worker pool while the
// write path stays serialized.
//
//	e, err := adex.New("index.db")
//	if err != nil { ... }
//	defer e.Close()
//
//	report, err := e.IndexDirectory(ctx, "path/to/project")
//
//	q := e.Query()
//	callers, err := q.Callers(symbolID)
//
// After extraction, a resolution pass rewrites textual reference names
// into symbol ids: exact matches in the same file win, then
// kind-consistent matches project-wide; unresolved references are
// dropped rather than stored dangling.
//
// # Linter
//
// The lint package (internal/lint, surfaced through cmd/adex) loads
// per-project rules from <root>/.adi/linters/ — one TOML file per rule
// plus an optional config.toml — and schedules rule×file pairs across a
// bounded worker pool with per-rule timeouts, fail-fast cancellation,
// and an iterative autofix loop that applies machine-readable fixes
// until a fixed point.
package adex
