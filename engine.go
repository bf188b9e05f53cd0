package adex

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/jward/adex/internal/analyzer"
	"github.com/jward/adex/internal/store"
	"github.com/jward/adex/internal/treesitter"
)

// Engine orchestrates the indexing pipeline: file discovery, change
// detection via content hashes, parallel parse/extract, serialized
// persistence, and the reference resolution pass.
type Engine struct {
	store     *store.Store
	pool      *treesitter.Pool
	languages map[string]bool // nil means all languages
	workers   int
	logger    *slog.Logger

	// pending accumulates unresolved references across one run; the
	// resolution pass drains it after every file's symbols are in.
	pending []pendingRef
}

// pendingRef is a parsed reference waiting for resolution, annotated
// with its owning file and the persisted id of its containing symbol
// (0 when the reference sits at file level).
type pendingRef struct {
	fileID       int64
	fromSymbolID int64
	ref          analyzer.ParsedReference
}

// Report summarizes one index run.
type Report struct {
	Processed int
	Skipped   int
	Failed    int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLanguages restricts which languages the Engine will process.
func WithLanguages(languages ...string) Option {
	return func(e *Engine) {
		e.languages = make(map[string]bool, len(languages))
		for _, lang := range languages {
			e.languages[lang] = true
		}
	}
}

// WithWorkers bounds the parse/extract worker pool. Zero or negative
// means one worker per CPU.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithLogger replaces the default stderr logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an Engine backed by a SQLite database at dbPath, running
// migrations as needed.
func New(dbPath string, opts ...Option) (*Engine, error) {
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("adex: open store: %w", err)
	}
	e := &Engine{
		store:  s,
		pool:   treesitter.NewPool(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers <= 0 {
		e.workers = runtime.NumCPU()
	}
	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying store for direct access.
func (e *Engine) Store() *Store {
	return e.store
}

// Query returns a new QueryBuilder wrapping the store.
func (e *Engine) Query() *QueryBuilder {
	return &QueryBuilder{store: e.store}
}

// IndexDirectory walks root and indexes every supported file. If root
// is inside a git repository, git ls-files supplies the file list so
// ignore rules match committed reality; otherwise a filesystem walk
// honoring the root .gitignore is used.
func (e *Engine) IndexDirectory(ctx context.Context, root string) (*Report, error) {
	paths, err := e.gitListFiles(root)
	if err != nil {
		paths, err = e.walkListFiles(root)
		if err != nil {
			return nil, err
		}
	}
	e.pruneMissing(root, paths)
	return e.IndexFiles(ctx, paths)
}

// pruneMissing drops index rows for files under root that no longer
// exist on disk. Deletion cascades to symbols and references.
func (e *Engine) pruneMissing(root string, discovered []string) {
	current := make(map[string]bool, len(discovered))
	for _, p := range discovered {
		current[p] = true
	}
	files, err := e.store.AllFiles()
	if err != nil {
		return
	}
	for _, f := range files {
		if current[f.Path] {
			continue
		}
		if rel, err := filepath.Rel(root, f.Path); err != nil || strings.HasPrefix(rel, "..") {
			continue // outside this root; leave alone
		}
		if _, err := os.Stat(f.Path); err == nil {
			continue // still on disk, just filtered out this run
		}
		if err := e.store.DeleteFile(f.Path); err == nil {
			e.logger.Info("index: pruned missing file", "path", f.Path)
		}
	}
}

// gitListFiles uses git ls-files to discover tracked and untracked (but
// not ignored) files under root, filtered to supported languages.
func (e *Engine) gitListFiles(root string) ([]string, error) {
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		absPath := filepath.Join(root, line)
		if e.indexable(absPath) {
			paths = append(paths, absPath)
		}
	}
	return paths, nil
}

// skipDirs are directories never worth walking into.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
}

// walkListFiles discovers files by walking the filesystem, applying the
// root ignore file plus the standard skip list.
func (e *Engine) walkListFiles(root string) ([]string, error) {
	ign := loadIgnoreFile(root)

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			if ign.Match(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if ign.Match(rel, false) {
			return nil
		}
		if e.indexable(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}

// indexable reports whether a path should be fed to the pipeline:
// non-binary, supported language, not filtered out.
func (e *Engine) indexable(path string) bool {
	if treesitter.IsBinaryPath(path) {
		return false
	}
	lang, ok := treesitter.LanguageForFile(path)
	if !ok {
		return false
	}
	if e.languages != nil && !e.languages[lang] {
		return false
	}
	return true
}

// IndexFiles indexes the given paths: parse and extraction run across
// the worker pool, the write path is serialized, and the resolution
// pass runs once every file's symbols are persisted.
func (e *Engine) IndexFiles(ctx context.Context, paths []string) (*Report, error) {
	report, err := e.extractAndWrite(ctx, paths)
	if err != nil {
		return report, err
	}

	if err := e.resolveReferences(ctx); err != nil {
		return report, err
	}

	if err := e.updateRunStatus(); err != nil {
		return report, err
	}
	return report, nil
}

// updateRunStatus stamps last_indexed. Cancelled runs never reach this.
func (e *Engine) updateRunStatus() error {
	st, err := e.store.GetStatus()
	if err != nil {
		return err
	}
	st.LastIndexed = time.Now().UTC().Format(time.RFC3339)
	return e.store.UpdateStatus(st)
}

// extracted is the parse/extract result for one file, ready for the
// serial write path.
type extracted struct {
	path    string
	lang    string
	hash    string
	size    int64
	symbols []analyzer.FlatSymbol
	refs    []analyzer.ParsedReference
}

// extractFile reads, hashes, parses and analyzes one file. Returns
// (nil, nil) when the file is unchanged since the last index.
func (e *Engine) extractFile(ctx context.Context, path string) (*extracted, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, ioErr(path, err)
	}
	hash := fmt.Sprintf("%x", sha256.Sum256(content))

	stored, err := e.store.GetFileHash(path)
	if err != nil {
		return nil, &Error{Kind: KindStorage, Path: path, Msg: err.Error(), Err: err}
	}
	if stored == hash {
		return nil, nil // unchanged
	}

	lang, _ := treesitter.LanguageForFile(path)
	tree, err := e.pool.Parse(ctx, lang, content)
	if err != nil {
		if errors.Is(err, treesitter.ErrNoTree) {
			return nil, parseErr(path)
		}
		return nil, parseErr(path)
	}
	defer tree.Close()

	an := analyzer.ForLanguage(lang)
	symbols := analyzer.Flatten(an.ExtractSymbols(content, tree))
	refs := an.ExtractReferences(content, tree)

	return &extracted{
		path:    path,
		lang:    lang,
		hash:    hash,
		size:    int64(len(content)),
		symbols: symbols,
		refs:    refs,
	}, nil
}

// writeFile persists one file's symbols in a single transaction and
// queues its references for the resolution pass. Insertion order
// defines the index-space used for parent fixup.
func (e *Engine) writeFile(ex *extracted) error {
	existing, err := e.store.GetFile(ex.path)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	if err := e.store.Begin(); err != nil {
		return err
	}

	var fileID int64
	if existing != nil {
		if err := e.store.DeleteReferencesForFile(existing.ID); err != nil {
			e.store.Rollback()
			return err
		}
		if err := e.store.DeleteSymbolsForFile(existing.ID); err != nil {
			e.store.Rollback()
			return err
		}
		existing.Language = ex.lang
		existing.Hash = ex.hash
		existing.Size = ex.size
		if err := e.store.UpdateFile(existing); err != nil {
			e.store.Rollback()
			return err
		}
		fileID = existing.ID
	} else {
		fileID, err = e.store.InsertFile(&store.File{
			Path:     ex.path,
			Language: ex.lang,
			Hash:     ex.hash,
			Size:     ex.size,
		})
		if err != nil {
			e.store.Rollback()
			return err
		}
	}

	// Insert symbols in analyzer order; the k-th id backs index k.
	ids := make([]int64, len(ex.symbols))
	for i := range ex.symbols {
		sym := &store.Symbol{
			Name:         ex.symbols[i].Name,
			Kind:         ex.symbols[i].Kind,
			FileID:       fileID,
			Location:     ex.symbols[i].Location,
			Signature:    ex.symbols[i].Signature,
			DocComment:   ex.symbols[i].DocComment,
			Visibility:   ex.symbols[i].Visibility,
			IsEntryPoint: ex.symbols[i].IsEntryPoint,
		}
		id, err := e.store.InsertSymbol(sym)
		if err != nil {
			e.store.Rollback()
			return err
		}
		ids[i] = id
	}

	// Parent fixup: children point at ids assigned above.
	for i := range ex.symbols {
		parent := ex.symbols[i].ParentIndex
		if parent == nil {
			continue
		}
		sym, err := e.store.GetSymbol(ids[i])
		if err != nil {
			e.store.Rollback()
			return err
		}
		pid := ids[*parent]
		sym.ParentID = &pid
		if err := e.store.UpdateSymbol(sym); err != nil {
			e.store.Rollback()
			return err
		}
	}

	if err := e.store.Commit(); err != nil {
		return err
	}

	// Queue references now that the index-space is mapped to real ids.
	for _, ref := range ex.refs {
		var fromID int64
		if ref.ContainingSymbolIndex != nil && *ref.ContainingSymbolIndex < len(ids) {
			fromID = ids[*ref.ContainingSymbolIndex]
		}
		e.pending = append(e.pending, pendingRef{
			fileID:       fileID,
			fromSymbolID: fromID,
			ref:          ref,
		})
	}
	return nil
}

// ListProjectFiles returns every non-binary file under root, honoring
// git's ignore rules when available and the root ignore file otherwise.
// The linter uses this for discovery; unlike the indexer it keeps files
// of unsupported languages.
func ListProjectFiles(root string) ([]string, error) {
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err == nil {
		var paths []string
		for _, line := range strings.Split(stdout.String(), "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			path := filepath.Join(root, line)
			if !treesitter.IsBinaryPath(path) {
				paths = append(paths, path)
			}
		}
		return paths, nil
	}

	ign := loadIgnoreFile(root)
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			if ign.Match(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if ign.Match(rel, false) || treesitter.IsBinaryPath(path) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}

// loadIgnoreFile parses the gitignore-style ignore file at the project
// root. Missing file means an empty matcher.
func loadIgnoreFile(root string) *ignoreMatcher {
	data, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return &ignoreMatcher{}
	}
	return parseIgnorePatterns(string(data))
}
