package adex

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/adex/internal/store"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

const aPy = `def foo(): pass
class C:
    def bar(self): foo()
`

const bPy = `from a import foo
foo()
`

func TestIndex_TrivialPythonProject(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	root := writeProject(t, map[string]string{"a.py": aPy, "b.py": bPy})

	report, err := e.IndexDirectory(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Processed)
	assert.Zero(t, report.Failed)

	q := e.Query()
	status, err := q.Status()
	require.NoError(t, err)
	assert.Equal(t, int64(2), status.IndexedFiles)
	assert.Equal(t, int64(3), status.IndexedSymbols)
	assert.NotEmpty(t, status.LastIndexed)

	foos, err := q.SymbolsByName("foo")
	require.NoError(t, err)
	require.Len(t, foos, 1)
	foo := foos[0]
	assert.Equal(t, store.KindFunction, foo.Kind)
	assert.Equal(t, filepath.Join(root, "a.py"), foo.FilePath)

	bars, err := q.SymbolsByName("bar")
	require.NoError(t, err)
	require.Len(t, bars, 1)
	require.NotNil(t, bars[0].ParentID)
	classes, err := q.SymbolsByName("C")
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, classes[0].ID, *bars[0].ParentID)

	// b.py's import and call are file-level: no from-symbol, dropped.
	// The single caller of foo is bar.
	callers, err := q.Callers(foo.ID)
	require.NoError(t, err)
	require.Len(t, callers, 1)
	assert.Equal(t, "bar", callers[0].Name)
}

func TestIndex_Idempotent(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	root := writeProject(t, map[string]string{"a.py": aPy, "b.py": bPy})
	ctx := context.Background()

	_, err := e.IndexDirectory(ctx, root)
	require.NoError(t, err)

	q := e.Query()
	foosBefore, err := q.SymbolsByName("foo")
	require.NoError(t, err)
	statusBefore, err := q.Status()
	require.NoError(t, err)

	report, err := e.IndexDirectory(ctx, root)
	require.NoError(t, err)
	assert.Zero(t, report.Processed)
	assert.Equal(t, 2, report.Skipped)

	foosAfter, err := q.SymbolsByName("foo")
	require.NoError(t, err)
	require.Len(t, foosAfter, 1)
	assert.Equal(t, foosBefore[0].ID, foosAfter[0].ID)

	statusAfter, err := q.Status()
	require.NoError(t, err)
	assert.Equal(t, statusBefore.IndexedFiles, statusAfter.IndexedFiles)
	assert.Equal(t, statusBefore.IndexedSymbols, statusAfter.IndexedSymbols)
}

func TestIndex_ReindexChangedFile(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	root := writeProject(t, map[string]string{"a.py": aPy, "b.py": bPy})
	ctx := context.Background()

	_, err := e.IndexDirectory(ctx, root)
	require.NoError(t, err)

	q := e.Query()
	aBefore, err := q.File(filepath.Join(root, "a.py"))
	require.NoError(t, err)
	bBefore, err := q.File(filepath.Join(root, "b.py"))
	require.NoError(t, err)
	fooBefore, err := q.SymbolsByName("foo")
	require.NoError(t, err)

	// Append to b.py only.
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.py"), []byte(bPy+"x = 1\n"), 0o644))

	report, err := e.IndexDirectory(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Skipped)

	aAfter, err := q.File(filepath.Join(root, "a.py"))
	require.NoError(t, err)
	assert.Equal(t, aBefore.Hash, aAfter.Hash)

	bAfter, err := q.File(filepath.Join(root, "b.py"))
	require.NoError(t, err)
	assert.NotEqual(t, bBefore.Hash, bAfter.Hash)
	assert.Equal(t, bBefore.ID, bAfter.ID)

	fooAfter, err := q.SymbolsByName("foo")
	require.NoError(t, err)
	require.Len(t, fooAfter, 1)
	assert.Equal(t, fooBefore[0].ID, fooAfter[0].ID)
}

func TestIndex_DeletedFilePruned(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	root := writeProject(t, map[string]string{"a.py": aPy, "b.py": bPy})
	ctx := context.Background()

	_, err := e.IndexDirectory(ctx, root)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, "b.py")))
	_, err = e.IndexDirectory(ctx, root)
	require.NoError(t, err)

	q := e.Query()
	_, err = q.File(filepath.Join(root, "b.py"))
	assert.True(t, IsNotFound(err))
}

func TestIndex_UnreadableFileSkipped(t *testing.T) {
	t.Parallel()
	if os.Geteuid() == 0 {
		t.Skip("permission checks are meaningless as root")
	}
	e := newTestEngine(t)
	root := writeProject(t, map[string]string{"ok.py": "def fine(): pass\n", "bad.py": "def x(): pass\n"})
	require.NoError(t, os.Chmod(filepath.Join(root, "bad.py"), 0o000))
	t.Cleanup(func() { os.Chmod(filepath.Join(root, "bad.py"), 0o644) })

	report, err := e.IndexDirectory(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Failed)

	symbols, err := e.Query().SymbolsByName("fine")
	require.NoError(t, err)
	assert.Len(t, symbols, 1)
}

func TestIndex_Cancellation(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	root := writeProject(t, map[string]string{"a.py": aPy})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.IndexDirectory(ctx, root)
	require.Error(t, err)
	assert.Equal(t, KindCancelled, KindOf(err))

	// A cancelled run must not stamp last_indexed.
	status, err := e.Query().Status()
	require.NoError(t, err)
	assert.Empty(t, status.LastIndexed)
}

func TestIndex_SearchReachability(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	root := writeProject(t, map[string]string{"a.py": "def frobnicate(): pass\n"})

	_, err := e.IndexDirectory(context.Background(), root)
	require.NoError(t, err)

	symbols, err := e.Query().SearchSymbols("frobnicate", 1)
	require.NoError(t, err)
	require.Len(t, symbols, 1)
	assert.Equal(t, "frobnicate", symbols[0].Name)
}

func TestIndex_HonorsIgnoreFile(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	root := writeProject(t, map[string]string{
		"keep.py":           "def keep(): pass\n",
		"generated/gen.py":  "def generated(): pass\n",
		".gitignore":        "generated/\n",
	})

	_, err := e.IndexDirectory(context.Background(), root)
	require.NoError(t, err)

	q := e.Query()
	kept, err := q.SymbolsByName("keep")
	require.NoError(t, err)
	assert.Len(t, kept, 1)

	gen, err := q.SymbolsByName("generated")
	require.NoError(t, err)
	assert.Empty(t, gen)
}
