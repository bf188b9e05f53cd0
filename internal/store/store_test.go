package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func ptr[T any](v T) *T { return &v }

func insertTestFile(t *testing.T, s *Store, path string) *File {
	t.Helper()
	f := &File{Path: path, Language: "go", Hash: "abc123", Size: 42}
	id, err := s.InsertFile(f)
	require.NoError(t, err)
	require.Positive(t, id)
	return f
}

func insertTestSymbol(t *testing.T, s *Store, fileID int64, name string, kind SymbolKind) *Symbol {
	t.Helper()
	sym := &Symbol{
		Name:       name,
		Kind:       kind,
		FileID:     fileID,
		Location:   Location{StartLine: 1, StartCol: 0, EndLine: 3, EndCol: 1, StartByte: 10, EndByte: 90},
		Visibility: VisPublic,
	}
	id, err := s.InsertSymbol(sym)
	require.NoError(t, err)
	require.Positive(t, id)
	return sym
}

// =============================================================================
// Schema & migrations
// =============================================================================

func TestMigrate_AllTablesExist(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for _, table := range []string{"files", "symbols", "symbol_refs", "status", "schema_migrations"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
	// FTS virtual tables.
	for _, table := range []string{"symbols_fts", "files_fts"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE name=?", table,
		).Scan(&name)
		require.NoError(t, err, "fts table %s should exist", table)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
	require.NoError(t, s.Migrate())

	v, err := s.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, len(migrations), v)
}

func TestMigrate_RefusesNewerSchema(t *testing.T) {
	t.Parallel()
	dbPath := filepath.Join(t.TempDir(), "future.db")
	s, err := Open(dbPath)
	require.NoError(t, err)

	_, err = s.db.Exec("INSERT INTO schema_migrations (id) VALUES (9999)")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(dbPath)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaTooNew)
}

// =============================================================================
// Files
// =============================================================================

func TestFileCRUD(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	f := insertTestFile(t, s, "src/main.go")

	got, err := s.GetFile("src/main.go")
	require.NoError(t, err)
	assert.Equal(t, f.ID, got.ID)
	assert.Equal(t, "go", got.Language)
	assert.Equal(t, "abc123", got.Hash)
	assert.Equal(t, int64(42), got.Size)

	byID, err := s.GetFileByID(f.ID)
	require.NoError(t, err)
	assert.Equal(t, got, byID)

	exists, err := s.FileExists("src/main.go")
	require.NoError(t, err)
	assert.True(t, exists)

	hash, err := s.GetFileHash("src/main.go")
	require.NoError(t, err)
	assert.Equal(t, "abc123", hash)

	f.Hash = "def456"
	f.Size = 100
	require.NoError(t, s.UpdateFile(f))
	hash, err = s.GetFileHash("src/main.go")
	require.NoError(t, err)
	assert.Equal(t, "def456", hash)

	require.NoError(t, s.DeleteFile("src/main.go"))
	_, err = s.GetFile("src/main.go")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetFile_NotFound(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	_, err := s.GetFile("nope.go")
	assert.ErrorIs(t, err, ErrNotFound)

	hash, err := s.GetFileHash("nope.go")
	require.NoError(t, err)
	assert.Empty(t, hash)

	exists, err := s.FileExists("nope.go")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestInsertFile_RejectsInvalidUTF8(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	_, err := s.InsertFile(&File{Path: "bad\xff\xfe.go", Language: "go", Hash: "x"})
	require.Error(t, err)

	// No partial row.
	var count int64
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM files").Scan(&count))
	assert.Zero(t, count)
}

func TestUpdateFileDescription(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	insertTestFile(t, s, "a.go")

	require.NoError(t, s.UpdateFileDescription("a.go", "entry point"))
	got, err := s.GetFile("a.go")
	require.NoError(t, err)
	assert.Equal(t, "entry point", got.Description)

	err = s.UpdateFileDescription("missing.go", "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

// =============================================================================
// Symbols
// =============================================================================

func TestSymbolRoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "pkg/util.go")

	sym := &Symbol{
		Name:         "Process",
		Kind:         KindFunction,
		FileID:       f.ID,
		Location:     Location{StartLine: 4, StartCol: 0, EndLine: 12, EndCol: 1, StartByte: 55, EndByte: 310},
		Signature:    ptr("func Process(in []byte) error"),
		DocComment:   ptr("Process validates and transforms input."),
		Visibility:   VisPublic,
		IsEntryPoint: false,
	}
	id, err := s.InsertSymbol(sym)
	require.NoError(t, err)

	got, err := s.GetSymbol(id)
	require.NoError(t, err)
	assert.Equal(t, "Process", got.Name)
	assert.Equal(t, KindFunction, got.Kind)
	assert.Equal(t, f.ID, got.FileID)
	assert.Equal(t, "pkg/util.go", got.FilePath)
	assert.Nil(t, got.ParentID)
	assert.Equal(t, sym.Location, got.Location)
	assert.Equal(t, sym.Signature, got.Signature)
	assert.Equal(t, sym.DocComment, got.DocComment)
	assert.Equal(t, VisPublic, got.Visibility)
	assert.False(t, got.IsEntryPoint)
}

func TestSymbolParentFixup(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "model.py")

	class := insertTestSymbol(t, s, f.ID, "C", KindClass)
	method := insertTestSymbol(t, s, f.ID, "run", KindMethod)

	fetched, err := s.GetSymbol(method.ID)
	require.NoError(t, err)
	fetched.ParentID = &class.ID
	require.NoError(t, s.UpdateSymbol(fetched))

	got, err := s.GetSymbol(method.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ParentID)
	assert.Equal(t, class.ID, *got.ParentID)
}

func TestDeleteFile_CascadesToSymbolsAndRefs(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	fa := insertTestFile(t, s, "a.go")
	fb := insertTestFile(t, s, "b.go")
	symA := insertTestSymbol(t, s, fa.ID, "alpha", KindFunction)
	symB := insertTestSymbol(t, s, fb.ID, "beta", KindFunction)

	require.NoError(t, s.InsertReference(&Reference{
		FromSymbolID: symB.ID, ToSymbolID: symA.ID, Kind: RefCall,
		Location: Location{StartByte: 7},
	}))

	require.NoError(t, s.DeleteFile("a.go"))

	syms, err := s.GetSymbolsForFile(fa.ID)
	require.NoError(t, err)
	assert.Empty(t, syms)

	// No reference may touch a's symbols anymore.
	refs, err := s.GetReferencesFrom(symB.ID)
	require.NoError(t, err)
	assert.Empty(t, refs)

	// b.go is untouched.
	got, err := s.GetSymbol(symB.ID)
	require.NoError(t, err)
	assert.Equal(t, "beta", got.Name)
}

func TestFindSymbolsByName_StableOrder(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	fa := insertTestFile(t, s, "a.go")
	fb := insertTestFile(t, s, "b.go")

	first := insertTestSymbol(t, s, fa.ID, "dup", KindFunction)
	second := insertTestSymbol(t, s, fb.ID, "dup", KindFunction)

	got, err := s.FindSymbolsByName("dup")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, first.ID, got[0].ID)
	assert.Equal(t, second.ID, got[1].ID)
}

// =============================================================================
// References
// =============================================================================

func TestReferences_DedupOnInsert(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "x.go")
	from := insertTestSymbol(t, s, f.ID, "caller", KindFunction)
	to := insertTestSymbol(t, s, f.ID, "callee", KindFunction)

	ref := Reference{
		FromSymbolID: from.ID, ToSymbolID: to.ID, Kind: RefCall,
		Location: Location{StartLine: 2, StartByte: 31, EndByte: 37},
	}
	require.NoError(t, s.InsertReference(&ref))
	require.NoError(t, s.InsertReference(&ref)) // same tuple → ignored

	count, err := s.GetReferenceCount(to.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// A different start byte is a distinct edge.
	ref.Location.StartByte = 99
	require.NoError(t, s.InsertReference(&ref))
	count, err = s.GetReferenceCount(to.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestReferenceDeletionRoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "x.go")
	from := insertTestSymbol(t, s, f.ID, "from", KindFunction)
	to := insertTestSymbol(t, s, f.ID, "to", KindFunction)

	require.NoError(t, s.InsertReferencesBatch([]Reference{
		{FromSymbolID: from.ID, ToSymbolID: to.ID, Kind: RefCall, Location: Location{StartByte: 1}},
		{FromSymbolID: from.ID, ToSymbolID: to.ID, Kind: RefFieldAccess, Location: Location{StartByte: 8}},
	}))

	require.NoError(t, s.DeleteReferencesForFile(f.ID))

	for _, sym := range []*Symbol{from, to} {
		refs, err := s.GetReferencesFrom(sym.ID)
		require.NoError(t, err)
		assert.Empty(t, refs)
	}
}

func TestCallersAndCallees(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "graph.go")
	a := insertTestSymbol(t, s, f.ID, "a", KindFunction)
	b := insertTestSymbol(t, s, f.ID, "b", KindFunction)
	c := insertTestSymbol(t, s, f.ID, "c", KindFunction)

	// a → b, c → b
	require.NoError(t, s.InsertReferencesBatch([]Reference{
		{FromSymbolID: a.ID, ToSymbolID: b.ID, Kind: RefCall, Location: Location{StartByte: 10}},
		{FromSymbolID: c.ID, ToSymbolID: b.ID, Kind: RefCall, Location: Location{StartByte: 20}},
	}))

	callers, err := s.GetCallers(b.ID)
	require.NoError(t, err)
	require.Len(t, callers, 2)
	assert.Equal(t, "a", callers[0].Name)
	assert.Equal(t, "c", callers[1].Name)
	// Full projection: file path and visibility present.
	assert.Equal(t, "graph.go", callers[0].FilePath)
	assert.Equal(t, VisPublic, callers[0].Visibility)

	callees, err := s.GetCallees(a.ID)
	require.NoError(t, err)
	require.Len(t, callees, 1)
	assert.Equal(t, "b", callees[0].Name)

	usage, err := s.GetSymbolUsage(b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), usage.ReferenceCount)
	assert.Len(t, usage.Callers, 2)
	assert.Empty(t, usage.Callees)
}

// =============================================================================
// FTS
// =============================================================================

func TestSearchSymbolsFTS_Reachability(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "handler.go")
	sym := insertTestSymbol(t, s, f.ID, "frobnicate", KindFunction)

	got, err := s.SearchSymbolsFTS("frobnicate", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, sym.ID, got[0].ID)
	assert.Equal(t, "handler.go", got[0].FilePath)
}

func TestSearchSymbolsFTS_SyncedOnDelete(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "gone.go")
	insertTestSymbol(t, s, f.ID, "vanish", KindFunction)

	require.NoError(t, s.DeleteSymbolsForFile(f.ID))

	got, err := s.SearchSymbolsFTS("vanish", 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearchFilesFTS(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	insertTestFile(t, s, "billing/invoice.go")
	insertTestFile(t, s, "auth/login.go")

	got, err := s.SearchFilesFTS("invoice", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "billing/invoice.go", got[0].Path)
}

// =============================================================================
// Status & tree
// =============================================================================

func TestStatusDefaultsAndUpsert(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	st, err := s.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, DefaultEmbeddingDimensions, st.EmbeddingDimensions)
	assert.Equal(t, DefaultEmbeddingModel, st.EmbeddingModel)
	assert.Empty(t, st.LastIndexed)

	st.EmbeddingDimensions = 1024
	st.EmbeddingModel = "custom/model"
	st.LastIndexed = "2026-08-01T00:00:00Z"
	require.NoError(t, s.UpdateStatus(st))
	// Upsert: a second write wins.
	st.EmbeddingDimensions = 512
	require.NoError(t, s.UpdateStatus(st))

	got, err := s.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, 512, got.EmbeddingDimensions)
	assert.Equal(t, "custom/model", got.EmbeddingModel)
	assert.Equal(t, "2026-08-01T00:00:00Z", got.LastIndexed)
}

func TestGetTree_TopLevelOnly(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "shapes.py")

	class := insertTestSymbol(t, s, f.ID, "Shape", KindClass)
	method := insertTestSymbol(t, s, f.ID, "area", KindMethod)
	fetched, err := s.GetSymbol(method.ID)
	require.NoError(t, err)
	fetched.ParentID = &class.ID
	require.NoError(t, s.UpdateSymbol(fetched))

	tree, err := s.GetTree()
	require.NoError(t, err)
	require.Len(t, tree.Files, 1)
	require.Len(t, tree.Files[0].Symbols, 1)
	assert.Equal(t, "Shape", tree.Files[0].Symbols[0].Name)
}

// =============================================================================
// Transactions
// =============================================================================

func TestTransactionRollback(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	require.NoError(t, s.Begin())
	f := &File{Path: "tx.go", Language: "go", Hash: "h"}
	_, err := s.InsertFile(f)
	require.NoError(t, err)
	require.NoError(t, s.Rollback())

	exists, err := s.FileExists("tx.go")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestTransactionCommit(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	require.NoError(t, s.Begin())
	_, err := s.InsertFile(&File{Path: "tx.go", Language: "go", Hash: "h"})
	require.NoError(t, err)
	require.NoError(t, s.Commit())

	exists, err := s.FileExists("tx.go")
	require.NoError(t, err)
	assert.True(t, exists)
}
