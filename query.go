package adex

import (
	"errors"

	"github.com/jward/adex/internal/store"
)

// QueryBuilder is the read-side API over an indexed store.
type QueryBuilder struct {
	store *store.Store
}

// Symbol returns a symbol by id with its file path populated.
func (q *QueryBuilder) Symbol(id int64) (*Symbol, error) {
	sym, err := q.store.GetSymbol(id)
	return sym, wrapStoreErr(err)
}

// SymbolsByName returns symbols matching name exactly.
func (q *QueryBuilder) SymbolsByName(name string) ([]Symbol, error) {
	syms, err := q.store.FindSymbolsByName(name)
	return syms, wrapStoreErr(err)
}

// File returns the file row for a path.
func (q *QueryBuilder) File(path string) (*File, error) {
	f, err := q.store.GetFile(path)
	return f, wrapStoreErr(err)
}

// SymbolsInFile returns all symbols of the file at path.
func (q *QueryBuilder) SymbolsInFile(path string) ([]Symbol, error) {
	f, err := q.store.GetFile(path)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	syms, err := q.store.GetSymbolsForFile(f.ID)
	return syms, wrapStoreErr(err)
}

// Callers returns the symbols referencing id.
func (q *QueryBuilder) Callers(id int64) ([]Symbol, error) {
	syms, err := q.store.GetCallers(id)
	return syms, wrapStoreErr(err)
}

// Callees returns the symbols referenced from id.
func (q *QueryBuilder) Callees(id int64) ([]Symbol, error) {
	syms, err := q.store.GetCallees(id)
	return syms, wrapStoreErr(err)
}

// ReferencesTo returns the raw edges pointing at id.
func (q *QueryBuilder) ReferencesTo(id int64) ([]Reference, error) {
	refs, err := q.store.GetReferencesTo(id)
	return refs, wrapStoreErr(err)
}

// ReferencesFrom returns the raw edges originating in id.
func (q *QueryBuilder) ReferencesFrom(id int64) ([]Reference, error) {
	refs, err := q.store.GetReferencesFrom(id)
	return refs, wrapStoreErr(err)
}

// Usage returns a symbol with its reference count, callers and callees.
func (q *QueryBuilder) Usage(id int64) (*SymbolUsage, error) {
	u, err := q.store.GetSymbolUsage(id)
	return u, wrapStoreErr(err)
}

// SearchSymbols runs a full-text query over symbol names, descriptions
// and doc comments.
func (q *QueryBuilder) SearchSymbols(query string, limit int) ([]Symbol, error) {
	if query == "" {
		return nil, &Error{Kind: KindInvalidArgument, Msg: "empty search query"}
	}
	syms, err := q.store.SearchSymbolsFTS(query, limit)
	return syms, wrapStoreErr(err)
}

// SearchFiles runs a full-text query over file paths and descriptions.
func (q *QueryBuilder) SearchFiles(query string, limit int) ([]*File, error) {
	if query == "" {
		return nil, &Error{Kind: KindInvalidArgument, Msg: "empty search query"}
	}
	files, err := q.store.SearchFilesFTS(query, limit)
	return files, wrapStoreErr(err)
}

// Tree returns the file → top-level-symbols aggregate.
func (q *QueryBuilder) Tree() (*Tree, error) {
	t, err := q.store.GetTree()
	return t, wrapStoreErr(err)
}

// Status returns index counters and metadata.
func (q *QueryBuilder) Status() (*Status, error) {
	st, err := q.store.GetStatus()
	return st, wrapStoreErr(err)
}

// FunctionSpans returns the line extents of every function-like symbol
// in the file at path. The linter's max-function-length check feeds on
// this; an unindexed path yields (nil, nil) so the check degrades to a
// no-op.
func (q *QueryBuilder) FunctionSpans(path string) ([][2]int, error) {
	f, err := q.store.GetFile(path)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	syms, err := q.store.GetSymbolsForFile(f.ID)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	var spans [][2]int
	for _, sym := range syms {
		if sym.Kind == store.KindFunction || sym.Kind == store.KindMethod {
			spans = append(spans, [2]int{sym.Location.StartLine, sym.Location.EndLine})
		}
	}
	return spans, nil
}

// wrapStoreErr translates store sentinels into the public taxonomy.
func wrapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return &Error{Kind: KindNotFound, Msg: err.Error(), Err: err}
	case errors.Is(err, store.ErrSerialization):
		return &Error{Kind: KindSerialization, Msg: err.Error(), Err: err}
	default:
		return &Error{Kind: KindStorage, Msg: err.Error(), Err: err}
	}
}
