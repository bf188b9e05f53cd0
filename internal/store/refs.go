package store

import (
	"fmt"
)

const refCols = `from_symbol_id, to_symbol_id, kind,
	start_line, start_col, end_line, end_col, start_byte, end_byte`

func scanReference(scanner interface{ Scan(...any) error }) (*Reference, error) {
	r := &Reference{}
	var kind string
	err := scanner.Scan(
		&r.FromSymbolID, &r.ToSymbolID, &kind,
		&r.Location.StartLine, &r.Location.StartCol,
		&r.Location.EndLine, &r.Location.EndCol,
		&r.Location.StartByte, &r.Location.EndByte,
	)
	if err != nil {
		return nil, err
	}
	r.Kind = ParseReferenceKind(kind)
	return r, nil
}

const insertRefSQL = `INSERT OR IGNORE INTO symbol_refs
	(from_symbol_id, to_symbol_id, kind,
	 start_line, start_col, end_line, end_col, start_byte, end_byte)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

// InsertReference inserts a single reference edge. Duplicate edges
// (same from, to, kind, start_byte) are ignored.
func (s *Store) InsertReference(r *Reference) error {
	unlock := s.lockWrite()
	defer unlock()

	_, err := s.writer().Exec(insertRefSQL,
		r.FromSymbolID, r.ToSymbolID, string(r.Kind),
		r.Location.StartLine, r.Location.StartCol,
		r.Location.EndLine, r.Location.EndCol,
		r.Location.StartByte, r.Location.EndByte,
	)
	if err != nil {
		return fmt.Errorf("insert reference: %w", err)
	}
	return nil
}

// InsertReferencesBatch inserts a batch of edges atomically: when no
// explicit transaction is open it wraps the batch in its own, so either
// all rows land or none.
func (s *Store) InsertReferencesBatch(refs []Reference) error {
	if len(refs) == 0 {
		return nil
	}
	unlock := s.lockWrite()
	defer unlock()

	s.txMu.Lock()
	inTx := s.tx != nil
	s.txMu.Unlock()

	if inTx {
		return insertRefs(s.writer(), refs)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("insert references: begin: %w", err)
	}
	if err := insertRefs(tx, refs); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert references: commit: %w", err)
	}
	return nil
}

func insertRefs(w execer, refs []Reference) error {
	for _, r := range refs {
		if _, err := w.Exec(insertRefSQL,
			r.FromSymbolID, r.ToSymbolID, string(r.Kind),
			r.Location.StartLine, r.Location.StartCol,
			r.Location.EndLine, r.Location.EndCol,
			r.Location.StartByte, r.Location.EndByte,
		); err != nil {
			return fmt.Errorf("insert reference: %w", err)
		}
	}
	return nil
}

// DeleteReferencesForFile removes every edge whose from_symbol lives in
// the given file. Run before re-indexing a file so its outgoing edges
// are rebuilt from scratch.
func (s *Store) DeleteReferencesForFile(fileID int64) error {
	unlock := s.lockWrite()
	defer unlock()

	_, err := s.writer().Exec(
		"DELETE FROM symbol_refs WHERE from_symbol_id IN (SELECT id FROM symbols WHERE file_id = ?)",
		fileID,
	)
	if err != nil {
		return fmt.Errorf("delete references for file: %w", err)
	}
	return nil
}

func (s *Store) queryReferences(query string, args ...any) ([]Reference, error) {
	rows, err := s.writer().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query references: %w", err)
	}
	defer rows.Close()
	var refs []Reference
	for rows.Next() {
		r, err := scanReference(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reference: %w: %w", ErrSerialization, err)
		}
		refs = append(refs, *r)
	}
	return refs, rows.Err()
}

// GetReferencesTo returns all edges pointing at a symbol.
func (s *Store) GetReferencesTo(id int64) ([]Reference, error) {
	return s.queryReferences(
		"SELECT "+refCols+" FROM symbol_refs WHERE to_symbol_id = ?", id,
	)
}

// GetReferencesFrom returns all edges originating in a symbol.
func (s *Store) GetReferencesFrom(id int64) ([]Reference, error) {
	return s.queryReferences(
		"SELECT "+refCols+" FROM symbol_refs WHERE from_symbol_id = ?", id,
	)
}

// GetCallers returns the distinct symbols that reference id.
func (s *Store) GetCallers(id int64) ([]Symbol, error) {
	return s.querySymbols(
		`SELECT DISTINCT `+symbolCols+`
		 FROM symbols s
		 JOIN symbol_refs r ON r.from_symbol_id = s.id
		 JOIN files f ON f.id = s.file_id
		 WHERE r.to_symbol_id = ?
		 ORDER BY s.id`,
		id,
	)
}

// GetCallees returns the distinct symbols referenced from id.
func (s *Store) GetCallees(id int64) ([]Symbol, error) {
	return s.querySymbols(
		`SELECT DISTINCT `+symbolCols+`
		 FROM symbols s
		 JOIN symbol_refs r ON r.to_symbol_id = s.id
		 JOIN files f ON f.id = s.file_id
		 WHERE r.from_symbol_id = ?
		 ORDER BY s.id`,
		id,
	)
}

// GetReferenceCount returns how many edges point at a symbol.
func (s *Store) GetReferenceCount(id int64) (int64, error) {
	var count int64
	err := s.writer().QueryRow(
		"SELECT COUNT(*) FROM symbol_refs WHERE to_symbol_id = ?", id,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("reference count: %w", err)
	}
	return count, nil
}

// GetSymbolUsage returns a symbol together with its reference count,
// callers and callees.
func (s *Store) GetSymbolUsage(id int64) (*SymbolUsage, error) {
	sym, err := s.GetSymbol(id)
	if err != nil {
		return nil, err
	}
	count, err := s.GetReferenceCount(id)
	if err != nil {
		return nil, err
	}
	callers, err := s.GetCallers(id)
	if err != nil {
		return nil, err
	}
	callees, err := s.GetCallees(id)
	if err != nil {
		return nil, err
	}
	return &SymbolUsage{
		Symbol:         *sym,
		ReferenceCount: count,
		Callers:        callers,
		Callees:        callees,
	}, nil
}
