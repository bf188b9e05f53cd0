package store

import (
	"database/sql"
	"fmt"
)

// symbolCols is the full projection for symbol reads, joined with the
// owning file's path. Every read goes through this list; shorter
// projections invite silently zeroed fields.
const symbolCols = `s.id, s.name, s.kind, s.file_id, s.parent_id,
	s.start_line, s.start_col, s.end_line, s.end_col, s.start_byte, s.end_byte,
	s.signature, s.description, s.doc_comment, s.visibility, s.is_entry_point,
	f.path`

func scanSymbol(scanner interface{ Scan(...any) error }) (*Symbol, error) {
	sym := &Symbol{}
	var kind, visibility string
	var entry int64
	var sig, desc, doc sql.NullString
	err := scanner.Scan(
		&sym.ID, &sym.Name, &kind, &sym.FileID, &sym.ParentID,
		&sym.Location.StartLine, &sym.Location.StartCol,
		&sym.Location.EndLine, &sym.Location.EndCol,
		&sym.Location.StartByte, &sym.Location.EndByte,
		&sig, &desc, &doc, &visibility, &entry,
		&sym.FilePath,
	)
	if err != nil {
		return nil, err
	}
	sym.Kind = ParseSymbolKind(kind)
	sym.Visibility = ParseVisibility(visibility)
	sym.IsEntryPoint = entry != 0
	sym.Signature = nullStrPtr(sig)
	sym.Description = nullStrPtr(desc)
	sym.DocComment = nullStrPtr(doc)
	return sym, nil
}

// InsertSymbol inserts a symbol row and returns its id. Insertion order
// matters to callers: the k-th inserted symbol's id is the k-th slot of
// the file's index-space used for parent fixup.
func (s *Store) InsertSymbol(sym *Symbol) (int64, error) {
	unlock := s.lockWrite()
	defer unlock()

	res, err := s.writer().Exec(
		`INSERT INTO symbols (name, kind, file_id, parent_id,
			start_line, start_col, end_line, end_col, start_byte, end_byte,
			signature, description, doc_comment, visibility, is_entry_point)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sym.Name, string(sym.Kind), sym.FileID, sym.ParentID,
		sym.Location.StartLine, sym.Location.StartCol,
		sym.Location.EndLine, sym.Location.EndCol,
		sym.Location.StartByte, sym.Location.EndByte,
		sym.Signature, sym.Description, sym.DocComment,
		string(sym.Visibility), boolToInt(sym.IsEntryPoint),
	)
	if err != nil {
		return 0, fmt.Errorf("insert symbol: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	sym.ID = id
	return id, nil
}

// UpdateSymbol rewrites a symbol row. Used for parent fixup after bulk
// insert, so parent_id is included.
func (s *Store) UpdateSymbol(sym *Symbol) error {
	unlock := s.lockWrite()
	defer unlock()

	_, err := s.writer().Exec(
		`UPDATE symbols SET name = ?, kind = ?, parent_id = ?,
			start_line = ?, start_col = ?, end_line = ?, end_col = ?,
			start_byte = ?, end_byte = ?,
			signature = ?, description = ?, doc_comment = ?,
			visibility = ?, is_entry_point = ?
		 WHERE id = ?`,
		sym.Name, string(sym.Kind), sym.ParentID,
		sym.Location.StartLine, sym.Location.StartCol,
		sym.Location.EndLine, sym.Location.EndCol,
		sym.Location.StartByte, sym.Location.EndByte,
		sym.Signature, sym.Description, sym.DocComment,
		string(sym.Visibility), boolToInt(sym.IsEntryPoint),
		sym.ID,
	)
	if err != nil {
		return fmt.Errorf("update symbol: %w", err)
	}
	return nil
}

// DeleteSymbolsForFile removes every symbol owned by a file.
func (s *Store) DeleteSymbolsForFile(fileID int64) error {
	unlock := s.lockWrite()
	defer unlock()

	if _, err := s.writer().Exec("DELETE FROM symbols WHERE file_id = ?", fileID); err != nil {
		return fmt.Errorf("delete symbols for file: %w", err)
	}
	return nil
}

func (s *Store) querySymbols(query string, args ...any) ([]Symbol, error) {
	rows, err := s.writer().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer rows.Close()
	var symbols []Symbol
	for rows.Next() {
		sym, err := scanSymbol(rows)
		if err != nil {
			return nil, fmt.Errorf("scan symbol: %w: %w", ErrSerialization, err)
		}
		symbols = append(symbols, *sym)
	}
	return symbols, rows.Err()
}

// GetSymbol returns a symbol by id, with its file path populated.
func (s *Store) GetSymbol(id int64) (*Symbol, error) {
	sym, err := scanSymbol(s.writer().QueryRow(
		"SELECT "+symbolCols+" FROM symbols s JOIN files f ON f.id = s.file_id WHERE s.id = ?", id,
	))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("symbol id %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("symbol by id: %w", err)
	}
	return sym, nil
}

// GetSymbolsForFile returns all symbols of a file in insertion order.
func (s *Store) GetSymbolsForFile(fileID int64) ([]Symbol, error) {
	return s.querySymbols(
		"SELECT "+symbolCols+" FROM symbols s JOIN files f ON f.id = s.file_id WHERE s.file_id = ? ORDER BY s.id",
		fileID,
	)
}

// GetAllSymbols returns every symbol in the store.
func (s *Store) GetAllSymbols() ([]Symbol, error) {
	return s.querySymbols(
		"SELECT " + symbolCols + " FROM symbols s JOIN files f ON f.id = s.file_id ORDER BY s.id",
	)
}

// FindSymbolsByName returns symbols matching name exactly, ordered by id
// for stable tie-breaking downstream.
func (s *Store) FindSymbolsByName(name string) ([]Symbol, error) {
	return s.querySymbols(
		"SELECT "+symbolCols+" FROM symbols s JOIN files f ON f.id = s.file_id WHERE s.name = ? ORDER BY s.id",
		name,
	)
}

func nullStrPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
