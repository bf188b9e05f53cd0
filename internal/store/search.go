package store

import (
	"fmt"
)

// SearchSymbolsFTS runs an FTS5 MATCH query against symbol names,
// descriptions and doc comments, ranked by relevance.
func (s *Store) SearchSymbolsFTS(query string, limit int) ([]Symbol, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.querySymbols(
		`SELECT `+symbolCols+`
		 FROM symbols s
		 JOIN symbols_fts fts ON fts.rowid = s.id
		 JOIN files f ON f.id = s.file_id
		 WHERE symbols_fts MATCH ?
		 ORDER BY rank
		 LIMIT ?`,
		query, limit,
	)
}

// SearchFilesFTS runs an FTS5 MATCH query against file paths and
// descriptions, ranked by relevance.
func (s *Store) SearchFilesFTS(query string, limit int) ([]*File, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.writer().Query(
		`SELECT f.id, f.path, f.language, f.hash, f.size, f.description
		 FROM files f
		 JOIN files_fts fts ON fts.rowid = f.id
		 WHERE files_fts MATCH ?
		 ORDER BY rank
		 LIMIT ?`,
		query, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search files: %w", err)
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w: %w", ErrSerialization, err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}
