package store

import (
	"database/sql"
	"fmt"
)

const fileCols = `id, path, language, hash, size, description`

func scanFile(scanner interface{ Scan(...any) error }) (*File, error) {
	f := &File{}
	var desc sql.NullString
	err := scanner.Scan(&f.ID, &f.Path, &f.Language, &f.Hash, &f.Size, &desc)
	if err != nil {
		return nil, err
	}
	f.Description = desc.String
	return f, nil
}

// InsertFile inserts a new file row and returns its id. The path must be
// valid UTF-8 and not already present.
func (s *Store) InsertFile(f *File) (int64, error) {
	if err := validPath(f.Path); err != nil {
		return 0, fmt.Errorf("insert file %q: %w", f.Path, err)
	}
	unlock := s.lockWrite()
	defer unlock()

	res, err := s.writer().Exec(
		"INSERT INTO files (path, language, hash, size, description) VALUES (?, ?, ?, ?, ?)",
		f.Path, f.Language, f.Hash, f.Size, nullStr(f.Description),
	)
	if err != nil {
		return 0, fmt.Errorf("insert file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	f.ID = id
	return id, nil
}

// UpdateFile rewrites a file row in place (identity and path are stable;
// language, hash, size and description may change).
func (s *Store) UpdateFile(f *File) error {
	unlock := s.lockWrite()
	defer unlock()

	_, err := s.writer().Exec(
		"UPDATE files SET language = ?, hash = ?, size = ?, description = ? WHERE id = ?",
		f.Language, f.Hash, f.Size, nullStr(f.Description), f.ID,
	)
	if err != nil {
		return fmt.Errorf("update file: %w", err)
	}
	return nil
}

// UpdateFileDescription sets only the free-form description of a file.
func (s *Store) UpdateFileDescription(path, description string) error {
	unlock := s.lockWrite()
	defer unlock()

	res, err := s.writer().Exec(
		"UPDATE files SET description = ? WHERE path = ?", nullStr(description), path,
	)
	if err != nil {
		return fmt.Errorf("update file description: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("file %q: %w", path, ErrNotFound)
	}
	return nil
}

// DeleteFile removes a file row. References from or to the file's symbols
// go first, then the file's symbols, then the row itself.
func (s *Store) DeleteFile(path string) error {
	unlock := s.lockWrite()
	defer unlock()
	w := s.writer()

	f, err := s.getFileByPath(w, path)
	if err != nil {
		return err
	}
	if _, err := w.Exec(
		`DELETE FROM symbol_refs WHERE from_symbol_id IN (SELECT id FROM symbols WHERE file_id = ?)
		   OR to_symbol_id IN (SELECT id FROM symbols WHERE file_id = ?)`,
		f.ID, f.ID,
	); err != nil {
		return fmt.Errorf("delete refs for file: %w", err)
	}
	if _, err := w.Exec("DELETE FROM symbols WHERE file_id = ?", f.ID); err != nil {
		return fmt.Errorf("delete symbols for file: %w", err)
	}
	if _, err := w.Exec("DELETE FROM files WHERE id = ?", f.ID); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

func (s *Store) getFileByPath(q execer, path string) (*File, error) {
	f, err := scanFile(q.QueryRow("SELECT "+fileCols+" FROM files WHERE path = ?", path))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("file %q: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return f, nil
}

// GetFile returns the file row for path.
func (s *Store) GetFile(path string) (*File, error) {
	return s.getFileByPath(s.writer(), path)
}

// GetFileByID returns the file row for id.
func (s *Store) GetFileByID(id int64) (*File, error) {
	f, err := scanFile(s.writer().QueryRow("SELECT "+fileCols+" FROM files WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("file id %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("file by id: %w", err)
	}
	return f, nil
}

// FileExists reports whether a file row exists for path.
func (s *Store) FileExists(path string) (bool, error) {
	var count int64
	err := s.writer().QueryRow("SELECT COUNT(*) FROM files WHERE path = ?", path).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("file exists: %w", err)
	}
	return count > 0, nil
}

// GetFileHash returns the stored content hash for path, or ("", nil)
// when the file has never been indexed.
func (s *Store) GetFileHash(path string) (string, error) {
	var hash string
	err := s.writer().QueryRow("SELECT hash FROM files WHERE path = ?", path).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("file hash: %w", err)
	}
	return hash, nil
}

// AllFiles returns every file row ordered by path.
func (s *Store) AllFiles() ([]*File, error) {
	rows, err := s.writer().Query("SELECT " + fileCols + " FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("all files: %w", err)
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

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
