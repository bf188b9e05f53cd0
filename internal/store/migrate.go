package store

import (
	"fmt"
)

// A migration is one schema step. Ids are dense and ascending; applied
// ids are recorded in schema_migrations so reruns are no-ops.
type migration struct {
	id  int
	sql string
}

var migrations = []migration{
	{1, `
CREATE TABLE IF NOT EXISTS files (
  id          INTEGER PRIMARY KEY,
  path        TEXT NOT NULL UNIQUE,
  language    TEXT NOT NULL,
  hash        TEXT NOT NULL,
  size        INTEGER NOT NULL DEFAULT 0,
  description TEXT
);

CREATE TABLE IF NOT EXISTS symbols (
  id             INTEGER PRIMARY KEY,
  name           TEXT NOT NULL,
  kind           TEXT NOT NULL,
  file_id        INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
  parent_id      INTEGER REFERENCES symbols(id),
  start_line     INTEGER NOT NULL,
  start_col      INTEGER NOT NULL,
  end_line       INTEGER NOT NULL,
  end_col        INTEGER NOT NULL,
  start_byte     INTEGER NOT NULL,
  end_byte       INTEGER NOT NULL,
  signature      TEXT,
  description    TEXT,
  doc_comment    TEXT,
  visibility     TEXT NOT NULL DEFAULT 'unknown',
  is_entry_point INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS symbol_refs (
  from_symbol_id INTEGER NOT NULL REFERENCES symbols(id) ON DELETE CASCADE,
  to_symbol_id   INTEGER NOT NULL REFERENCES symbols(id),
  kind           TEXT NOT NULL,
  start_line     INTEGER NOT NULL,
  start_col      INTEGER NOT NULL,
  end_line       INTEGER NOT NULL,
  end_col        INTEGER NOT NULL,
  start_byte     INTEGER NOT NULL,
  end_byte       INTEGER NOT NULL,
  UNIQUE(from_symbol_id, to_symbol_id, kind, start_byte)
);

CREATE TABLE IF NOT EXISTS status (
  key   TEXT PRIMARY KEY,
  value TEXT
);

CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file_id);
CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);
CREATE INDEX IF NOT EXISTS idx_symbols_parent ON symbols(parent_id);
CREATE INDEX IF NOT EXISTS idx_refs_from ON symbol_refs(from_symbol_id);
CREATE INDEX IF NOT EXISTS idx_refs_to ON symbol_refs(to_symbol_id);
`},
	{2, `
CREATE VIRTUAL TABLE IF NOT EXISTS symbols_fts USING fts5(
  name, description, doc_comment,
  content='symbols', content_rowid='id'
);

CREATE TRIGGER IF NOT EXISTS symbols_fts_ai AFTER INSERT ON symbols BEGIN
  INSERT INTO symbols_fts(rowid, name, description, doc_comment)
  VALUES (new.id, new.name, new.description, new.doc_comment);
END;

CREATE TRIGGER IF NOT EXISTS symbols_fts_ad AFTER DELETE ON symbols BEGIN
  INSERT INTO symbols_fts(symbols_fts, rowid, name, description, doc_comment)
  VALUES ('delete', old.id, old.name, old.description, old.doc_comment);
END;

CREATE TRIGGER IF NOT EXISTS symbols_fts_au AFTER UPDATE ON symbols BEGIN
  INSERT INTO symbols_fts(symbols_fts, rowid, name, description, doc_comment)
  VALUES ('delete', old.id, old.name, old.description, old.doc_comment);
  INSERT INTO symbols_fts(rowid, name, description, doc_comment)
  VALUES (new.id, new.name, new.description, new.doc_comment);
END;

CREATE VIRTUAL TABLE IF NOT EXISTS files_fts USING fts5(
  path, description,
  content='files', content_rowid='id'
);

CREATE TRIGGER IF NOT EXISTS files_fts_ai AFTER INSERT ON files BEGIN
  INSERT INTO files_fts(rowid, path, description)
  VALUES (new.id, new.path, new.description);
END;

CREATE TRIGGER IF NOT EXISTS files_fts_ad AFTER DELETE ON files BEGIN
  INSERT INTO files_fts(files_fts, rowid, path, description)
  VALUES ('delete', old.id, old.path, old.description);
END;

CREATE TRIGGER IF NOT EXISTS files_fts_au AFTER UPDATE ON files BEGIN
  INSERT INTO files_fts(files_fts, rowid, path, description)
  VALUES ('delete', old.id, old.path, old.description);
  INSERT INTO files_fts(rowid, path, description)
  VALUES (new.id, new.path, new.description);
END;
`},
}

// Migrate brings the database to the current schema. Each pending
// migration runs in its own transaction and is recorded on success.
// Databases whose recorded version exceeds what this build knows are
// refused (no partial-open state).
func (s *Store) Migrate() error {
	if _, err := s.db.Exec(
		`CREATE TABLE IF NOT EXISTS schema_migrations (
		   id         INTEGER PRIMARY KEY,
		   applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		 )`,
	); err != nil {
		return fmt.Errorf("migrate: init: %w", err)
	}

	var applied int
	if err := s.db.QueryRow(
		"SELECT COALESCE(MAX(id), 0) FROM schema_migrations",
	).Scan(&applied); err != nil {
		return fmt.Errorf("migrate: read version: %w", err)
	}

	latest := migrations[len(migrations)-1].id
	if applied > latest {
		return fmt.Errorf("migrate: database at version %d, supported max %d: %w",
			applied, latest, ErrSchemaTooNew)
	}

	for _, m := range migrations {
		if m.id <= applied {
			continue
		}
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("migrate %d: begin: %w", m.id, err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate %d: %w", m.id, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (id) VALUES (?)", m.id); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate %d: record: %w", m.id, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migrate %d: commit: %w", m.id, err)
		}
	}
	return nil
}

// SchemaVersion returns the highest applied migration id.
func (s *Store) SchemaVersion() (int, error) {
	var v int
	err := s.db.QueryRow("SELECT COALESCE(MAX(id), 0) FROM schema_migrations").Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("schema version: %w", err)
	}
	return v, nil
}
