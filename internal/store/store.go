package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"unicode/utf8"

	_ "github.com/mattn/go-sqlite3"
)

// Sentinel errors. Callers distinguish these with errors.Is; everything
// else coming out of the store is a backend (storage) failure.
var (
	// ErrNotFound means the requested path or id has no row.
	ErrNotFound = errors.New("not found")
	// ErrSerialization means a row value could not be decoded.
	ErrSerialization = errors.New("serialization")
	// ErrSchemaTooNew means the database was written by a newer version
	// of this package and must not be opened.
	ErrSchemaTooNew = errors.New("schema version is newer than supported")
)

// Store is the SQLite data access layer. Writes are serialized behind a
// single writer lock; reads go straight to the connection (WAL gives
// readers snapshot isolation).
type Store struct {
	db *sql.DB

	// writeMu is the single-writer lock. It is held per write call, or
	// across an explicit Begin..Commit/Rollback span.
	writeMu sync.Mutex

	// txMu guards the tx pointer itself.
	txMu sync.Mutex
	tx   *sql.Tx
}

// Open opens (creating if needed) a SQLite database at dbPath, runs
// pending migrations, and refuses databases written by a newer schema.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for read-only ad hoc queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// writer returns the active transaction if one is open, else the db.
func (s *Store) writer() execer {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// lockWrite acquires the writer lock for a standalone write. When a
// transaction is open the lock is already held by Begin, and the write
// joins the transaction instead. Returns the unlock func.
func (s *Store) lockWrite() func() {
	s.txMu.Lock()
	inTx := s.tx != nil
	s.txMu.Unlock()
	if inTx {
		return func() {}
	}
	s.writeMu.Lock()
	return s.writeMu.Unlock
}

// Begin opens an explicit transaction and holds the writer lock until
// Commit or Rollback. There is no nesting: a Begin while a transaction is
// open waits for the writer lock until that transaction ends.
func (s *Store) Begin() error {
	s.writeMu.Lock()
	tx, err := s.db.Begin()
	if err != nil {
		s.writeMu.Unlock()
		return fmt.Errorf("begin: %w", err)
	}
	s.txMu.Lock()
	s.tx = tx
	s.txMu.Unlock()
	return nil
}

// Commit commits the open transaction and releases the writer lock.
func (s *Store) Commit() error {
	s.txMu.Lock()
	tx := s.tx
	s.tx = nil
	s.txMu.Unlock()
	if tx == nil {
		return fmt.Errorf("commit: no open transaction")
	}
	err := tx.Commit()
	s.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Rollback aborts the open transaction and releases the writer lock.
func (s *Store) Rollback() error {
	s.txMu.Lock()
	tx := s.tx
	s.tx = nil
	s.txMu.Unlock()
	if tx == nil {
		return fmt.Errorf("rollback: no open transaction")
	}
	err := tx.Rollback()
	s.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// validPath rejects paths that are not valid UTF-8: the schema stores
// paths as TEXT and a lossy conversion would corrupt the unique key.
func validPath(path string) error {
	if !utf8.ValidString(path) {
		return fmt.Errorf("path is not valid UTF-8")
	}
	return nil
}
