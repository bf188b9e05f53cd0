package store

import (
	"fmt"
	"strconv"
)

// Defaults carried as opaque index metadata for downstream consumers.
const (
	DefaultEmbeddingDimensions = 768
	DefaultEmbeddingModel      = "jinaai/jina-embeddings-v2-base-code"
)

func (s *Store) statusValue(key string) (string, bool) {
	var v string
	err := s.writer().QueryRow("SELECT value FROM status WHERE key = ?", key).Scan(&v)
	if err != nil {
		return "", false
	}
	return v, true
}

// GetStatus returns live counters plus the persisted metadata rows.
func (s *Store) GetStatus() (*Status, error) {
	var files, symbols int64
	if err := s.writer().QueryRow("SELECT COUNT(*) FROM files").Scan(&files); err != nil {
		return nil, fmt.Errorf("status: count files: %w", err)
	}
	if err := s.writer().QueryRow("SELECT COUNT(*) FROM symbols").Scan(&symbols); err != nil {
		return nil, fmt.Errorf("status: count symbols: %w", err)
	}

	st := &Status{
		IndexedFiles:        files,
		IndexedSymbols:      symbols,
		EmbeddingDimensions: DefaultEmbeddingDimensions,
		EmbeddingModel:      DefaultEmbeddingModel,
	}
	if v, ok := s.statusValue("embedding_dimensions"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			st.EmbeddingDimensions = n
		}
	}
	if v, ok := s.statusValue("embedding_model"); ok {
		st.EmbeddingModel = v
	}
	if v, ok := s.statusValue("last_indexed"); ok {
		st.LastIndexed = v
	}

	// Best-effort storage size from page stats.
	var pageCount, pageSize int64
	if err := s.writer().QueryRow("PRAGMA page_count").Scan(&pageCount); err == nil {
		if err := s.writer().QueryRow("PRAGMA page_size").Scan(&pageSize); err == nil {
			st.StorageSizeBytes = pageCount * pageSize
		}
	}
	return st, nil
}

// UpdateStatus upserts the metadata rows. Last writer wins, ordered by
// the writer lock.
func (s *Store) UpdateStatus(st *Status) error {
	unlock := s.lockWrite()
	defer unlock()
	w := s.writer()

	upsert := func(key, value string) error {
		_, err := w.Exec("INSERT OR REPLACE INTO status (key, value) VALUES (?, ?)", key, value)
		return err
	}
	if err := upsert("embedding_dimensions", strconv.Itoa(st.EmbeddingDimensions)); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if err := upsert("embedding_model", st.EmbeddingModel); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if st.LastIndexed != "" {
		if err := upsert("last_indexed", st.LastIndexed); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
	}
	return nil
}

// GetTree returns every file with its top-level symbols ordered by
// position, for tree-style rendering.
func (s *Store) GetTree() (*Tree, error) {
	files, err := s.AllFiles()
	if err != nil {
		return nil, err
	}

	tree := &Tree{}
	for _, f := range files {
		rows, err := s.writer().Query(
			"SELECT id, name, kind FROM symbols WHERE file_id = ? AND parent_id IS NULL ORDER BY start_line",
			f.ID,
		)
		if err != nil {
			return nil, fmt.Errorf("tree symbols: %w", err)
		}
		node := FileNode{Path: f.Path, Language: f.Language}
		for rows.Next() {
			var sn SymbolNode
			var kind string
			if err := rows.Scan(&sn.ID, &sn.Name, &kind); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan tree symbol: %w: %w", ErrSerialization, err)
			}
			sn.Kind = ParseSymbolKind(kind)
			node.Symbols = append(node.Symbols, sn)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
		tree.Files = append(tree.Files, node)
	}
	return tree, nil
}
