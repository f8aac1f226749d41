package store

import (
	"database/sql"
	"errors"
	"fmt"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS files (
	path          TEXT PRIMARY KEY,
	kind          TEXT NOT NULL,
	fingerprint   TEXT NOT NULL,
	size          INTEGER NOT NULL,
	mtime         INTEGER NOT NULL,
	last_indexed  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS chunks (
	id          INTEGER PRIMARY KEY,
	file_path   TEXT NOT NULL REFERENCES files(path) ON DELETE CASCADE,
	page        INTEGER NOT NULL,
	chunk_index INTEGER NOT NULL,
	lang        TEXT,
	text        TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chunks_file_path ON chunks(file_path);

CREATE TABLE IF NOT EXISTS targets (
	path               TEXT NOT NULL,
	kind               TEXT NOT NULL,
	include_subfolders INTEGER NOT NULL DEFAULT 0,
	added_at           INTEGER NOT NULL,
	PRIMARY KEY (path, kind)
);
`

// ensureSchema creates the core tables (idempotent) and the virtual tables
// if they don't already exist. The virtual tables' dimension is fixed at
// creation time; migrateIfChanged drops and recreates them when the pinned
// dimension changes.
func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("create core schema: %w", err)
	}

	dim, err := s.metaInt("embedding_dim")
	if err != nil {
		return err
	}
	if dim > 0 {
		if err := s.createVirtualTables(dim); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) createVirtualTables(dim int) error {
	ftsDDL := `CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
		text, content='chunks', content_rowid='id'
	)`
	if _, err := s.db.Exec(ftsDDL); err != nil {
		return fmt.Errorf("create chunks_fts: %w", err)
	}

	vecDDL := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vec_chunks USING vec0(
			rowid INTEGER PRIMARY KEY,
			embedding FLOAT[%d] distance_metric=cosine
		)`, dim)
	if _, err := s.db.Exec(vecDDL); err != nil {
		return fmt.Errorf("create vec_chunks: %w", err)
	}
	return nil
}

func (s *Store) dropVirtualTables() error {
	for _, stmt := range []string{
		`DROP TABLE IF EXISTS chunks_fts`,
		`DROP TABLE IF EXISTS vec_chunks`,
	} {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("drop virtual table: %w", err)
		}
	}
	return nil
}

// migrateIfChanged compares the persisted meta values against params and,
// if any of embedding_dim/chunk_size/chunk_overlap differs, resets all
// content: drop the virtual tables,
// delete all chunks and files, delete the three meta keys, then recreate
// the virtual tables with the new dimension and persist the new meta
// values. This is the only supported migration.
func (s *Store) migrateIfChanged(params Params) error {
	storedDim, err := s.metaInt("embedding_dim")
	if err != nil {
		return err
	}
	storedChunkSize, err := s.metaInt("chunk_size")
	if err != nil {
		return err
	}
	storedOverlap, err := s.metaInt("chunk_overlap")
	if err != nil {
		return err
	}

	changed := storedDim != 0 && (storedDim != params.EmbeddingDim ||
		storedChunkSize != params.ChunkSize ||
		storedOverlap != params.ChunkOverlap)
	firstUse := storedDim == 0

	if changed {
		if err := s.resetContent(); err != nil {
			return fmt.Errorf("reset content on parameter change: %w", err)
		}
	}

	if changed || firstUse {
		if err := s.createVirtualTables(params.EmbeddingDim); err != nil {
			return err
		}
		if err := s.setMetaInt("embedding_dim", params.EmbeddingDim); err != nil {
			return err
		}
		if err := s.setMetaInt("chunk_size", params.ChunkSize); err != nil {
			return err
		}
		if err := s.setMetaInt("chunk_overlap", params.ChunkOverlap); err != nil {
			return err
		}
	}

	return nil
}

// resetContent drops the virtual tables and deletes all chunks, files, and
// the three pinning meta keys. Called only by migrateIfChanged and by the
// prune path when the target set becomes empty.
func (s *Store) resetContent() error {
	if err := s.dropVirtualTables(); err != nil {
		return err
	}
	if _, err := s.db.Exec(`DELETE FROM chunks`); err != nil {
		return err
	}
	if _, err := s.db.Exec(`DELETE FROM files`); err != nil {
		return err
	}
	if _, err := s.db.Exec(`DELETE FROM meta WHERE key IN ('embedding_dim','chunk_size','chunk_overlap')`); err != nil {
		return err
	}
	return nil
}

func (s *Store) metaInt(key string) (int, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("read meta %s: %w", key, err)
	}
	var n int
	if _, err := fmt.Sscanf(value, "%d", &n); err != nil {
		return 0, fmt.Errorf("parse meta %s=%q: %w", key, value, err)
	}
	return n, nil
}

func (s *Store) setMetaInt(key string, value int) error {
	_, err := s.db.Exec(
		`INSERT INTO meta(key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, fmt.Sprintf("%d", value))
	return err
}
