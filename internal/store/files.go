package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
)

// File is one tracked document's row.
type File struct {
	Path        string
	Kind        string
	Fingerprint string
	Size        int64
	MTime       int64
	LastIndexed int64
}

// Fingerprint computes a file's change fingerprint: SHA-256 over
// (path bytes, little-endian size, little-endian mtime). It is deliberately
// metadata-derived, not a content hash.
func Fingerprint(path string, size, mtime int64) string {
	h := sha256.New()
	h.Write([]byte(path))
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(size))
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(mtime))
	h.Write(buf[:])
	return hex.EncodeToString(h.Sum(nil))
}

// GetFile returns the stored file row for path, or (nil, nil) if absent.
func (s *Store) GetFile(path string) (*File, error) {
	var f File
	err := s.db.QueryRow(
		`SELECT path, kind, fingerprint, size, mtime, last_indexed FROM files WHERE path = ?`,
		path,
	).Scan(&f.Path, &f.Kind, &f.Fingerprint, &f.Size, &f.MTime, &f.LastIndexed)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get file %s: %w", path, err)
	}
	return &f, nil
}

// ChunkWrite is one chunk's content staged for persistence within a single
// file's transaction.
type ChunkWrite struct {
	Page       int
	ChunkIndex int
	Lang       string // "" if undetected
	Text       string
	Vector     []float32 // nil if this chunk's embedding was skipped
}

// ReplaceFile performs the full per-file transaction: delete the file's
// existing vector rows, FTS rows, and chunk rows
// (by the set of previously-owned chunk ids), upsert the file row, then
// insert the new chunks/FTS rows/vector rows, dropping entirely any chunk
// whose Vector is nil (its embedding could not be produced).
// now is the last-indexed timestamp (seconds since epoch).
//
// If chunks is empty, the file row is still written (a document that
// genuinely has no extractable text, as opposed to one whose chunks were
// all skipped by the embedding pipeline, which the indexer treats as an
// error instead).
func (s *Store) ReplaceFile(file File, chunks []ChunkWrite) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin file transaction: %w", err)
	}
	defer tx.Rollback()

	oldIDs, err := queryChunkIDs(tx, `SELECT id FROM chunks WHERE file_path = ?`, file.Path)
	if err != nil {
		return err
	}
	if err := deleteChunkRows(tx, oldIDs); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM chunks WHERE file_path = ?`, file.Path); err != nil {
		return fmt.Errorf("delete old chunks: %w", err)
	}

	if _, err := tx.Exec(
		`INSERT INTO files(path, kind, fingerprint, size, mtime, last_indexed)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
			kind=excluded.kind, fingerprint=excluded.fingerprint,
			size=excluded.size, mtime=excluded.mtime, last_indexed=excluded.last_indexed`,
		file.Path, file.Kind, file.Fingerprint, file.Size, file.MTime, file.LastIndexed,
	); err != nil {
		return fmt.Errorf("upsert file row: %w", err)
	}

	insertChunk, err := tx.Prepare(`INSERT INTO chunks(file_path, page, chunk_index, lang, text) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer insertChunk.Close()

	insertFTS, err := tx.Prepare(`INSERT INTO chunks_fts(rowid, text) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer insertFTS.Close()

	insertVec, err := tx.Prepare(`INSERT INTO vec_chunks(rowid, embedding) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer insertVec.Close()

	for _, c := range chunks {
		if c.Vector == nil {
			// A chunk whose embedding could not be produced is dropped
			// entirely, not just missing its FTS/vector row.
			continue
		}

		var lang any
		if c.Lang != "" {
			lang = c.Lang
		}
		res, err := insertChunk.Exec(file.Path, c.Page, c.ChunkIndex, lang, c.Text)
		if err != nil {
			return fmt.Errorf("insert chunk: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("get chunk id: %w", err)
		}

		if _, err := insertFTS.Exec(id, c.Text); err != nil {
			return fmt.Errorf("insert fts row: %w", err)
		}
		if _, err := insertVec.Exec(id, encodeVector(c.Vector)); err != nil {
			return fmt.Errorf("insert vector row: %w", err)
		}
	}

	return tx.Commit()
}

// DeleteFile removes path's file row and cascades to its chunks, FTS rows,
// and vector rows.
func (s *Store) DeleteFile(path string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	ids, err := queryChunkIDs(tx, `SELECT id FROM chunks WHERE file_path = ?`, path)
	if err != nil {
		return err
	}
	if err := deleteChunkRows(tx, ids); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM chunks WHERE file_path = ?`, path); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM files WHERE path = ?`, path); err != nil {
		return err
	}
	return tx.Commit()
}

// AllFilePaths returns every tracked file path, used by the prune scan.
func (s *Store) AllFilePaths() ([]string, error) {
	rows, err := s.db.Query(`SELECT path FROM files`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// queryChunkIDs returns the chunk rowids matching query/arg, within tx.
func queryChunkIDs(tx *sql.Tx, query, arg string) ([]int64, error) {
	rows, err := tx.Query(query, arg)
	if err != nil {
		return nil, fmt.Errorf("query chunk ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// deleteChunkRows removes the FTS and vector rows keyed by ids, the first
// two steps of the per-file write/delete transaction (and of prune).
func deleteChunkRows(tx *sql.Tx, ids []int64) error {
	for _, id := range ids {
		if _, err := tx.Exec(`DELETE FROM chunks_fts WHERE rowid = ?`, id); err != nil {
			return fmt.Errorf("delete fts row %d: %w", id, err)
		}
		if _, err := tx.Exec(`DELETE FROM vec_chunks WHERE rowid = ?`, id); err != nil {
			return fmt.Errorf("delete vector row %d: %w", id, err)
		}
	}
	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
