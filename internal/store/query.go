package store

import "fmt"

// VectorCandidate is one row of a kNN query joined against chunks.
type VectorCandidate struct {
	ChunkID  int64
	FilePath string
	Page     int
	Lang     string
	Text     string
	Distance float64
}

// KNN runs a compound CTE over vec_chunks: match query against vec_chunks
// with k=k, then join onto chunks, sorted by
// distance ascending.
func (s *Store) KNN(query []float32, k int) ([]VectorCandidate, error) {
	const q = `
		WITH matches AS (
			SELECT rowid, distance FROM vec_chunks
			WHERE embedding MATCH ? AND k = ?
			ORDER BY distance
		)
		SELECT c.id, c.file_path, c.page, COALESCE(c.lang, ''), c.text, m.distance
		FROM matches m
		JOIN chunks c ON c.id = m.rowid
		ORDER BY m.distance ASC
	`
	rows, err := s.db.Query(q, encodeVector(query), k)
	if err != nil {
		return nil, fmt.Errorf("knn query: %w", err)
	}
	defer rows.Close()

	var out []VectorCandidate
	for rows.Next() {
		var c VectorCandidate
		if err := rows.Scan(&c.ChunkID, &c.FilePath, &c.Page, &c.Lang, &c.Text, &c.Distance); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// BM25Rank is one (chunk rowid, 1-based BM25 rank) pair.
type BM25Rank struct {
	ChunkID int64
	Rank    int
}

// BM25 runs ftsQuery (already built by BuildFTSQuery) against chunks_fts,
// returning up to k chunk ids ranked by BM25 (best match first, rank 1).
// An empty ftsQuery returns (nil, nil) without querying.
func (s *Store) BM25(ftsQuery string, k int) ([]BM25Rank, error) {
	if ftsQuery == "" {
		return nil, nil
	}
	const q = `
		SELECT rowid, bm25(chunks_fts) AS score
		FROM chunks_fts
		WHERE chunks_fts MATCH ?
		ORDER BY score
		LIMIT ?
	`
	rows, err := s.db.Query(q, ftsQuery, k)
	if err != nil {
		return nil, fmt.Errorf("bm25 query: %w", err)
	}
	defer rows.Close()

	var out []BM25Rank
	rank := 1
	for rows.Next() {
		var id int64
		var score float64
		if err := rows.Scan(&id, &score); err != nil {
			return nil, err
		}
		out = append(out, BM25Rank{ChunkID: id, Rank: rank})
		rank++
	}
	return out, rows.Err()
}

// ChunkText returns chunk ids' text bodies, used by MMR to re-embed
// candidates in one batch.
func (s *Store) ChunkText(ids []int64) (map[int64]string, error) {
	out := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders := ""
	args := make([]any, len(ids))
	for i, id := range ids {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
		args[i] = id
	}
	rows, err := s.db.Query(fmt.Sprintf(`SELECT id, text FROM chunks WHERE id IN (%s)`, placeholders), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var text string
		if err := rows.Scan(&id, &text); err != nil {
			return nil, err
		}
		out[id] = text
	}
	return out, rows.Err()
}
