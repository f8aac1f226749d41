package store

import (
	"database/sql"
	"fmt"
	"strings"
)

// TargetKind distinguishes a literal file target from a folder target.
type TargetKind string

const (
	TargetKindFile   TargetKind = "file"
	TargetKindFolder TargetKind = "folder"
)

// NormalizeTargetKind case-insensitively normalizes a raw kind string to
// TargetKindFile or TargetKindFolder.
func NormalizeTargetKind(raw string) TargetKind {
	if strings.EqualFold(raw, string(TargetKindFolder)) {
		return TargetKindFolder
	}
	return TargetKindFile
}

// Target is one configured index source.
type Target struct {
	Path              string
	Kind              TargetKind
	IncludeSubfolders bool
	AddedAt           int64
}

// ListTargets returns every target row in insertion order. SaveTargets
// stamps a whole batch with one second-granular added_at, so rowid is the
// only column that still carries the caller's ordering.
func (s *Store) ListTargets() ([]Target, error) {
	rows, err := s.db.Query(`SELECT path, kind, include_subfolders, added_at FROM targets ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Target
	for rows.Next() {
		var t Target
		var kind string
		var includeSub int
		if err := rows.Scan(&t.Path, &kind, &includeSub, &t.AddedAt); err != nil {
			return nil, err
		}
		t.Kind = NormalizeTargetKind(kind)
		t.IncludeSubfolders = includeSub != 0
		out = append(out, t)
	}
	return out, rows.Err()
}

// SaveTargets replaces the entire target set: delete all, then insert the
// provided entries with addedAt.
func (s *Store) SaveTargets(targets []Target, addedAt int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM targets`); err != nil {
		return fmt.Errorf("clear targets: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO targets(path, kind, include_subfolders, added_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range targets {
		kind := NormalizeTargetKind(string(t.Kind))
		includeSub := 0
		if t.IncludeSubfolders {
			includeSub = 1
		}
		if _, err := stmt.Exec(t.Path, string(kind), includeSub, addedAt); err != nil {
			return fmt.Errorf("insert target %s: %w", t.Path, err)
		}
	}

	return tx.Commit()
}

// Prune deletes every indexed file whose path matches no target in
// targets. Matching is exact for File targets; for Folder
// targets, "direct parent" for non-recursive and "descendant of root" for
// recursive. An empty target set truncates the entire index. Returns the
// number of files removed.
func (s *Store) Prune(targets []Target) (int, error) {
	if len(targets) == 0 {
		n, err := s.countFiles()
		if err != nil {
			return 0, err
		}
		if err := s.resetContent(); err != nil {
			return 0, err
		}
		// resetContent clears the pinned meta keys too; the caller is
		// expected to re-pin them (via Open/migrateIfChanged) before the
		// next index run. The virtual tables are recreated lazily then.
		return n, nil
	}

	paths, err := s.AllFilePaths()
	if err != nil {
		return 0, err
	}

	var removed int
	for _, p := range paths {
		if matchesAnyTarget(p, targets) {
			continue
		}
		if err := s.DeleteFile(p); err != nil {
			return removed, fmt.Errorf("prune delete %s: %w", p, err)
		}
		removed++
	}
	return removed, nil
}

func (s *Store) countFiles() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM files`).Scan(&n)
	if err != nil && err != sql.ErrNoRows {
		return 0, err
	}
	return n, nil
}

// matchesAnyTarget checks a single file path against the target set.
func matchesAnyTarget(path string, targets []Target) bool {
	for _, t := range targets {
		switch t.Kind {
		case TargetKindFile:
			if path == t.Path {
				return true
			}
		case TargetKindFolder:
			if t.IncludeSubfolders {
				if strings.HasPrefix(path, ensureTrailingSlash(t.Path)) || path == t.Path {
					return true
				}
			} else if isDirectChild(path, t.Path) {
				return true
			}
		}
	}
	return false
}

func ensureTrailingSlash(p string) string {
	if strings.HasSuffix(p, "/") {
		return p
	}
	return p + "/"
}

func isDirectChild(path, dir string) bool {
	dir = strings.TrimSuffix(dir, "/")
	rest := strings.TrimPrefix(path, dir+"/")
	if rest == path {
		return false
	}
	return !strings.Contains(rest, "/")
}
