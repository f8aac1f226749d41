// Package store provides a typed interface over the embedded SQL database
// (library.sqlite3) augmented with a vector virtual table (cosine kNN) and
// an FTS virtual table (BM25). Uses github.com/mattn/go-sqlite3 rather
// than modernc.org/sqlite because only the CGO driver supports
// LoadExtension for the vector index.
package store

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/mattn/go-sqlite3"

	localerrors "github.com/localdocs/localdocs/internal/errors"
)

// vectorExtensionCandidates is the search path of candidate vector-extension
// shared-library names/paths, platform-dependent. sqlite-vec ships a
// platform-specific shared object; this list covers the common install
// locations plus a bare name for when it's already on the dynamic loader's
// search path.
var vectorExtensionCandidates = []string{
	"vec0",
	"./vec0",
	"/usr/local/lib/vec0",
	"/usr/lib/vec0",
}

var (
	registerOnce        sync.Once
	loadedExtensionPath string
	registerMu          sync.Mutex
)

// registerDriver registers a sql.Driver that loads the vector extension on
// every new connection. The extension handle itself is process-wide once
// loaded; subsequent connections still open with
// extension-loading enabled but the actual shared object load is a no-op
// after the first successful one.
func registerDriver(candidates []string) {
	registerOnce.Do(func() {
		sql.Register("sqlite3_localdocs", &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				registerMu.Lock()
				defer registerMu.Unlock()

				if loadedExtensionPath != "" {
					return conn.LoadExtension(loadedExtensionPath, "")
				}
				var lastErr error
				for _, candidate := range candidates {
					if err := conn.LoadExtension(candidate, ""); err == nil {
						loadedExtensionPath = candidate
						return nil
					} else {
						lastErr = err
					}
				}
				if lastErr == nil {
					lastErr = fmt.Errorf("no vector extension candidates configured")
				}
				return lastErr
			},
		})
	})
}

// Store is a single open connection to library.sqlite3. A Store is not
// safe to share across goroutines issuing concurrent writes; callers open
// one Store per task.
type Store struct {
	db   *sql.DB
	path string
}

// Params are the schema-pinning parameters: the embedding
// dimension and the chunker settings. A change to any of them triggers a
// full content reset on Open.
type Params struct {
	EmbeddingDim int
	ChunkSize    int
	ChunkOverlap int
}

// Open opens (creating if absent) the SQLite database at path, enables WAL
// journaling and the busy timeout, loads the vector extension, ensures the
// schema exists, and migrates (resetting content) if params changed since
// the database was last opened. extensionPaths overrides the default
// candidate search path when non-empty.
func Open(path string, params Params, extensionPaths []string) (*Store, error) {
	candidates := vectorExtensionCandidates
	if len(extensionPaths) > 0 {
		candidates = extensionPaths
	}
	registerDriver(candidates)

	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=10000"
	db, err := sql.Open("sqlite3_localdocs", dsn)
	if err != nil {
		return nil, localerrors.Wrap(localerrors.ErrCodeFileMissing, fmt.Errorf("open library database: %w", err))
	}
	db.SetMaxOpenConns(1)

	// Force a connection now so the vector extension ConnectHook runs and
	// any load failure surfaces immediately as the dedicated error kind.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, localerrors.New(localerrors.ErrCodeVectorExtensionMissing, "vector extension missing", err)
	}

	s := &Store{db: db, path: path}

	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}

	if err := s.migrateIfChanged(params); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying *sql.DB for callers (e.g. the retriever) that
// need to run ad hoc reads outside the CRUD helpers below.
func (s *Store) DB() *sql.DB {
	return s.db
}
