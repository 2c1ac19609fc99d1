package snapshot

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/matzehuels/kdag/pkg/errors"
	"github.com/matzehuels/kdag/pkg/modecache"
)

// SQLiteStore keeps snapshots in a single mode_layouts table as JSON blobs.
type SQLiteStore struct {
	db   *sql.DB
	path string
	ttl  time.Duration
}

// NewSQLiteStore opens (or creates) the database at path. An empty path
// uses kdag.db in the current directory.
func NewSQLiteStore(path string, ttl time.Duration) (*SQLiteStore, error) {
	if path == "" {
		path = "kdag.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !stderrors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS mode_layouts (
		project_id TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create mode_layouts table: %w", err)
	}
	return &SQLiteStore{db: db, path: path, ttl: ttl}, nil
}

func (s *SQLiteStore) Load(ctx context.Context, projectID string) (modecache.Snapshot, bool, error) {
	if err := errors.ValidateID("project", projectID); err != nil {
		return nil, false, err
	}
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM mode_layouts WHERE project_id = ?`, projectID).Scan(&payload)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select snapshot: %w", err)
	}
	snap, ok, err := decode(projectID, payload)
	if err == nil && !ok {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM mode_layouts WHERE project_id = ?`, projectID); err != nil {
			return nil, false, fmt.Errorf("delete expired snapshot: %w", err)
		}
	}
	return snap, ok, err
}

func (s *SQLiteStore) Save(ctx context.Context, projectID string, snap modecache.Snapshot) error {
	if err := errors.ValidateID("project", projectID); err != nil {
		return err
	}
	data, err := encode(projectID, snap, s.ttl)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO mode_layouts(project_id, payload) VALUES(?, ?)
		 ON CONFLICT(project_id) DO UPDATE SET payload = excluded.payload`,
		projectID, data); err != nil {
		return fmt.Errorf("upsert snapshot %s: %w", projectID, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, projectID string) error {
	if err := errors.ValidateID("project", projectID); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM mode_layouts WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", projectID, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *SQLiteStore) Path() string { return s.path }

var _ Store = (*SQLiteStore)(nil)
