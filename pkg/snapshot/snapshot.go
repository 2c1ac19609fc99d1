// Package snapshot persists row/column mode layouts between sessions.
//
// The mode layout cache is process-local. When the user switches projects
// or restarts the app, its contents may be saved under the project id and
// restored later. This package provides that storage with several backends:
//   - file: one JSON file per project, for the CLI and desktop shell
//   - sqlite: a single table, for a local bridge server
//   - redis: keys with optional expiry, for shared multi-instance servers
//   - mongo: one document per project
//   - none: a no-op store that never saves anything
//
// # Usage
//
//	store, err := snapshot.Open(ctx, snapshot.Config{Backend: "sqlite", DSN: "kdag.db"})
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	_ = store.Save(ctx, projectID, cache.Snapshot())
//	if snap, ok, err := store.Load(ctx, projectID); err == nil && ok {
//	    cache.Restore(snap)
//	}
//
// A missing or expired snapshot is a miss (ok == false), not an error.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/matzehuels/kdag/pkg/errors"
	"github.com/matzehuels/kdag/pkg/modecache"
)

// Store is the interface for snapshot storage backends.
type Store interface {
	// Load returns the saved snapshot for projectID. ok is false when none
	// exists or it expired.
	Load(ctx context.Context, projectID string) (snap modecache.Snapshot, ok bool, err error)

	// Save replaces the snapshot for projectID.
	Save(ctx context.Context, projectID string, snap modecache.Snapshot) error

	// Delete removes the snapshot for projectID. Deleting a missing
	// snapshot is not an error.
	Delete(ctx context.Context, projectID string) error

	// Close releases backend connections.
	Close() error
}

// Backend names accepted by Open.
const (
	BackendNone   = "none"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

// Config selects and configures a backend.
type Config struct {
	Backend  string        `toml:"backend"`
	Dir      string        `toml:"dir"`      // file: directory, default ~/.config/kdag/modelayouts
	DSN      string        `toml:"dsn"`      // sqlite: database path
	Addr     string        `toml:"addr"`     // redis: host:port
	URI      string        `toml:"uri"`      // mongo: connection string
	Database string        `toml:"database"` // mongo: database name, default "kdag"
	TTL      time.Duration `toml:"ttl"`      // 0 keeps snapshots forever
}

// Open creates the store named by cfg.Backend. An empty backend is "none".
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", BackendNone:
		return Null{}, nil
	case BackendFile:
		return NewFileStore(cfg.Dir, cfg.TTL)
	case BackendSQLite:
		return NewSQLiteStore(cfg.DSN, cfg.TTL)
	case BackendRedis:
		return NewRedisStore(ctx, cfg.Addr, cfg.TTL)
	case BackendMongo:
		return NewMongoStore(ctx, cfg.URI, cfg.Database, cfg.TTL)
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown snapshot backend %q (want none, file, sqlite, redis or mongo)", cfg.Backend)
	}
}

// record is the stored form shared by the byte-oriented backends.
type record struct {
	ProjectID string             `json:"project_id"`
	Layouts   modecache.Snapshot `json:"layouts"`
	SavedAt   time.Time          `json:"saved_at"`
	ExpiresAt time.Time          `json:"expires_at,omitzero"`
}

func newRecord(projectID string, snap modecache.Snapshot, ttl time.Duration) record {
	now := time.Now().UTC()
	r := record{ProjectID: projectID, Layouts: snap, SavedAt: now}
	if ttl > 0 {
		r.ExpiresAt = now.Add(ttl)
	}
	return r
}

func (r record) expired() bool {
	return !r.ExpiresAt.IsZero() && time.Now().After(r.ExpiresAt)
}

func encode(projectID string, snap modecache.Snapshot, ttl time.Duration) ([]byte, error) {
	data, err := json.Marshal(newRecord(projectID, snap, ttl))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode snapshot %s", projectID)
	}
	return data, nil
}

// decode parses a stored record. ok is false for expired records.
func decode(projectID string, data []byte) (modecache.Snapshot, bool, error) {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeInternal, err, "decode snapshot %s", projectID)
	}
	if r.expired() {
		return nil, false, nil
	}
	return r.Layouts, true, nil
}

func defaultDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get config dir: %w", err)
	}
	return filepath.Join(dir, "kdag", "modelayouts"), nil
}

// =============================================================================
// Null store
// =============================================================================

// Null is a no-op store that never saves anything.
type Null struct{}

func (Null) Load(context.Context, string) (modecache.Snapshot, bool, error) { return nil, false, nil }
func (Null) Save(context.Context, string, modecache.Snapshot) error         { return nil }
func (Null) Delete(context.Context, string) error                           { return nil }
func (Null) Close() error                                                   { return nil }

var _ Store = Null{}
