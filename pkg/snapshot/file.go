package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/matzehuels/kdag/pkg/errors"
	"github.com/matzehuels/kdag/pkg/modecache"
)

// FileStore keeps one JSON file per project in a directory.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
	ttl     time.Duration
}

// NewFileStore creates a file-based store. An empty baseDir uses
// $XDG_CONFIG_HOME/kdag/modelayouts.
func NewFileStore(baseDir string, ttl time.Duration) (*FileStore, error) {
	if baseDir == "" {
		dir, err := defaultDir()
		if err != nil {
			return nil, err
		}
		baseDir = dir
	}
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &FileStore{baseDir: baseDir, ttl: ttl}, nil
}

func (s *FileStore) path(projectID string) (string, error) {
	if err := errors.ValidateID("project", projectID); err != nil {
		return "", err
	}
	return filepath.Join(s.baseDir, projectID+".json"), nil
}

func (s *FileStore) Load(_ context.Context, projectID string) (modecache.Snapshot, bool, error) {
	path, err := s.path(projectID)
	if err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	data, err := os.ReadFile(path)
	s.mu.RUnlock()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read snapshot file: %w", err)
	}

	snap, ok, err := decode(projectID, data)
	if err == nil && !ok {
		s.mu.Lock()
		err := os.Remove(path)
		s.mu.Unlock()
		if err != nil && !os.IsNotExist(err) {
			return nil, false, fmt.Errorf("delete expired snapshot: %w", err)
		}
	}
	return snap, ok, err
}

func (s *FileStore) Save(_ context.Context, projectID string, snap modecache.Snapshot) error {
	path, err := s.path(projectID)
	if err != nil {
		return err
	}
	data, err := encode(projectID, snap, s.ttl)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write snapshot file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace snapshot file: %w", err)
	}
	return nil
}

func (s *FileStore) Delete(_ context.Context, projectID string) error {
	path, err := s.path(projectID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove snapshot file: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

// Path returns the directory holding snapshot files.
func (s *FileStore) Path() string {
	return s.baseDir
}

var _ Store = (*FileStore)(nil)
