package persistence

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/swarmflow/swarmflow/types"
)

// FileStore keeps the snapshot in a single JSON file, written atomically via
// a temp file and rename.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a file-backed snapshot store, creating the parent
// directory if needed.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, types.NewError(types.ErrInvalidInput, "empty snapshot path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, types.NewError(types.ErrInvalidInput, "cannot create snapshot directory").WithCause(err)
	}
	return &FileStore{path: path}, nil
}

// Save implements SnapshotStore.
func (s *FileStore) Save(ctx context.Context, snap *Snapshot) error {
	if snap == nil {
		return types.NewError(types.ErrInvalidInput, "nil snapshot")
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return types.NewError(types.ErrInvalidInput, "snapshot not serializable").WithCause(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Load implements SnapshotStore.
func (s *FileStore) Load(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, types.NewError(types.ErrNotFound, "no snapshot saved")
	}
	if err != nil {
		return nil, err
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, types.NewError(types.ErrInvalidInput, "stored snapshot is corrupt").WithCause(err)
	}
	return &snap, nil
}

// Ping implements SnapshotStore.
func (s *FileStore) Ping(ctx context.Context) error {
	_, err := os.Stat(filepath.Dir(s.path))
	return err
}

// Close implements SnapshotStore.
func (s *FileStore) Close() error {
	return nil
}

var _ SnapshotStore = (*FileStore)(nil)
