package persistence

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/swarmflow/swarmflow/types"
)

// MemoryStore keeps the snapshot in process memory. Snapshots go through a
// JSON round trip so the memory backend behaves like the durable ones,
// including the loss of concrete payload types.
type MemoryStore struct {
	mu     sync.RWMutex
	data   []byte
	closed bool
}

// NewMemoryStore creates an in-memory snapshot store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save implements SnapshotStore.
func (s *MemoryStore) Save(ctx context.Context, snap *Snapshot) error {
	if snap == nil {
		return types.NewError(types.ErrInvalidInput, "nil snapshot")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return types.NewError(types.ErrInvalidInput, "snapshot not serializable").WithCause(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return types.NewError(types.ErrStoreClosed, "store is closed")
	}
	s.data = data
	return nil
}

// Load implements SnapshotStore.
func (s *MemoryStore) Load(ctx context.Context) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, types.NewError(types.ErrStoreClosed, "store is closed")
	}
	if s.data == nil {
		return nil, types.NewError(types.ErrNotFound, "no snapshot saved")
	}

	var snap Snapshot
	if err := json.Unmarshal(s.data, &snap); err != nil {
		return nil, types.NewError(types.ErrInvalidInput, "stored snapshot is corrupt").WithCause(err)
	}
	return &snap, nil
}

// Ping implements SnapshotStore.
func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return types.NewError(types.ErrStoreClosed, "store is closed")
	}
	return nil
}

// Close implements SnapshotStore.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var _ SnapshotStore = (*MemoryStore)(nil)
