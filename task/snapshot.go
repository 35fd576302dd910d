package task

import (
	"go.uber.org/zap"

	"github.com/swarmflow/swarmflow/types"
)

// Snapshot is a serializable image of the task store.
type Snapshot struct {
	Tasks []*Task `json:"tasks"`
}

// ExportState returns a deep-copied snapshot of all tasks.
func (s *Store) ExportState() *Snapshot {
	return &Snapshot{Tasks: s.List()}
}

// ImportState replaces the store contents with the snapshot, reproducing
// task statuses, assignments, and results exactly.
func (s *Store) ImportState(snap *Snapshot) error {
	if snap == nil {
		return types.NewError(types.ErrInvalidInput, "nil task snapshot")
	}

	entries := make(map[string]*entry, len(snap.Tasks))
	for _, t := range snap.Tasks {
		if t == nil || t.ID == "" {
			return types.NewError(types.ErrInvalidInput, "snapshot contains task without ID")
		}
		entries[t.ID] = &entry{task: t.clone()}
	}

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()

	s.logger.Info("task store state imported", zap.Int("tasks", len(entries)))
	return nil
}
