package coordinator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/swarmflow/swarmflow/persistence"
)

// Snapshot saves the registry and task store state to the snapshot store.
func (c *Coordinator) Snapshot(ctx context.Context) error {
	_, span := c.tracer.Start(ctx, "coordinator.snapshot")
	defer span.End()

	snap := &persistence.Snapshot{
		Registry: c.reg.ExportState(),
		Tasks:    c.store.ExportState(),
		SavedAt:  time.Now(),
	}
	if err := c.snapshots.Save(ctx, snap); err != nil {
		return err
	}

	c.logger.Info("state snapshot saved",
		zap.Int("agents", len(snap.Registry.Agents)),
		zap.Int("tasks", len(snap.Tasks.Tasks)),
	)
	return nil
}

// Restore replaces the registry and task store state with the saved
// snapshot, reproducing agent loads, availability, and task statuses.
func (c *Coordinator) Restore(ctx context.Context) error {
	_, span := c.tracer.Start(ctx, "coordinator.restore")
	defer span.End()

	snap, err := c.snapshots.Load(ctx)
	if err != nil {
		return err
	}
	if err := c.reg.ImportState(snap.Registry); err != nil {
		return err
	}
	if err := c.store.ImportState(snap.Tasks); err != nil {
		return err
	}
	c.collector.SetActiveAgents(len(c.reg.ActiveIDs()))

	c.logger.Info("state snapshot restored",
		zap.Int("agents", len(snap.Registry.Agents)),
		zap.Int("tasks", len(snap.Tasks.Tasks)),
		zap.Time("saved_at", snap.SavedAt),
	)
	return nil
}
