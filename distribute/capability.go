package distribute

import (
	"context"

	"go.uber.org/zap"

	"github.com/swarmflow/swarmflow/registry"
	"github.com/swarmflow/swarmflow/task"
	"github.com/swarmflow/swarmflow/types"
)

// CapabilityBased picks the lowest-load agent whose capability set covers
// the task's requirements, relying on the registry's load-then-registration
// ordering.
type CapabilityBased struct {
	reg    *registry.AgentRegistry
	store  *task.Store
	logger *zap.Logger
}

// NewCapabilityBased creates a capability-based distributor.
func NewCapabilityBased(reg *registry.AgentRegistry, store *task.Store, logger *zap.Logger) *CapabilityBased {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CapabilityBased{
		reg:    reg,
		store:  store,
		logger: logger.With(zap.String("distributor", NameCapability)),
	}
}

// Distribute implements Distributor.
func (d *CapabilityBased) Distribute(ctx context.Context, t *task.Task) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	candidates := d.reg.FindByCapability(t.RequiredCapabilities)
	if len(candidates) == 0 {
		return "", types.NewErrorf(types.ErrNoEligibleAgent,
			"no active agent satisfies capabilities %v for task %s", t.RequiredCapabilities.Tags(), t.ID)
	}

	chosen := candidates[0]
	if err := assign(d.reg, d.store, t.ID, chosen.ID); err != nil {
		return "", err
	}

	d.logger.Debug("task distributed",
		zap.String("task_id", t.ID),
		zap.String("agent_id", chosen.ID),
		zap.Int("candidate_load", chosen.Load),
	)
	return chosen.ID, nil
}

var _ Distributor = (*CapabilityBased)(nil)
