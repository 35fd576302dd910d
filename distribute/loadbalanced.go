package distribute

import (
	"context"

	"go.uber.org/zap"

	"github.com/swarmflow/swarmflow/registry"
	"github.com/swarmflow/swarmflow/task"
	"github.com/swarmflow/swarmflow/types"
)

// LoadBalanced draws the same candidate set as CapabilityBased but breaks
// load ties by the agents' moving-average completion latency, preferring the
// faster agent. Agents with no recorded latency keep the capability-based
// order (registration order within a load tier).
type LoadBalanced struct {
	reg    *registry.AgentRegistry
	store  *task.Store
	logger *zap.Logger
}

// NewLoadBalanced creates a load-balanced distributor.
func NewLoadBalanced(reg *registry.AgentRegistry, store *task.Store, logger *zap.Logger) *LoadBalanced {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoadBalanced{
		reg:    reg,
		store:  store,
		logger: logger.With(zap.String("distributor", NameLoadBalanced)),
	}
}

// Distribute implements Distributor.
func (d *LoadBalanced) Distribute(ctx context.Context, t *task.Task) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	candidates := d.reg.FindByCapability(t.RequiredCapabilities)
	if len(candidates) == 0 {
		return "", types.NewErrorf(types.ErrNoEligibleAgent,
			"no active agent satisfies capabilities %v for task %s", t.RequiredCapabilities.Tags(), t.ID)
	}

	// Candidates arrive sorted by load then registration order. Within the
	// lowest-load tier, prefer the lowest recorded latency.
	chosen := candidates[0]
	for _, candidate := range candidates[1:] {
		if candidate.Load != chosen.Load {
			break
		}
		if candidate.AvgLatency > 0 && (chosen.AvgLatency == 0 || candidate.AvgLatency < chosen.AvgLatency) {
			chosen = candidate
		}
	}

	if err := assign(d.reg, d.store, t.ID, chosen.ID); err != nil {
		return "", err
	}

	d.logger.Debug("task distributed",
		zap.String("task_id", t.ID),
		zap.String("agent_id", chosen.ID),
		zap.Duration("avg_latency", chosen.AvgLatency),
	)
	return chosen.ID, nil
}

var _ Distributor = (*LoadBalanced)(nil)
