package distribute

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/swarmflow/swarmflow/registry"
	"github.com/swarmflow/swarmflow/task"
	"github.com/swarmflow/swarmflow/types"
)

// RoundRobin cycles through active agents in registration order,
// independent of load, skipping agents that lack the task's required
// capabilities. The cursor is anchored to the last chosen agent's
// registration sequence, so registrations, removals, and availability flips
// between calls do not shift the rotation. One full cycle without a capable
// agent fails with NO_ELIGIBLE_AGENT.
type RoundRobin struct {
	reg    *registry.AgentRegistry
	store  *task.Store
	logger *zap.Logger

	mu      sync.Mutex
	lastSeq uint64
}

// NewRoundRobin creates a round-robin distributor.
func NewRoundRobin(reg *registry.AgentRegistry, store *task.Store, logger *zap.Logger) *RoundRobin {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoundRobin{
		reg:    reg,
		store:  store,
		logger: logger.With(zap.String("distributor", NameRoundRobin)),
	}
}

// Distribute implements Distributor.
func (d *RoundRobin) Distribute(ctx context.Context, t *task.Task) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	active := d.reg.ListActive()
	if len(active) == 0 {
		return "", types.NewErrorf(types.ErrNoEligibleAgent, "no active agents for task %s", t.ID)
	}

	// One full cycle starting with the first agent registered after the
	// last pick, wrapping to the start of the list when the last pick was
	// the newest agent. ListActive is ordered by registration sequence.
	start := len(active)
	for i, candidate := range active {
		if candidate.Seq > d.lastSeq {
			start = i
			break
		}
	}
	for i := 0; i < len(active); i++ {
		candidate := active[(start+i)%len(active)]
		if !eligible(candidate, t) {
			continue
		}
		if err := assign(d.reg, d.store, t.ID, candidate.ID); err != nil {
			return "", err
		}
		d.lastSeq = candidate.Seq

		d.logger.Debug("task distributed",
			zap.String("task_id", t.ID),
			zap.String("agent_id", candidate.ID),
		)
		return candidate.ID, nil
	}

	return "", types.NewErrorf(types.ErrNoEligibleAgent,
		"no active agent satisfies capabilities %v for task %s", t.RequiredCapabilities.Tags(), t.ID)
}

var _ Distributor = (*RoundRobin)(nil)
