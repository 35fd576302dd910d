package registry

import (
	"go.uber.org/zap"

	"github.com/swarmflow/swarmflow/types"
)

// Snapshot is a serializable image of the registry state: agents with their
// loads, availability, and registration order.
type Snapshot struct {
	Agents  []*Agent `json:"agents"`
	NextSeq uint64   `json:"next_seq"`
}

// ExportState returns a snapshot of the registry. The snapshot is a deep
// copy; later registry mutations do not leak into it.
func (r *AgentRegistry) ExportState() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := &Snapshot{
		Agents:  make([]*Agent, 0, len(r.agents)),
		NextSeq: r.nextSeq,
	}
	for _, agent := range r.agents {
		snap.Agents = append(snap.Agents, agent.clone())
	}
	return snap
}

// ImportState replaces the registry contents with the snapshot, reproducing
// agent loads, availability, and registration order exactly.
func (r *AgentRegistry) ImportState(snap *Snapshot) error {
	if snap == nil {
		return types.NewError(types.ErrInvalidInput, "nil registry snapshot")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	agents := make(map[string]*Agent, len(snap.Agents))
	for _, agent := range snap.Agents {
		if agent == nil || agent.ID == "" {
			return types.NewError(types.ErrInvalidInput, "snapshot contains agent without ID")
		}
		agents[agent.ID] = agent.clone()
	}

	r.agents = agents
	r.nextSeq = snap.NextSeq

	r.logger.Info("registry state imported", zap.Int("agents", len(agents)))
	return nil
}
