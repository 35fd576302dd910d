package distribute

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/swarmflow/swarmflow/registry"
	"github.com/swarmflow/swarmflow/task"
	"github.com/swarmflow/swarmflow/types"
)

// Strategy names resolvable through the factory registry.
const (
	NameRoundRobin   = "round-robin"
	NameCapability   = "capability"
	NameLoadBalanced = "load-balanced"
)

// Distributor selects an eligible agent for a task and assigns it.
type Distributor interface {
	// Distribute picks an agent for the task, moves the task to ASSIGNED,
	// and increments the agent's load. It fails with NO_ELIGIBLE_AGENT when
	// no active agent satisfies the task's required capabilities.
	Distribute(ctx context.Context, t *task.Task) (agentID string, err error)
}

// Factory builds a distributor over the given registry and store.
type Factory func(reg *registry.AgentRegistry, store *task.Store, logger *zap.Logger) Distributor

// Registry maps strategy names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates a strategy registry pre-populated with the built-in
// distributors.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register(NameRoundRobin, func(reg *registry.AgentRegistry, store *task.Store, logger *zap.Logger) Distributor {
		return NewRoundRobin(reg, store, logger)
	})
	r.Register(NameCapability, func(reg *registry.AgentRegistry, store *task.Store, logger *zap.Logger) Distributor {
		return NewCapabilityBased(reg, store, logger)
	})
	r.Register(NameLoadBalanced, func(reg *registry.AgentRegistry, store *task.Store, logger *zap.Logger) Distributor {
		return NewLoadBalanced(reg, store, logger)
	})
	return r
}

// Register adds or replaces a named factory.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// New builds the named distributor.
func (r *Registry) New(name string, reg *registry.AgentRegistry, store *task.Store, logger *zap.Logger) (Distributor, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, types.NewErrorf(types.ErrNotFound, "unknown distributor %q", name)
	}
	return factory(reg, store, logger), nil
}

// Names returns the registered strategy names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// assign pairs the ASSIGNED transition with exactly one load increment. If
// the increment fails (the agent was removed between selection and
// assignment) the assignment is rolled back so the task stays CREATED.
func assign(reg *registry.AgentRegistry, store *task.Store, taskID, agentID string) error {
	if err := store.Assign(taskID, agentID); err != nil {
		return err
	}
	if err := reg.IncrementLoad(agentID); err != nil {
		if rollback := store.ClearAssignment(taskID); rollback != nil {
			return types.NewErrorf(types.ErrInvalidTransition,
				"task %s assigned but load increment and rollback both failed", taskID).WithCause(rollback)
		}
		return err
	}
	return nil
}

// eligible reports whether the agent can take the task right now.
func eligible(agent *registry.Agent, t *task.Task) bool {
	return agent.Available && agent.Capabilities.Superset(t.RequiredCapabilities)
}
