package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/swarmflow/swarmflow/types"
)

// Agent is a registered worker capable of executing tasks matching its
// declared capabilities.
type Agent struct {
	// ID is the unique identifier assigned at registration.
	ID string `json:"id"`

	// Name is the human-readable agent name.
	Name string `json:"name"`

	// Capabilities is the declared capability set. Immutable after
	// registration except through Update.
	Capabilities types.CapabilitySet `json:"capabilities"`

	// Available excludes the agent from distribution when false.
	Available bool `json:"available"`

	// Load is the number of tasks currently assigned.
	Load int `json:"load"`

	// Metadata carries implementation-specific data (model identifier,
	// specialization tags).
	Metadata map[string]string `json:"metadata,omitempty"`

	// Seq is the registration sequence number, used for deterministic
	// ordering and round-robin cycling.
	Seq uint64 `json:"seq"`

	// RegisteredAt is when the agent was registered.
	RegisteredAt time.Time `json:"registered_at"`

	// AvgLatency is an exponential moving average of reported task
	// completion latency. Zero until the first completion is recorded.
	AvgLatency time.Duration `json:"avg_latency"`
}

// clone returns an independent copy safe to hand to callers.
func (a *Agent) clone() *Agent {
	c := *a
	c.Capabilities = a.Capabilities.Clone()
	if a.Metadata != nil {
		c.Metadata = make(map[string]string, len(a.Metadata))
		for k, v := range a.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// latencyAlpha is the smoothing factor for the completion latency EMA.
const latencyAlpha = 0.2

// AgentRegistry is the in-memory registry of known agents.
type AgentRegistry struct {
	mu      sync.RWMutex
	agents  map[string]*Agent
	nextSeq uint64
	logger  *zap.Logger
}

// New creates an empty agent registry.
func New(logger *zap.Logger) *AgentRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgentRegistry{
		agents: make(map[string]*Agent),
		logger: logger.With(zap.String("component", "agent_registry")),
	}
}

// Register stores the agent and assigns it an ID if absent.
//
// Policy: an agent whose name and capability set both match an already
// registered agent is rejected with DUPLICATE_AGENT. The same name with a
// different capability set is treated as a distinct worker. Use Update for
// idempotent re-declaration.
func (r *AgentRegistry) Register(agent *Agent) (string, error) {
	if agent == nil || agent.Name == "" {
		return "", types.NewError(types.ErrInvalidInput, "agent name is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.agents {
		if existing.Name == agent.Name && existing.Capabilities.Equal(agent.Capabilities) {
			return "", types.NewErrorf(types.ErrDuplicateAgent,
				"agent %q with identical capability set already registered as %s", agent.Name, existing.ID)
		}
	}

	stored := agent.clone()
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	} else if _, exists := r.agents[stored.ID]; exists {
		return "", types.NewErrorf(types.ErrDuplicateAgent, "agent ID %s already registered", stored.ID)
	}
	if stored.Capabilities == nil {
		stored.Capabilities = types.NewCapabilitySet()
	}

	r.nextSeq++
	stored.Seq = r.nextSeq
	stored.Available = true
	stored.Load = 0
	stored.RegisteredAt = time.Now()

	r.agents[stored.ID] = stored

	r.logger.Info("agent registered",
		zap.String("agent_id", stored.ID),
		zap.String("name", stored.Name),
		zap.Strings("capabilities", stored.Capabilities.Tags()),
	)

	return stored.ID, nil
}

// Get retrieves a copy of the agent by ID.
func (r *AgentRegistry) Get(agentID string) (*Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agent, ok := r.agents[agentID]
	if !ok {
		return nil, types.NewErrorf(types.ErrNotFound, "agent %s not found", agentID)
	}
	return agent.clone(), nil
}

// Update replaces the capability set and metadata of a registered agent.
// Availability, load, and registration order are preserved.
func (r *AgentRegistry) Update(agentID string, capabilities types.CapabilitySet, metadata map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	agent, ok := r.agents[agentID]
	if !ok {
		return types.NewErrorf(types.ErrNotFound, "agent %s not found", agentID)
	}

	if capabilities != nil {
		agent.Capabilities = capabilities.Clone()
	}
	if metadata != nil {
		agent.Metadata = make(map[string]string, len(metadata))
		for k, v := range metadata {
			agent.Metadata[k] = v
		}
	}

	r.logger.Info("agent updated", zap.String("agent_id", agentID))
	return nil
}

// Remove deletes the agent from the registry.
func (r *AgentRegistry) Remove(agentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.agents[agentID]; !ok {
		return types.NewErrorf(types.ErrNotFound, "agent %s not found", agentID)
	}
	delete(r.agents, agentID)

	r.logger.Info("agent removed", zap.String("agent_id", agentID))
	return nil
}

// FindByCapability returns available agents whose capability set is a
// superset of required, ordered by ascending load with ties broken by
// registration order.
func (r *AgentRegistry) FindByCapability(required types.CapabilitySet) []*Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matches := make([]*Agent, 0)
	for _, agent := range r.agents {
		if agent.Available && agent.Capabilities.Superset(required) {
			matches = append(matches, agent.clone())
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Load != matches[j].Load {
			return matches[i].Load < matches[j].Load
		}
		return matches[i].Seq < matches[j].Seq
	})

	return matches
}

// ListActive returns all available agents in registration order.
func (r *AgentRegistry) ListActive() []*Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	active := make([]*Agent, 0, len(r.agents))
	for _, agent := range r.agents {
		if agent.Available {
			active = append(active, agent.clone())
		}
	}

	sort.Slice(active, func(i, j int) bool { return active[i].Seq < active[j].Seq })
	return active
}

// ActiveIDs returns the IDs of all available agents in registration order.
// It satisfies the roster view used by broadcast channels.
func (r *AgentRegistry) ActiveIDs() []string {
	active := r.ListActive()
	ids := make([]string, len(active))
	for i, agent := range active {
		ids[i] = agent.ID
	}
	return ids
}

// SetAvailability flips the availability flag of an agent.
func (r *AgentRegistry) SetAvailability(agentID string, available bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	agent, ok := r.agents[agentID]
	if !ok {
		return types.NewErrorf(types.ErrNotFound, "agent %s not found", agentID)
	}
	agent.Available = available

	r.logger.Debug("agent availability changed",
		zap.String("agent_id", agentID),
		zap.Bool("available", available),
	)
	return nil
}

// IncrementLoad adds one assigned task to the agent's load counter.
func (r *AgentRegistry) IncrementLoad(agentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	agent, ok := r.agents[agentID]
	if !ok {
		return types.NewErrorf(types.ErrNotFound, "agent %s not found", agentID)
	}
	agent.Load++
	return nil
}

// DecrementLoad removes one assigned task from the agent's load counter.
// Load never goes negative: decrementing at zero is a documented clamp and
// not an error.
func (r *AgentRegistry) DecrementLoad(agentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	agent, ok := r.agents[agentID]
	if !ok {
		return types.NewErrorf(types.ErrNotFound, "agent %s not found", agentID)
	}
	if agent.Load == 0 {
		r.logger.Debug("decrement on zero load clamped", zap.String("agent_id", agentID))
		return nil
	}
	agent.Load--
	return nil
}

// RecordCompletion folds a task completion latency into the agent's moving
// average. Used by the load-balanced distributor as a secondary metric.
func (r *AgentRegistry) RecordCompletion(agentID string, latency time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	agent, ok := r.agents[agentID]
	if !ok {
		return types.NewErrorf(types.ErrNotFound, "agent %s not found", agentID)
	}

	if agent.AvgLatency == 0 {
		agent.AvgLatency = latency
	} else {
		agent.AvgLatency = time.Duration(
			float64(agent.AvgLatency)*(1-latencyAlpha) + float64(latency)*latencyAlpha,
		)
	}
	return nil
}

// Len returns the number of registered agents.
func (r *AgentRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}
