package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/swarmflow/swarmflow/aggregate"
	"github.com/swarmflow/swarmflow/channel"
	"github.com/swarmflow/swarmflow/config"
	"github.com/swarmflow/swarmflow/distribute"
	"github.com/swarmflow/swarmflow/internal/metrics"
	"github.com/swarmflow/swarmflow/pattern"
	"github.com/swarmflow/swarmflow/persistence"
	"github.com/swarmflow/swarmflow/registry"
	"github.com/swarmflow/swarmflow/task"
	"github.com/swarmflow/swarmflow/types"
)

// Channel names resolvable per call.
const (
	ChannelDirect    = "direct"
	ChannelBroadcast = "broadcast"
	ChannelTopic     = "topic"
)

// InboxID is the mailbox the coordinator receives RESULT messages on.
const InboxID = "coordinator"

// Coordinator wires the registry, task store, channels, and strategy
// registries together behind one API.
type Coordinator struct {
	cfg    *config.Config
	logger *zap.Logger
	tracer trace.Tracer

	reg      *registry.AgentRegistry
	store    *task.Store
	channels map[string]channel.Channel

	distributorReg *distribute.Registry
	aggregatorReg  *aggregate.Registry
	patternReg     *pattern.Registry

	snapshots persistence.SnapshotStore
	collector *metrics.Collector

	// distributors caches built strategies so stateful ones, round-robin's
	// cursor, survive across calls.
	distMu       sync.Mutex
	distributors map[string]distribute.Distributor

	// finalMu serializes terminal transitions so each task's load decrement
	// happens exactly once.
	finalMu sync.Mutex
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// WithRegisterer sets the prometheus registerer metrics register on.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Coordinator) {
		c.collector = metrics.NewCollector(c.cfg.Metrics.Namespace, reg, c.logger)
	}
}

// WithSnapshotStore sets the store Snapshot and Restore persist through.
func WithSnapshotStore(store persistence.SnapshotStore) Option {
	return func(c *Coordinator) { c.snapshots = store }
}

// New creates a coordinator. A nil config uses defaults.
func New(cfg *config.Config, opts ...Option) (*Coordinator, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Coordinator{
		cfg:            cfg,
		logger:         zap.NewNop(),
		tracer:         otel.Tracer("swarmflow/coordinator"),
		distributorReg: distribute.NewRegistry(),
		aggregatorReg:  aggregate.NewRegistry(),
		patternReg:     pattern.NewRegistry(),
		distributors:   make(map[string]distribute.Distributor),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("component", "coordinator"))

	c.reg = registry.New(c.logger)
	c.store = task.NewStore(c.logger)
	capacity := cfg.Channel.MailboxCapacity
	c.channels = map[string]channel.Channel{
		ChannelDirect:    channel.NewDirect(capacity, c.logger),
		ChannelBroadcast: channel.NewBroadcast(c.reg, capacity, c.logger),
		ChannelTopic:     channel.NewTopic(capacity, c.logger),
	}

	if c.collector == nil {
		c.collector = metrics.NewCollector(cfg.Metrics.Namespace, prometheus.NewRegistry(), c.logger)
	}
	if c.snapshots == nil {
		store, err := persistence.NewSnapshotStore(cfg.Store)
		if err != nil {
			return nil, err
		}
		c.snapshots = store
	}
	return c, nil
}

// Registry exposes the agent registry.
func (c *Coordinator) Registry() *registry.AgentRegistry { return c.reg }

// Store exposes the task store.
func (c *Coordinator) Store() *task.Store { return c.store }

// Channel returns the named channel.
func (c *Coordinator) Channel(name string) (channel.Channel, error) {
	ch, ok := c.channels[name]
	if !ok {
		return nil, types.NewErrorf(types.ErrNotFound, "unknown channel %q", name)
	}
	return ch, nil
}

// Close shuts down the channels and the snapshot store.
func (c *Coordinator) Close() error {
	for _, ch := range c.channels {
		if err := ch.Close(); err != nil {
			return err
		}
	}
	return c.snapshots.Close()
}

// RegisterAgent registers a worker and returns its assigned ID.
func (c *Coordinator) RegisterAgent(agent *registry.Agent) (string, error) {
	id, err := c.reg.Register(agent)
	if err != nil {
		return "", err
	}
	c.collector.SetActiveAgents(len(c.reg.ActiveIDs()))
	return id, nil
}

// RemoveAgent removes a worker from the registry.
func (c *Coordinator) RemoveAgent(agentID string) error {
	if err := c.reg.Remove(agentID); err != nil {
		return err
	}
	c.collector.SetActiveAgents(len(c.reg.ActiveIDs()))
	return nil
}

// SetAgentAvailability flips a worker's availability.
func (c *Coordinator) SetAgentAvailability(agentID string, available bool) error {
	if err := c.reg.SetAvailability(agentID, available); err != nil {
		return err
	}
	c.collector.SetActiveAgents(len(c.reg.ActiveIDs()))
	return nil
}

// CreateTask stores a new task and returns its ID.
func (c *Coordinator) CreateTask(ctx context.Context, t *task.Task) (string, error) {
	_, span := c.tracer.Start(ctx, "coordinator.create_task")
	defer span.End()

	id, err := c.store.Create(t)
	if err != nil {
		return "", err
	}
	span.SetAttributes(attribute.String("task.id", id))
	c.collector.RecordTaskCreated()
	return id, nil
}

// DistributeTask assigns the task to an agent chosen by the named
// distributor and increments that agent's load.
func (c *Coordinator) DistributeTask(ctx context.Context, taskID, distributorName string) (string, error) {
	ctx, span := c.tracer.Start(ctx, "coordinator.distribute_task",
		trace.WithAttributes(
			attribute.String("task.id", taskID),
			attribute.String("distributor", distributorName),
		))
	defer span.End()

	t, err := c.store.Get(taskID)
	if err != nil {
		return "", err
	}
	d, err := c.distributor(distributorName)
	if err != nil {
		return "", err
	}

	start := time.Now()
	agentID, err := d.Distribute(ctx, t)
	if err != nil {
		c.collector.RecordDistribution(distributorName, "error", time.Since(start))
		return "", err
	}
	c.collector.RecordDistribution(distributorName, "ok", time.Since(start))
	c.collector.RecordTransition(string(task.StatusCreated), string(task.StatusAssigned))

	c.logger.Info("task distributed",
		zap.String("task_id", taskID),
		zap.String("agent_id", agentID),
		zap.String("distributor", distributorName),
	)
	return agentID, nil
}

// distributor returns the cached strategy instance, building it on first
// use.
func (c *Coordinator) distributor(name string) (distribute.Distributor, error) {
	c.distMu.Lock()
	defer c.distMu.Unlock()

	if d, ok := c.distributors[name]; ok {
		return d, nil
	}
	d, err := c.distributorReg.New(name, c.reg, c.store, c.logger)
	if err != nil {
		return nil, err
	}
	c.distributors[name] = d
	return d, nil
}

// SendTaskMessage wraps the task as a TASK_ASSIGNMENT and sends it to the
// agent on the direct channel, with replies routed to the coordinator inbox.
// Terminal tasks are not sent: a cancelled task must not reach an agent as
// if it were still live.
func (c *Coordinator) SendTaskMessage(ctx context.Context, taskID, agentID string) error {
	ctx, span := c.tracer.Start(ctx, "coordinator.send_task_message",
		trace.WithAttributes(
			attribute.String("task.id", taskID),
			attribute.String("agent.id", agentID),
		))
	defer span.End()

	t, err := c.store.Get(taskID)
	if err != nil {
		return err
	}
	if t.Status.IsTerminal() {
		return types.NewErrorf(types.ErrInvalidTransition, "task %s is terminal (%s)", taskID, t.Status)
	}

	msg := types.NewMessage(types.MessageTaskAssignment, InboxID)
	msg.To = agentID
	msg.ReplyTo = InboxID
	msg.TaskID = t.ID
	msg.Priority = t.Priority
	msg.Content = t

	ch := c.channels[ChannelDirect]
	if err := ch.Send(ctx, msg); err != nil {
		return err
	}
	c.collector.RecordMessageSent(ChannelDirect, string(types.MessageTaskAssignment))
	return nil
}

// ReceiveResult blocks until a RESULT message arrives on the coordinator
// inbox, applies the terminal transition and load decrement, and returns the
// result. It returns (nil, nil) when the timeout expires with nothing
// applicable; results referencing unknown or already-terminal tasks are
// ignored, a late result never resurrects a cancelled task.
func (c *Coordinator) ReceiveResult(ctx context.Context, timeout time.Duration) (*task.Result, error) {
	ctx, span := c.tracer.Start(ctx, "coordinator.receive_result")
	defer span.End()

	ch := c.channels[ChannelDirect]
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}
		msg, err := ch.Receive(ctx, InboxID, remaining)
		if err != nil {
			return nil, err
		}
		if msg == nil {
			return nil, nil
		}
		if msg.Type != types.MessageResult {
			continue
		}

		res := resultFromMessage(msg)
		t, err := c.store.Get(res.TaskID)
		if err != nil {
			c.collector.RecordResultReceived("unknown_task")
			c.logger.Warn("result for unknown task ignored",
				zap.String("task_id", res.TaskID),
				zap.String("agent_id", res.AgentID),
			)
			continue
		}
		if t.Status.IsTerminal() {
			c.collector.RecordResultReceived("stale")
			c.logger.Warn("stale result ignored",
				zap.String("task_id", res.TaskID),
				zap.String("status", string(t.Status)),
			)
			continue
		}

		if err := c.finalize(res); err != nil {
			return nil, err
		}
		c.collector.RecordResultReceived(string(res.Status))
		span.SetAttributes(attribute.String("task.id", res.TaskID))
		return &res, nil
	}
}

// CancelTask moves the task to CANCELLED and releases the assigned agent's
// load, if any. Terminal tasks cannot be cancelled again.
func (c *Coordinator) CancelTask(ctx context.Context, taskID string) error {
	_, span := c.tracer.Start(ctx, "coordinator.cancel_task",
		trace.WithAttributes(attribute.String("task.id", taskID)))
	defer span.End()

	c.finalMu.Lock()
	defer c.finalMu.Unlock()

	t, err := c.store.Get(taskID)
	if err != nil {
		return err
	}
	if err := c.store.Transition(taskID, task.StatusCancelled); err != nil {
		return err
	}
	c.collector.RecordTransition(string(t.Status), string(task.StatusCancelled))

	if t.AssignedTo != "" {
		if err := c.reg.DecrementLoad(t.AssignedTo); err != nil {
			c.logger.Warn("load release failed on cancel",
				zap.String("task_id", taskID),
				zap.String("agent_id", t.AssignedTo),
				zap.Error(err),
			)
		}
	}

	c.logger.Info("task cancelled", zap.String("task_id", taskID))
	return nil
}

// finalize records the result, applies the terminal transition, and pairs it
// with exactly one load decrement on the assigned agent.
func (c *Coordinator) finalize(res task.Result) error {
	c.finalMu.Lock()
	defer c.finalMu.Unlock()

	t, err := c.store.Get(res.TaskID)
	if err != nil {
		return err
	}
	if t.Status.IsTerminal() {
		return types.NewErrorf(types.ErrInvalidTransition, "task %s is terminal (%s)", res.TaskID, t.Status)
	}
	if t.Status == task.StatusAssigned {
		if err := c.store.Transition(res.TaskID, task.StatusInProgress); err != nil {
			return err
		}
		c.collector.RecordTransition(string(task.StatusAssigned), string(task.StatusInProgress))
	}
	if err := c.store.AddResult(res); err != nil {
		return err
	}
	if err := c.store.Transition(res.TaskID, res.Status); err != nil {
		return err
	}
	c.collector.RecordTransition(string(task.StatusInProgress), string(res.Status))

	if t.AssignedTo != "" {
		if err := c.reg.DecrementLoad(t.AssignedTo); err != nil {
			c.logger.Warn("load release failed",
				zap.String("task_id", res.TaskID),
				zap.String("agent_id", t.AssignedTo),
				zap.Error(err),
			)
		}
		if res.Status == task.StatusCompleted && !res.ProducedAt.IsZero() {
			if latency := res.ProducedAt.Sub(t.CreatedAt); latency > 0 {
				_ = c.reg.RecordCompletion(t.AssignedTo, latency)
			}
		}
	}

	c.logger.Info("task finalized",
		zap.String("task_id", res.TaskID),
		zap.String("status", string(res.Status)),
	)
	return nil
}

// resultFromMessage converts a RESULT message into a task result.
func resultFromMessage(msg *types.Message) task.Result {
	switch r := msg.Content.(type) {
	case task.Result:
		return r
	case *task.Result:
		return *r
	}
	return task.Result{
		TaskID:     msg.TaskID,
		AgentID:    msg.From,
		Output:     msg.Content,
		Status:     task.StatusCompleted,
		ProducedAt: msg.CreatedAt,
	}
}
