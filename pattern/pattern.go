package pattern

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/swarmflow/swarmflow/channel"
	"github.com/swarmflow/swarmflow/task"
	"github.com/swarmflow/swarmflow/types"
)

// Pattern names resolvable through the factory registry.
const (
	NameHierarchical = "hierarchical"
	NamePeerToPeer   = "peer-to-peer"
	NameMarket       = "market"
)

// Default protocol timeouts.
const (
	DefaultResponseTimeout = 30 * time.Second
	DefaultBidTimeout      = 5 * time.Second
)

// DefaultSender is the agent ID patterns stamp on outgoing protocol messages
// when the caller does not configure one.
const DefaultSender = "coordinator"

// Pattern orchestrates candidate agents against one task over a channel.
type Pattern interface {
	// Coordinate runs one protocol round. Candidates that never respond
	// within the timeout are treated as declining; zero responses fail with
	// NO_RESPONSE. Coordinate does not mutate task state.
	Coordinate(ctx context.Context, t *task.Task, candidates []string, ch channel.Channel) ([]task.Result, error)

	// FansOut reports whether a round collects results from several agents.
	// A fan-out round's results are partial contributions meant for an
	// aggregator; a delegating round's single result is the task's outcome.
	FansOut() bool
}

// Options configures a pattern's protocol round.
type Options struct {
	// Sender is the agent ID stamped on outgoing protocol messages.
	Sender string

	// ResponseTimeout bounds the wait for RESULT messages.
	ResponseTimeout time.Duration

	// BidTimeout bounds the market pattern's bid round.
	BidTimeout time.Duration

	// BidPolicy selects the winning bid in the market pattern.
	BidPolicy BidPolicy

	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Sender == "" {
		o.Sender = DefaultSender
	}
	if o.ResponseTimeout <= 0 {
		o.ResponseTimeout = DefaultResponseTimeout
	}
	if o.BidTimeout <= 0 {
		o.BidTimeout = DefaultBidTimeout
	}
	if o.BidPolicy == "" {
		o.BidPolicy = BidLowestCost
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Factory builds a pattern from options.
type Factory func(opts Options) Pattern

// Registry maps pattern names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates a pattern registry pre-populated with the built-in
// patterns.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register(NameHierarchical, func(opts Options) Pattern { return NewHierarchical(opts) })
	r.Register(NamePeerToPeer, func(opts Options) Pattern { return NewPeerToPeer(opts) })
	r.Register(NameMarket, func(opts Options) Pattern { return NewMarketBased(opts) })
	return r
}

// Register adds or replaces a named factory.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// New builds the named pattern.
func (r *Registry) New(name string, opts Options) (Pattern, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, types.NewErrorf(types.ErrNotFound, "unknown pattern %q", name)
	}
	return factory(opts), nil
}

// Names returns the registered pattern names, sorted.
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

// newInbox returns a fresh per-round reply address. Using a unique inbox per
// protocol round keeps late replies from a previous round out of the next
// one.
func newInbox(name string) string {
	return "inbox:" + name + ":" + uuid.New().String()
}

// resultFromMessage converts a RESULT message into a task result. Workers may
// send a fully formed result as the payload; anything else is wrapped as a
// completed result from the sending agent.
func resultFromMessage(msg *types.Message, taskID string) task.Result {
	switch r := msg.Content.(type) {
	case task.Result:
		return r
	case *task.Result:
		return *r
	}
	return task.Result{
		TaskID:     taskID,
		AgentID:    msg.From,
		Output:     msg.Content,
		Status:     task.StatusCompleted,
		ProducedAt: msg.CreatedAt,
	}
}

// assignment builds the TASK_ASSIGNMENT message for one recipient.
func assignment(sender, inbox, to string, t *task.Task) *types.Message {
	msg := types.NewMessage(types.MessageTaskAssignment, sender)
	msg.To = to
	msg.ReplyTo = inbox
	msg.TaskID = t.ID
	msg.Priority = t.Priority
	msg.Content = t
	return msg
}
