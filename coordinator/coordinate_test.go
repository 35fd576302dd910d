package coordinator_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/swarmflow/swarmflow/aggregate"
	"github.com/swarmflow/swarmflow/config"
	"github.com/swarmflow/swarmflow/coordinator"
	"github.com/swarmflow/swarmflow/pattern"
	"github.com/swarmflow/swarmflow/task"
	"github.com/swarmflow/swarmflow/testutil"
	"github.com/swarmflow/swarmflow/types"
)

// newFastCoordinator builds a coordinator with short protocol timeouts so
// decline paths do not slow the suite down.
func newFastCoordinator(t *testing.T) *coordinator.Coordinator {
	t.Helper()
	cfg := config.Default()
	cfg.Pattern.ResponseTimeout = 500 * time.Millisecond
	cfg.Pattern.BidTimeout = 500 * time.Millisecond

	c, err := coordinator.New(cfg,
		coordinator.WithLogger(zap.NewNop()),
		coordinator.WithRegisterer(prometheus.NewRegistry()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCoordinateTask_HierarchicalCompletesTask(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := newFastCoordinator(t)

	leadID := registerAgent(t, c, "lead", "text")
	registerAgent(t, c, "backup", "text")
	taskID := createTask(t, c, "summarize", "text")

	startWorker(t, c, &testutil.Worker{ID: leadID, Output: "lead summary"})

	results, err := c.CoordinateTask(ctx, taskID, pattern.NameHierarchical, coordinator.ChannelDirect)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, leadID, results[0].AgentID)

	stored, err := c.Store().Get(taskID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, stored.Status)
	assert.Equal(t, 0, agentLoad(t, c, leadID))
}

func TestCoordinateTask_SilentLeadLeavesTaskAssigned(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := newFastCoordinator(t)

	leadID := registerAgent(t, c, "lead", "text")
	taskID := createTask(t, c, "summarize", "text")

	startWorker(t, c, &testutil.Worker{ID: leadID, Silent: true})

	_, err := c.CoordinateTask(ctx, taskID, pattern.NameHierarchical, coordinator.ChannelDirect)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrNoResponse))

	// No response is not a terminal outcome: the task stays ASSIGNED and
	// the lead keeps its load until the caller retries or cancels.
	stored, err := c.Store().Get(taskID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusAssigned, stored.Status)
	assert.Equal(t, leadID, stored.AssignedTo)
	assert.Equal(t, 1, agentLoad(t, c, leadID))
}

func TestCoordinateTask_DistributedTaskKeepsItsAgentAsLead(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := newFastCoordinator(t)

	// Busier agent registered first so capability order alone would pick it.
	firstID := registerAgent(t, c, "first", "text")
	secondID := registerAgent(t, c, "second", "text")
	require.NoError(t, c.Registry().IncrementLoad(firstID))

	taskID := createTask(t, c, "summarize", "text")
	chosen, err := c.DistributeTask(ctx, taskID, "capability")
	require.NoError(t, err)
	require.Equal(t, secondID, chosen)

	startWorker(t, c, &testutil.Worker{ID: secondID, Output: "second summary"})
	startWorker(t, c, &testutil.Worker{ID: firstID, Output: "first summary"})

	results, err := c.CoordinateTask(ctx, taskID, pattern.NameHierarchical, coordinator.ChannelDirect)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, secondID, results[0].AgentID)
}

func TestCoordinateTask_PeerToPeerThenVoting(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := newFastCoordinator(t)

	a1 := registerAgent(t, c, "agent-a", "text")
	a2 := registerAgent(t, c, "agent-b", "text")
	a3 := registerAgent(t, c, "agent-c", "text")
	taskID := createTask(t, c, "classify", "text")

	startWorker(t, c, &testutil.Worker{ID: a1, Output: "spam"})
	startWorker(t, c, &testutil.Worker{ID: a2, Output: "spam"})
	startWorker(t, c, &testutil.Worker{ID: a3, Output: "ham"})

	results, err := c.CoordinateTask(ctx, taskID, pattern.NamePeerToPeer, coordinator.ChannelDirect)
	require.NoError(t, err)
	require.Len(t, results, 3)

	stored, err := c.Store().Get(taskID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusInProgress, stored.Status)

	merged, err := c.AggregateResults(ctx, taskID, aggregate.NameVoting)
	require.NoError(t, err)
	assert.Equal(t, "spam", merged.Output)

	stored, err = c.Store().Get(taskID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, stored.Status)
}

func TestCoordinateTask_PeerToPeerPartialResponsesStayInProgress(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := newFastCoordinator(t)

	a1 := registerAgent(t, c, "agent-a", "text")
	a2 := registerAgent(t, c, "agent-b", "text")
	taskID := createTask(t, c, "classify", "text")

	startWorker(t, c, &testutil.Worker{ID: a1, Output: "spam"})
	startWorker(t, c, &testutil.Worker{ID: a2, Silent: true})

	// Silence is declining, so a single responder is a normal fan-out
	// outcome. Its contribution still goes through aggregation rather than
	// straight to a terminal state.
	results, err := c.CoordinateTask(ctx, taskID, pattern.NamePeerToPeer, coordinator.ChannelDirect)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, a1, results[0].AgentID)

	stored, err := c.Store().Get(taskID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusInProgress, stored.Status)

	merged, err := c.AggregateResults(ctx, taskID, aggregate.NameVoting)
	require.NoError(t, err)
	assert.Equal(t, "spam", merged.Output)

	stored, err = c.Store().Get(taskID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, stored.Status)
}

func TestCoordinateTask_HierarchicalOverTopicChannel(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := newFastCoordinator(t)

	leadID := registerAgent(t, c, "lead", "text")
	taskID := createTask(t, c, "summarize", "text")

	startWorkerOn(t, c, coordinator.ChannelTopic, &testutil.Worker{ID: leadID, Output: "topic summary"})

	results, err := c.CoordinateTask(ctx, taskID, pattern.NameHierarchical, coordinator.ChannelTopic)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "topic summary", results[0].Output)

	stored, err := c.Store().Get(taskID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, stored.Status)
}

func TestCoordinateTask_MarketDelegatesToBestBidder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := newFastCoordinator(t)

	priceyID := registerAgent(t, c, "pricey", "text")
	cheapID := registerAgent(t, c, "cheap", "text")
	taskID := createTask(t, c, "translate", "text")

	startWorker(t, c, &testutil.Worker{ID: priceyID, Output: "pricey answer", Bid: &pattern.Bid{Cost: 8}})
	startWorker(t, c, &testutil.Worker{ID: cheapID, Output: "cheap answer", Bid: &pattern.Bid{Cost: 2}})

	results, err := c.CoordinateTask(ctx, taskID, pattern.NameMarket, coordinator.ChannelDirect)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, cheapID, results[0].AgentID)
	assert.Equal(t, "cheap answer", results[0].Output)

	stored, err := c.Store().Get(taskID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, stored.Status)
}

func TestCoordinateTask_NoEligibleAgents(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := newFastCoordinator(t)

	registerAgent(t, c, "text-only", "text")
	taskID := createTask(t, c, "render", "vision")

	_, err := c.CoordinateTask(ctx, taskID, pattern.NameHierarchical, coordinator.ChannelDirect)
	assert.True(t, types.IsCode(err, types.ErrNoEligibleAgent))

	stored, err := c.Store().Get(taskID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCreated, stored.Status)
}

func TestCoordinateTask_TerminalTaskRejected(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := newFastCoordinator(t)

	registerAgent(t, c, "worker", "text")
	taskID := createTask(t, c, "summarize", "text")
	require.NoError(t, c.CancelTask(ctx, taskID))

	_, err := c.CoordinateTask(ctx, taskID, pattern.NameHierarchical, coordinator.ChannelDirect)
	assert.True(t, types.IsCode(err, types.ErrInvalidTransition))
}
