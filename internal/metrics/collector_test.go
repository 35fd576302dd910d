package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCollector_RegistersOnInjectedRegisterer(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	c := NewCollector("swarmflow", reg, zap.NewNop())

	c.RecordTaskCreated()
	c.RecordTaskCreated()
	c.RecordTransition("created", "assigned")
	c.RecordDistribution("capability", "ok", 5*time.Millisecond)
	c.RecordMessageSent("direct", "task_assignment")
	c.RecordResultReceived("completed")
	c.RecordCoordination("hierarchical", "ok", 20*time.Millisecond)
	c.RecordAggregation("voting", "ok")
	c.SetActiveAgents(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.tasksCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.taskTransitions.WithLabelValues("created", "assigned")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.tasksDistributed.WithLabelValues("capability", "ok")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.agentsActive))

	err := testutil.CollectAndCompare(c.tasksCreated, strings.NewReader(`
# HELP swarmflow_tasks_created_total Total number of tasks created
# TYPE swarmflow_tasks_created_total counter
swarmflow_tasks_created_total 2
`))
	require.NoError(t, err)
}

func TestCollector_IndependentRegistries(t *testing.T) {
	t.Parallel()
	a := NewCollector("swarmflow", prometheus.NewRegistry(), zap.NewNop())
	b := NewCollector("swarmflow", prometheus.NewRegistry(), zap.NewNop())

	a.RecordTaskCreated()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.tasksCreated))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.tasksCreated))
}
