package coordinator

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/swarmflow/swarmflow/pattern"
	"github.com/swarmflow/swarmflow/task"
	"github.com/swarmflow/swarmflow/types"
)

// CoordinateTask runs the named pattern against the task's eligible agents
// over the named channel.
//
// A CREATED task is first assigned to the primary candidate; a task already
// ASSIGNED keeps its agent as the primary, so a distributed task is
// delegated to the agent the distributor chose. Delegating rounds
// (hierarchical, market) finalize the task with the lead's result; fan-out
// rounds (peer-to-peer) store every collected result, move the task to
// IN_PROGRESS, and leave the terminal transition to AggregateResults, even
// when only one peer responded.
func (c *Coordinator) CoordinateTask(ctx context.Context, taskID, patternName, channelName string) ([]task.Result, error) {
	ctx, span := c.tracer.Start(ctx, "coordinator.coordinate_task",
		trace.WithAttributes(
			attribute.String("task.id", taskID),
			attribute.String("pattern", patternName),
			attribute.String("channel", channelName),
		))
	defer span.End()

	t, err := c.store.Get(taskID)
	if err != nil {
		return nil, err
	}
	if t.Status.IsTerminal() {
		return nil, types.NewErrorf(types.ErrInvalidTransition, "task %s is terminal (%s)", taskID, t.Status)
	}

	ch, err := c.Channel(channelName)
	if err != nil {
		return nil, err
	}
	p, err := c.patternReg.New(patternName, pattern.Options{
		Sender:          InboxID,
		ResponseTimeout: c.cfg.Pattern.ResponseTimeout,
		BidTimeout:      c.cfg.Pattern.BidTimeout,
		BidPolicy:       c.cfg.Pattern.BidPolicy,
		Logger:          c.logger,
	})
	if err != nil {
		return nil, err
	}

	candidates := c.candidates(t)
	if len(candidates) == 0 {
		return nil, types.NewErrorf(types.ErrNoEligibleAgent,
			"no active agent satisfies capabilities %v for task %s", t.RequiredCapabilities.Tags(), taskID)
	}

	if t.Status == task.StatusCreated {
		if err := c.assignPrimary(taskID, candidates[0]); err != nil {
			return nil, err
		}
		t.AssignedTo = candidates[0]
	}

	start := time.Now()
	results, err := p.Coordinate(ctx, t, candidates, ch)
	if err != nil {
		c.collector.RecordCoordination(patternName, "error", time.Since(start))
		return nil, err
	}
	c.collector.RecordCoordination(patternName, "ok", time.Since(start))

	if !p.FansOut() {
		if err := c.finalize(results[0]); err != nil {
			return nil, err
		}
		return results, nil
	}

	for _, res := range results {
		if err := c.store.AddResult(res); err != nil {
			return nil, err
		}
	}
	if err := c.store.Transition(taskID, task.StatusInProgress); err != nil {
		return nil, err
	}
	c.collector.RecordTransition(string(task.StatusAssigned), string(task.StatusInProgress))

	c.logger.Info("coordination round finished",
		zap.String("task_id", taskID),
		zap.String("pattern", patternName),
		zap.Int("results", len(results)),
	)
	return results, nil
}

// candidates returns the eligible agent IDs for the task, with the assigned
// agent first when the task already carries one.
func (c *Coordinator) candidates(t *task.Task) []string {
	matches := c.reg.FindByCapability(t.RequiredCapabilities)
	ids := make([]string, 0, len(matches))
	for _, agent := range matches {
		if agent.ID == t.AssignedTo {
			ids = append([]string{agent.ID}, ids...)
			continue
		}
		ids = append(ids, agent.ID)
	}
	return ids
}

// assignPrimary pairs the ASSIGNED transition with one load increment,
// rolling the assignment back if the increment fails.
func (c *Coordinator) assignPrimary(taskID, agentID string) error {
	if err := c.store.Assign(taskID, agentID); err != nil {
		return err
	}
	if err := c.reg.IncrementLoad(agentID); err != nil {
		if rollback := c.store.ClearAssignment(taskID); rollback != nil {
			return types.NewErrorf(types.ErrInvalidTransition,
				"task %s assigned but load increment and rollback both failed", taskID).WithCause(rollback)
		}
		return err
	}
	c.collector.RecordTransition(string(task.StatusCreated), string(task.StatusAssigned))
	return nil
}

// AggregateResults merges the task's accumulated results with the named
// aggregator. A live task is finalized with the merged result; a task
// already terminal only reports the merge.
func (c *Coordinator) AggregateResults(ctx context.Context, taskID, aggregatorName string) (*task.Result, error) {
	_, span := c.tracer.Start(ctx, "coordinator.aggregate_results",
		trace.WithAttributes(
			attribute.String("task.id", taskID),
			attribute.String("aggregator", aggregatorName),
		))
	defer span.End()

	results, err := c.store.Results(taskID)
	if err != nil {
		return nil, err
	}
	agg, err := c.aggregatorReg.New(aggregatorName, c.logger)
	if err != nil {
		return nil, err
	}

	merged, err := agg.Aggregate(results)
	if err != nil {
		c.collector.RecordAggregation(aggregatorName, "error")
		return nil, err
	}
	c.collector.RecordAggregation(aggregatorName, "ok")

	if merged.AgentID == "" {
		merged.AgentID = "aggregator:" + aggregatorName
	}

	t, err := c.store.Get(taskID)
	if err != nil {
		return nil, err
	}
	if !t.Status.IsTerminal() {
		if err := c.finalize(merged); err != nil {
			return nil, err
		}
	}
	return &merged, nil
}
