package pattern

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/swarmflow/swarmflow/channel"
	"github.com/swarmflow/swarmflow/task"
	"github.com/swarmflow/swarmflow/types"
)

// Hierarchical delegates the task to a lead agent, the first candidate, and
// blocks for that agent's RESULT. The lead may fan sub-tasks out to the
// remaining candidates on its own; this pattern only talks to the lead. The
// result is returned as-is, delegation rather than merging.
type Hierarchical struct {
	opts Options
}

// NewHierarchical creates a hierarchical pattern.
func NewHierarchical(opts Options) *Hierarchical {
	opts = opts.withDefaults()
	opts.Logger = opts.Logger.With(zap.String("pattern", NameHierarchical))
	return &Hierarchical{opts: opts}
}

// Coordinate implements Pattern.
func (p *Hierarchical) Coordinate(ctx context.Context, t *task.Task, candidates []string, ch channel.Channel) ([]task.Result, error) {
	if len(candidates) == 0 {
		return nil, types.NewErrorf(types.ErrInvalidInput, "no candidates for task %s", t.ID)
	}
	res, err := delegate(ctx, p.opts, t, candidates[0], ch)
	if err != nil {
		return nil, err
	}
	return []task.Result{res}, nil
}

// delegate sends the task to one agent and waits for its RESULT on a fresh
// reply inbox. A timeout with no result is NO_RESPONSE; messages for other
// tasks or from other senders are discarded.
func delegate(ctx context.Context, opts Options, t *task.Task, agentID string, ch channel.Channel) (task.Result, error) {
	inbox := newInbox(NameHierarchical)
	if err := ch.Send(ctx, assignment(opts.Sender, inbox, agentID, t)); err != nil {
		return task.Result{}, err
	}
	opts.Logger.Debug("task delegated",
		zap.String("task_id", t.ID),
		zap.String("agent_id", agentID),
	)

	deadline := time.Now().Add(opts.ResponseTimeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		msg, err := ch.Receive(ctx, inbox, remaining)
		if err != nil {
			return task.Result{}, err
		}
		if msg == nil {
			break
		}
		if msg.Type != types.MessageResult || msg.TaskID != t.ID || msg.From != agentID {
			continue
		}
		return resultFromMessage(msg, t.ID), nil
	}

	return task.Result{}, types.NewErrorf(types.ErrNoResponse,
		"agent %s did not answer for task %s within %s", agentID, t.ID, opts.ResponseTimeout)
}

// FansOut implements Pattern. Hierarchical delegates to a single lead.
func (p *Hierarchical) FansOut() bool { return false }

var _ Pattern = (*Hierarchical)(nil)
