package pattern

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/swarmflow/swarmflow/channel"
	"github.com/swarmflow/swarmflow/task"
	"github.com/swarmflow/swarmflow/types"
)

// PeerToPeer fans the task out to every candidate and collects one RESULT
// per responding agent until the deadline. It deliberately returns multiple
// results; feeding them through an aggregator is the caller's choice.
type PeerToPeer struct {
	opts Options
}

// NewPeerToPeer creates a peer-to-peer pattern.
func NewPeerToPeer(opts Options) *PeerToPeer {
	opts = opts.withDefaults()
	opts.Logger = opts.Logger.With(zap.String("pattern", NamePeerToPeer))
	return &PeerToPeer{opts: opts}
}

// Coordinate implements Pattern.
func (p *PeerToPeer) Coordinate(ctx context.Context, t *task.Task, candidates []string, ch channel.Channel) ([]task.Result, error) {
	if len(candidates) == 0 {
		return nil, types.NewErrorf(types.ErrInvalidInput, "no candidates for task %s", t.ID)
	}

	inbox := newInbox(NamePeerToPeer)
	expected := make(map[string]bool, len(candidates))
	for _, agentID := range candidates {
		if err := ch.Send(ctx, assignment(p.opts.Sender, inbox, agentID, t)); err != nil {
			return nil, err
		}
		expected[agentID] = true
	}

	// One result per responding candidate; silence is declining.
	var results []task.Result
	deadline := time.Now().Add(p.opts.ResponseTimeout)
	for len(results) < len(candidates) {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		msg, err := ch.Receive(ctx, inbox, remaining)
		if err != nil {
			return nil, err
		}
		if msg == nil {
			break
		}
		if msg.Type != types.MessageResult || msg.TaskID != t.ID || !expected[msg.From] {
			continue
		}
		expected[msg.From] = false
		results = append(results, resultFromMessage(msg, t.ID))
	}

	if len(results) == 0 {
		return nil, types.NewErrorf(types.ErrNoResponse,
			"no candidate answered for task %s within %s", t.ID, p.opts.ResponseTimeout)
	}

	p.opts.Logger.Debug("results collected",
		zap.String("task_id", t.ID),
		zap.Int("responded", len(results)),
		zap.Int("candidates", len(candidates)),
	)
	return results, nil
}

// FansOut implements Pattern. Every collected result is one peer's
// contribution, even when only one peer responded.
func (p *PeerToPeer) FansOut() bool { return true }

var _ Pattern = (*PeerToPeer)(nil)
