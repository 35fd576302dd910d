package aggregate

import (
	"go.uber.org/zap"

	"github.com/swarmflow/swarmflow/task"
	"github.com/swarmflow/swarmflow/types"
)

// Voting selects the payload value produced by the most agents. Payloads are
// compared by their string rendering. Ties are broken by the lowest
// contributing agent ID, so the outcome is reproducible.
type Voting struct {
	logger *zap.Logger
}

// NewVoting creates a voting aggregator.
func NewVoting(logger *zap.Logger) *Voting {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Voting{logger: logger.With(zap.String("aggregator", NameVoting))}
}

// Aggregate implements Aggregator. It returns the result of the winning
// value's lowest-ID contributor rather than synthesizing a new payload.
func (a *Voting) Aggregate(results []task.Result) (task.Result, error) {
	if len(results) == 0 {
		return task.Result{}, types.NewError(types.ErrEmptyResultSet, "no results to aggregate")
	}

	ok := successful(results)
	if len(ok) == 0 {
		return task.Result{}, types.NewError(types.ErrEmptyResultSet, "all results failed")
	}

	votes := make(map[string]int, len(ok))
	// Lowest contributing agent ID per value, for the tie-break.
	lowest := make(map[string]task.Result, len(ok))
	for _, r := range ok {
		key := payloadString(r.Output)
		votes[key]++
		if cur, seen := lowest[key]; !seen || r.AgentID < cur.AgentID {
			lowest[key] = r
		}
	}

	var winner task.Result
	winnerVotes := -1
	for key, count := range votes {
		candidate := lowest[key]
		switch {
		case count > winnerVotes:
			winner, winnerVotes = candidate, count
		case count == winnerVotes && candidate.AgentID < winner.AgentID:
			winner = candidate
		}
	}

	a.logger.Debug("vote decided",
		zap.String("task_id", winner.TaskID),
		zap.String("agent_id", winner.AgentID),
		zap.Int("votes", winnerVotes),
		zap.Int("result_count", len(ok)),
	)
	return winner, nil
}

var _ Aggregator = (*Voting)(nil)
