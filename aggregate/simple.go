package aggregate

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/swarmflow/swarmflow/task"
	"github.com/swarmflow/swarmflow/types"
)

// CombineFunc folds a non-empty result sequence into a single payload. It is
// called with the results in their original input order.
type CombineFunc func(results []task.Result) (any, error)

// Simple applies a caller-supplied combining function over the result
// payloads. The output is deterministic given the same input order.
type Simple struct {
	combine CombineFunc
	logger  *zap.Logger
}

// NewSimple creates a simple aggregator. A nil combine func concatenates the
// successful payloads in input order, one per line.
func NewSimple(combine CombineFunc, logger *zap.Logger) *Simple {
	if combine == nil {
		combine = concatPayloads
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simple{
		combine: combine,
		logger:  logger.With(zap.String("aggregator", NameSimple)),
	}
}

// Aggregate implements Aggregator.
func (a *Simple) Aggregate(results []task.Result) (task.Result, error) {
	if len(results) == 0 {
		return task.Result{}, types.NewError(types.ErrEmptyResultSet, "no results to aggregate")
	}

	output, err := a.combine(results)
	if err != nil {
		return task.Result{}, err
	}

	a.logger.Debug("results aggregated",
		zap.String("task_id", results[0].TaskID),
		zap.Int("result_count", len(results)),
	)
	return task.Result{
		TaskID:     results[0].TaskID,
		Output:     output,
		Status:     task.StatusCompleted,
		ProducedAt: time.Now(),
	}, nil
}

// concatPayloads is the default combine func: successful payloads joined in
// input order.
func concatPayloads(results []task.Result) (any, error) {
	ok := successful(results)
	if len(ok) == 0 {
		return nil, types.NewError(types.ErrEmptyResultSet, "all results failed")
	}
	parts := make([]string, 0, len(ok))
	for _, r := range ok {
		parts = append(parts, payloadString(r.Output))
	}
	return strings.Join(parts, "\n"), nil
}

var _ Aggregator = (*Simple)(nil)
