package aggregate

import (
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/swarmflow/swarmflow/task"
	"github.com/swarmflow/swarmflow/types"
)

// Weighted scales each agent's contribution by a per-agent weight. Agents
// without an entry in the weight table get weight 1.0. When every successful
// payload is numeric the output is the weighted mean; otherwise payloads are
// concatenated in descending weight order (input order within equal weights).
type Weighted struct {
	weights map[string]float64
	logger  *zap.Logger
}

// NewWeighted creates a weighted aggregator. A nil weight table treats every
// agent as weight 1.0.
func NewWeighted(weights map[string]float64, logger *zap.Logger) *Weighted {
	if logger == nil {
		logger = zap.NewNop()
	}
	cloned := make(map[string]float64, len(weights))
	for agentID, w := range weights {
		cloned[agentID] = w
	}
	return &Weighted{
		weights: cloned,
		logger:  logger.With(zap.String("aggregator", NameWeighted)),
	}
}

// Aggregate implements Aggregator.
func (a *Weighted) Aggregate(results []task.Result) (task.Result, error) {
	if len(results) == 0 {
		return task.Result{}, types.NewError(types.ErrEmptyResultSet, "no results to aggregate")
	}

	ok := successful(results)
	if len(ok) == 0 {
		return task.Result{}, types.NewError(types.ErrEmptyResultSet, "all results failed")
	}
	for _, r := range ok {
		if a.weight(r.AgentID) < 0 {
			return task.Result{}, types.NewErrorf(types.ErrInvalidWeight,
				"agent %s has negative weight %v", r.AgentID, a.weight(r.AgentID))
		}
	}

	var output any
	if nums, numeric := numericPayloads(ok); numeric {
		output = a.weightedMean(ok, nums)
	} else {
		output = a.weightedConcat(ok)
	}

	a.logger.Debug("results aggregated",
		zap.String("task_id", ok[0].TaskID),
		zap.Int("result_count", len(ok)),
	)
	return task.Result{
		TaskID:     ok[0].TaskID,
		Output:     output,
		Status:     task.StatusCompleted,
		ProducedAt: time.Now(),
	}, nil
}

func (a *Weighted) weight(agentID string) float64 {
	if w, ok := a.weights[agentID]; ok {
		return w
	}
	return 1.0
}

func (a *Weighted) weightedMean(results []task.Result, nums []float64) float64 {
	var sum, total float64
	for i, r := range results {
		w := a.weight(r.AgentID)
		sum += nums[i] * w
		total += w
	}
	if total == 0 {
		return 0
	}
	return sum / total
}

func (a *Weighted) weightedConcat(results []task.Result) string {
	ordered := make([]task.Result, len(results))
	copy(ordered, results)
	sort.SliceStable(ordered, func(i, j int) bool {
		return a.weight(ordered[i].AgentID) > a.weight(ordered[j].AgentID)
	})
	parts := make([]string, 0, len(ordered))
	for _, r := range ordered {
		parts = append(parts, payloadString(r.Output))
	}
	return strings.Join(parts, "\n")
}

// numericPayloads extracts float64 values when every payload is numeric.
func numericPayloads(results []task.Result) ([]float64, bool) {
	nums := make([]float64, len(results))
	for i, r := range results {
		n, ok := asFloat(r.Output)
		if !ok {
			return nil, false
		}
		nums[i] = n
	}
	return nums, true
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

var _ Aggregator = (*Weighted)(nil)
