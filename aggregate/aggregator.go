package aggregate

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/swarmflow/swarmflow/task"
	"github.com/swarmflow/swarmflow/types"
)

// Strategy names resolvable through the factory registry.
const (
	NameSimple   = "simple"
	NameWeighted = "weighted"
	NameVoting   = "voting"
)

// Aggregator merges the results of several agents into one.
type Aggregator interface {
	// Aggregate combines a non-empty result sequence into a single result.
	// It fails with EMPTY_RESULT_SET when the sequence is empty.
	Aggregate(results []task.Result) (task.Result, error)
}

// Factory builds an aggregator with its default options. Callers needing
// custom options (combine funcs, weight tables) construct the concrete type
// directly.
type Factory func(logger *zap.Logger) Aggregator

// Registry maps strategy names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates a strategy registry pre-populated with the built-in
// aggregators.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register(NameSimple, func(logger *zap.Logger) Aggregator {
		return NewSimple(nil, logger)
	})
	r.Register(NameWeighted, func(logger *zap.Logger) Aggregator {
		return NewWeighted(nil, logger)
	})
	r.Register(NameVoting, func(logger *zap.Logger) Aggregator {
		return NewVoting(logger)
	})
	return r
}

// Register adds or replaces a named factory.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// New builds the named aggregator.
func (r *Registry) New(name string, logger *zap.Logger) (Aggregator, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, types.NewErrorf(types.ErrNotFound, "unknown aggregator %q", name)
	}
	return factory(logger), nil
}

// Names returns the registered strategy names, sorted.
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

// successful filters out failed results, preserving input order.
func successful(results []task.Result) []task.Result {
	kept := make([]task.Result, 0, len(results))
	for _, r := range results {
		if !r.Failed() {
			kept = append(kept, r)
		}
	}
	return kept
}

// payloadString renders a result payload for concatenation and voting.
func payloadString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
