// Package coordinator is the façade over the coordination core: it creates
// tasks, distributes them to agents, routes messages, runs coordination
// patterns, and aggregates results.
//
// The coordinator is the only component that moves tasks into a terminal
// state, and it pairs every terminal transition with exactly one load
// decrement on the assigned agent. All strategy families (distributors,
// aggregators, patterns) are resolved by string name, so callers can pick
// behavior per call without changing the interface.
package coordinator
