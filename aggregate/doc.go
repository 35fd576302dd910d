// Package aggregate combines the results produced by several agents for one
// task into a single result.
//
// Three strategies are provided. Simple applies a caller-supplied combining
// function over the payloads in input order. Weighted scales each agent's
// contribution by a configured weight, averaging numeric payloads and
// concatenating everything else. Voting picks the payload value produced by
// the most agents, breaking ties by the lowest contributing agent ID.
//
// Strategies are resolvable by name through a Registry, so callers can select
// aggregation behavior from configuration.
package aggregate
