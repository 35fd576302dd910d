// Package registry tracks known agents, their declared capabilities,
// availability, and current load.
//
// The registry is one of the two pieces of mutable shared state in the
// coordination core (the other is the task store). It is safe for concurrent
// read-mostly access: distributors and patterns read it while registration
// and load updates write it. Agents are removed only through explicit calls,
// never by time-based eviction.
package registry
