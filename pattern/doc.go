// Package pattern implements multi-agent collaboration protocols for a
// single task.
//
// A pattern drives one protocol round over a communication channel:
// Hierarchical delegates the task to a lead agent and waits for its result,
// PeerToPeer fans the task out to every candidate and collects whatever
// results arrive before the deadline, and MarketBased auctions the task with
// a bid round and then delegates to the best bidder.
//
// Patterns never write task state. They return the collected results and
// leave lifecycle transitions to the caller, so a timed-out delegation leaves
// the task exactly as the caller assigned it.
package pattern
