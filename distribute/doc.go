// Package distribute chooses which agent receives a task.
//
// All strategies share one invariant: a successful Distribute leaves the task
// ASSIGNED with the chosen agent's load incremented exactly once, and a
// failed Distribute leaves both untouched. Assignment and increment are
// applied as a single logical operation with rollback.
//
// Strategies are selected by name through a factory registry, so callers can
// plug new strategies without changing the coordinator's interface.
package distribute
