// Package task holds task definitions, their lifecycle state machine, and
// accumulated results.
//
// The state machine:
//
//	CREATED --distribute--> ASSIGNED --start--> IN_PROGRESS --complete--> COMPLETED
//	CREATED/ASSIGNED/IN_PROGRESS --fail--> FAILED
//	CREATED/ASSIGNED/IN_PROGRESS --cancel--> CANCELLED
//
// COMPLETED, FAILED, and CANCELLED are terminal and absorbing: any further
// transition attempt fails with INVALID_TRANSITION. Transitions on one task
// are strictly ordered; the store serializes them with a per-task mutex so
// unrelated tasks never contend.
package task
