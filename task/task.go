package task

import (
	"time"

	"github.com/swarmflow/swarmflow/types"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusCreated    Status = "created"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// IsTerminal returns true if the status is a terminal state.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// transitions lists the legal successor states per state. Terminal states
// have no successors.
var transitions = map[Status][]Status{
	StatusCreated:    {StatusAssigned, StatusFailed, StatusCancelled},
	StatusAssigned:   {StatusInProgress, StatusFailed, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusFailed, StatusCancelled},
}

// CanTransition reports whether moving from s to next is legal.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Task is a unit of work.
type Task struct {
	// ID is the unique task identifier.
	ID string `json:"id"`

	// Name is a short task name.
	Name string `json:"name"`

	// Description is free text describing the work.
	Description string `json:"description,omitempty"`

	// Input is the opaque input payload.
	Input any `json:"input,omitempty"`

	// RequiredCapabilities is the capability set an agent must declare to
	// be eligible for this task.
	RequiredCapabilities types.CapabilitySet `json:"required_capabilities,omitempty"`

	// Priority orders the task against others.
	Priority types.Priority `json:"priority"`

	// Status is the current lifecycle state.
	Status Status `json:"status"`

	// AssignedTo is the agent the task is assigned to (empty when
	// unassigned). A task has at most one assigned agent at a time.
	AssignedTo string `json:"assigned_to,omitempty"`

	// Results accumulates one result per contributing agent.
	Results []Result `json:"results,omitempty"`

	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the task last changed.
	UpdatedAt time.Time `json:"updated_at"`
}

// clone returns an independent copy safe to hand to callers.
func (t *Task) clone() *Task {
	c := *t
	c.RequiredCapabilities = t.RequiredCapabilities.Clone()
	if t.Results != nil {
		c.Results = make([]Result, len(t.Results))
		copy(c.Results, t.Results)
	}
	return &c
}

// Result is the immutable outcome of a completed or failed task, produced by
// one contributing agent.
type Result struct {
	// TaskID references the task.
	TaskID string `json:"task_id"`

	// AgentID is the producing agent.
	AgentID string `json:"agent_id"`

	// Output is the opaque output value on success.
	Output any `json:"output,omitempty"`

	// Error is the human-readable failure description on failure.
	Error string `json:"error,omitempty"`

	// Status mirrors the task's terminal status: completed or failed.
	Status Status `json:"status"`

	// ProducedAt is when the result was recorded.
	ProducedAt time.Time `json:"produced_at"`
}

// Failed reports whether the result describes a failure.
func (r Result) Failed() bool {
	return r.Status == StatusFailed
}
