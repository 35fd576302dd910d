package task

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/swarmflow/swarmflow/types"
)

// entry wraps a stored task with its transition lock. The store-level RWMutex
// guards only the map; state changes on one task serialize on the entry lock
// so unrelated tasks never contend.
type entry struct {
	mu   sync.Mutex
	task *Task
}

// Store holds task definitions, status, and results in memory.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	logger  *zap.Logger
}

// NewStore creates an empty task store.
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		entries: make(map[string]*entry),
		logger:  logger.With(zap.String("component", "task_store")),
	}
}

// Create stores a new task in CREATED state and returns its ID.
func (s *Store) Create(t *Task) (string, error) {
	if t == nil || t.Name == "" {
		return "", types.NewError(types.ErrInvalidInput, "task name is empty")
	}
	if !t.Priority.Valid() {
		return "", types.NewErrorf(types.ErrInvalidInput, "invalid priority %d", int(t.Priority))
	}

	stored := t.clone()
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	if stored.RequiredCapabilities == nil {
		stored.RequiredCapabilities = types.NewCapabilitySet()
	}
	stored.Status = StatusCreated
	stored.AssignedTo = ""
	stored.Results = nil
	now := time.Now()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[stored.ID]; exists {
		return "", types.NewErrorf(types.ErrInvalidInput, "task ID %s already exists", stored.ID)
	}
	s.entries[stored.ID] = &entry{task: stored}

	s.logger.Info("task created",
		zap.String("task_id", stored.ID),
		zap.String("name", stored.Name),
		zap.String("priority", stored.Priority.String()),
	)
	return stored.ID, nil
}

func (s *Store) entry(taskID string) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[taskID]
	if !ok {
		return nil, types.NewErrorf(types.ErrNotFound, "task %s not found", taskID)
	}
	return e, nil
}

// Get retrieves a copy of the task by ID.
func (s *Store) Get(taskID string) (*Task, error) {
	e, err := s.entry(taskID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.task.clone(), nil
}

// List returns copies of all tasks, newest first.
func (s *Store) List() []*Task {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	tasks := make([]*Task, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		tasks = append(tasks, e.task.clone())
		e.mu.Unlock()
	}
	return tasks
}

// Transition moves the task to the next status, enforcing the state machine.
// Terminal states are absorbing.
func (s *Store) Transition(taskID string, next Status) error {
	e, err := s.entry(taskID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return s.transitionLocked(e, next)
}

func (s *Store) transitionLocked(e *entry, next Status) error {
	if !e.task.Status.CanTransition(next) {
		return types.NewErrorf(types.ErrInvalidTransition,
			"task %s: illegal transition %s -> %s", e.task.ID, e.task.Status, next)
	}
	prev := e.task.Status
	e.task.Status = next
	e.task.UpdatedAt = time.Now()

	s.logger.Debug("task transitioned",
		zap.String("task_id", e.task.ID),
		zap.String("from", string(prev)),
		zap.String("to", string(next)),
	)
	return nil
}

// Assign moves a CREATED task to ASSIGNED and records the agent. It fails
// with INVALID_TRANSITION when the task already carries an assignment:
// re-assignment requires ClearAssignment first.
func (s *Store) Assign(taskID, agentID string) error {
	if agentID == "" {
		return types.NewError(types.ErrInvalidInput, "agent ID is empty")
	}
	e, err := s.entry(taskID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.task.AssignedTo != "" {
		return types.NewErrorf(types.ErrInvalidTransition,
			"task %s already assigned to %s", taskID, e.task.AssignedTo)
	}
	if err := s.transitionLocked(e, StatusAssigned); err != nil {
		return err
	}
	e.task.AssignedTo = agentID
	return nil
}

// ClearAssignment removes the assignment from a non-terminal task, moving it
// back to CREATED so it can be distributed again.
func (s *Store) ClearAssignment(taskID string) error {
	e, err := s.entry(taskID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.task.Status.IsTerminal() {
		return types.NewErrorf(types.ErrInvalidTransition,
			"task %s is terminal (%s)", taskID, e.task.Status)
	}
	e.task.AssignedTo = ""
	e.task.Status = StatusCreated
	e.task.UpdatedAt = time.Now()
	return nil
}

// AddResult records an immutable result against the task. Results are
// accepted while the task is live or in the matching terminal state; the
// caller (the coordinator) decides which results to admit.
func (s *Store) AddResult(res Result) error {
	if res.TaskID == "" || res.AgentID == "" {
		return types.NewError(types.ErrInvalidInput, "result requires task and agent IDs")
	}
	if res.Status != StatusCompleted && res.Status != StatusFailed {
		return types.NewErrorf(types.ErrInvalidInput, "result status must be terminal, got %s", res.Status)
	}

	e, err := s.entry(res.TaskID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if res.ProducedAt.IsZero() {
		res.ProducedAt = time.Now()
	}
	e.task.Results = append(e.task.Results, res)
	e.task.UpdatedAt = time.Now()
	return nil
}

// Results returns the accumulated results of a task.
func (s *Store) Results(taskID string) ([]Result, error) {
	e, err := s.entry(taskID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Result, len(e.task.Results))
	copy(out, e.task.Results)
	return out, nil
}

// Len returns the number of stored tasks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
