package channel

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/swarmflow/swarmflow/types"
)

// Channel is the message-delivery contract shared by direct, broadcast, and
// topic channels.
type Channel interface {
	// Send enqueues the message for delivery. It never blocks the sender.
	Send(ctx context.Context, msg *types.Message) error

	// Receive dequeues the next message addressed to agentID in priority
	// order, FIFO within a tier. It returns (nil, nil) when the timeout
	// expires with nothing delivered.
	Receive(ctx context.Context, agentID string, timeout time.Duration) (*types.Message, error)

	// Drain removes and returns all messages queued for agentID.
	Drain(agentID string) []*types.Message

	// Close shuts the channel down; subsequent sends fail.
	Close() error
}

// Roster is the registry view broadcast channels use to snapshot the set of
// active agents at send time.
type Roster interface {
	ActiveIDs() []string
}

// DefaultMailboxCapacity bounds each per-agent mailbox. Sends to a full
// mailbox fail with MAILBOX_FULL, never silently dropped; receiving or
// draining frees capacity.
const DefaultMailboxCapacity = 1024

// mailboxes is the shared per-recipient queue set. Mailboxes are created
// lazily on first send or receive, so sending to an unknown recipient is
// fire-and-forget rather than an error.
type mailboxes struct {
	mu       sync.RWMutex
	boxes    map[string]*mailbox
	capacity int
	closed   bool
	logger   *zap.Logger
}

func newMailboxes(capacity int, logger *zap.Logger) *mailboxes {
	if capacity <= 0 {
		capacity = DefaultMailboxCapacity
	}
	return &mailboxes{
		boxes:    make(map[string]*mailbox),
		capacity: capacity,
		logger:   logger,
	}
}

func (s *mailboxes) box(agentID string) (*mailbox, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, types.NewError(types.ErrChannelClosed, "channel is closed")
	}
	if box, ok := s.boxes[agentID]; ok {
		s.mu.RUnlock()
		return box, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, types.NewError(types.ErrChannelClosed, "channel is closed")
	}
	if box, ok := s.boxes[agentID]; ok {
		return box, nil
	}
	box := newMailbox(s.capacity)
	s.boxes[agentID] = box
	return box, nil
}

// deliver enqueues a copy of msg for one recipient.
func (s *mailboxes) deliver(agentID string, msg *types.Message) error {
	box, err := s.box(agentID)
	if err != nil {
		return err
	}
	if !box.push(msg) {
		s.logger.Warn("mailbox full, message refused",
			zap.String("to", agentID),
			zap.String("msg_id", msg.ID),
			zap.String("type", string(msg.Type)),
		)
		return types.NewErrorf(types.ErrMailboxFull, "mailbox for %s is full", agentID)
	}
	return nil
}

func (s *mailboxes) receive(ctx context.Context, agentID string, timeout time.Duration) (*types.Message, error) {
	box, err := s.box(agentID)
	if err != nil {
		return nil, err
	}
	return box.receive(ctx, timeout)
}

func (s *mailboxes) drain(agentID string) []*types.Message {
	s.mu.RLock()
	box, ok := s.boxes[agentID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	return box.drain()
}

func (s *mailboxes) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// stamp fills in the message identity fields the sender may have left blank.
func stamp(msg *types.Message) {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
}
