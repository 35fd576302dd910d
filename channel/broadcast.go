package channel

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/swarmflow/swarmflow/types"
)

// BroadcastChannel delivers a copy of each message to every agent active at
// send time. The roster is snapshotted per send: agents registered afterward
// do not retroactively receive earlier broadcasts.
type BroadcastChannel struct {
	boxes  *mailboxes
	roster Roster
	logger *zap.Logger
}

// NewBroadcast creates a broadcast channel over the given roster.
func NewBroadcast(roster Roster, capacity int, logger *zap.Logger) *BroadcastChannel {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "broadcast_channel"))
	return &BroadcastChannel{
		boxes:  newMailboxes(capacity, logger),
		roster: roster,
		logger: logger,
	}
}

// Send delivers a copy to every currently active agent except the sender.
// A message with an explicit recipient is delivered directly instead.
func (c *BroadcastChannel) Send(ctx context.Context, msg *types.Message) error {
	if msg == nil {
		return types.NewError(types.ErrInvalidInput, "nil message")
	}
	stamp(msg)

	if msg.To != "" {
		return c.boxes.deliver(msg.To, msg)
	}

	recipients := c.roster.ActiveIDs()
	delivered := 0
	for _, id := range recipients {
		if id == msg.From {
			continue
		}
		if err := c.boxes.deliver(id, msg.Clone()); err != nil {
			return err
		}
		delivered++
	}

	c.logger.Debug("message broadcast",
		zap.String("msg_id", msg.ID),
		zap.String("from", msg.From),
		zap.Int("recipients", delivered),
	)
	return nil
}

// Receive dequeues the next message for agentID.
func (c *BroadcastChannel) Receive(ctx context.Context, agentID string, timeout time.Duration) (*types.Message, error) {
	return c.boxes.receive(ctx, agentID, timeout)
}

// Drain empties the agent's mailbox.
func (c *BroadcastChannel) Drain(agentID string) []*types.Message {
	return c.boxes.drain(agentID)
}

// Close shuts the channel down.
func (c *BroadcastChannel) Close() error {
	c.boxes.close()
	return nil
}

var _ Channel = (*BroadcastChannel)(nil)
