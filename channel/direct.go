package channel

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/swarmflow/swarmflow/types"
)

// DirectChannel delivers each message only to its exact recipient.
type DirectChannel struct {
	boxes  *mailboxes
	logger *zap.Logger
}

// NewDirect creates a direct channel. capacity <= 0 uses
// DefaultMailboxCapacity.
func NewDirect(capacity int, logger *zap.Logger) *DirectChannel {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "direct_channel"))
	return &DirectChannel{
		boxes:  newMailboxes(capacity, logger),
		logger: logger,
	}
}

// Send enqueues the message for its recipient. Unknown recipients are not an
// error at send time; the message is simply never collected.
func (c *DirectChannel) Send(ctx context.Context, msg *types.Message) error {
	if msg == nil {
		return types.NewError(types.ErrInvalidInput, "nil message")
	}
	if msg.To == "" {
		return types.NewError(types.ErrInvalidInput, "direct message requires a recipient")
	}
	stamp(msg)

	if err := c.boxes.deliver(msg.To, msg); err != nil {
		return err
	}

	c.logger.Debug("message sent",
		zap.String("msg_id", msg.ID),
		zap.String("from", msg.From),
		zap.String("to", msg.To),
		zap.String("type", string(msg.Type)),
	)
	return nil
}

// Receive dequeues the next message for agentID.
func (c *DirectChannel) Receive(ctx context.Context, agentID string, timeout time.Duration) (*types.Message, error) {
	return c.boxes.receive(ctx, agentID, timeout)
}

// Drain empties the agent's mailbox.
func (c *DirectChannel) Drain(agentID string) []*types.Message {
	return c.boxes.drain(agentID)
}

// Close shuts the channel down.
func (c *DirectChannel) Close() error {
	c.boxes.close()
	return nil
}

var _ Channel = (*DirectChannel)(nil)
