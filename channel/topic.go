package channel

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/swarmflow/swarmflow/types"
)

// TopicChannel delivers each message to every agent subscribed to the
// message topic at send time. Subscription and unsubscription are explicit
// operations on the channel.
type TopicChannel struct {
	boxes  *mailboxes
	mu     sync.RWMutex
	topics map[string]map[string]struct{} // topic -> agent IDs
	logger *zap.Logger
}

// NewTopic creates a topic channel.
func NewTopic(capacity int, logger *zap.Logger) *TopicChannel {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "topic_channel"))
	return &TopicChannel{
		boxes:  newMailboxes(capacity, logger),
		topics: make(map[string]map[string]struct{}),
		logger: logger,
	}
}

// Subscribe adds agentID to the topic's subscriber set.
func (c *TopicChannel) Subscribe(topic, agentID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.topics[topic] == nil {
		c.topics[topic] = make(map[string]struct{})
	}
	c.topics[topic][agentID] = struct{}{}

	c.logger.Debug("subscribed", zap.String("topic", topic), zap.String("agent_id", agentID))
}

// Unsubscribe removes agentID from the topic's subscriber set.
func (c *TopicChannel) Unsubscribe(topic, agentID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if subs, ok := c.topics[topic]; ok {
		delete(subs, agentID)
		if len(subs) == 0 {
			delete(c.topics, topic)
		}
	}
}

// Subscribers returns the sorted subscriber IDs of a topic.
func (c *TopicChannel) Subscribers(topic string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	subs := make([]string, 0, len(c.topics[topic]))
	for id := range c.topics[topic] {
		subs = append(subs, id)
	}
	sort.Strings(subs)
	return subs
}

// Send delivers a copy to every subscriber of msg.Topic except the sender.
// A topic with no subscribers is not an error; the message is dropped after
// a debug log, matching fire-and-forget semantics. A message with an
// explicit recipient is delivered directly, bypassing subscriptions, so
// request/reply protocols work over a topic channel.
func (c *TopicChannel) Send(ctx context.Context, msg *types.Message) error {
	if msg == nil {
		return types.NewError(types.ErrInvalidInput, "nil message")
	}
	stamp(msg)

	if msg.To != "" {
		return c.boxes.deliver(msg.To, msg)
	}
	if msg.Topic == "" {
		return types.NewError(types.ErrInvalidInput, "topic message requires a topic or a recipient")
	}

	subscribers := c.Subscribers(msg.Topic)
	delivered := 0
	for _, id := range subscribers {
		if id == msg.From {
			continue
		}
		if err := c.boxes.deliver(id, msg.Clone()); err != nil {
			return err
		}
		delivered++
	}

	c.logger.Debug("message published",
		zap.String("msg_id", msg.ID),
		zap.String("topic", msg.Topic),
		zap.Int("subscribers", delivered),
	)
	return nil
}

// Receive dequeues the next message for agentID.
func (c *TopicChannel) Receive(ctx context.Context, agentID string, timeout time.Duration) (*types.Message, error) {
	return c.boxes.receive(ctx, agentID, timeout)
}

// Drain empties the agent's mailbox.
func (c *TopicChannel) Drain(agentID string) []*types.Message {
	return c.boxes.drain(agentID)
}

// Close shuts the channel down.
func (c *TopicChannel) Close() error {
	c.boxes.close()
	return nil
}

var _ Channel = (*TopicChannel)(nil)
