package types

import (
	"time"

	"github.com/google/uuid"
)

// MessageType classifies inter-agent messages.
type MessageType string

const (
	MessageTaskAssignment MessageType = "task_assignment"
	MessageResult         MessageType = "result"
	MessageNotification   MessageType = "notification"
	MessageQuery          MessageType = "query"
	MessageResponse       MessageType = "response"
)

// Message is a unit of inter-agent communication. Messages are created by a
// sender, delivered at most once per matching recipient, and retained by the
// channel until delivered or explicitly drained.
type Message struct {
	// ID is the unique identifier for the message.
	ID string `json:"id"`

	// From is the sender agent ID.
	From string `json:"from"`

	// To is the recipient agent ID (empty for broadcast).
	To string `json:"to,omitempty"`

	// Topic routes the message on topic channels.
	Topic string `json:"topic,omitempty"`

	// ReplyTo is the inbox the sender expects responses on. Coordination
	// patterns set it to a per-call reply address.
	ReplyTo string `json:"reply_to,omitempty"`

	// Type is the message type.
	Type MessageType `json:"type"`

	// Priority controls dequeue order within a mailbox, critical first.
	Priority Priority `json:"priority"`

	// TaskID references the task this message concerns, if any.
	TaskID string `json:"task_id,omitempty"`

	// Content is the opaque payload.
	Content any `json:"content,omitempty"`

	// Metadata contains message metadata.
	Metadata map[string]string `json:"metadata,omitempty"`

	// CreatedAt is when the message was created.
	CreatedAt time.Time `json:"created_at"`
}

// NewMessage creates a message with a fresh ID and timestamp.
func NewMessage(msgType MessageType, from string) *Message {
	return &Message{
		ID:        uuid.New().String(),
		From:      from,
		Type:      msgType,
		Priority:  PriorityNormal,
		CreatedAt: time.Now(),
	}
}

// IsBroadcast reports whether the message has no explicit recipient.
func (m *Message) IsBroadcast() bool {
	return m.To == ""
}

// Clone returns a shallow copy safe to enqueue into another mailbox. Content
// stays shared; it is treated as opaque and immutable by the core.
func (m *Message) Clone() *Message {
	c := *m
	if m.Metadata != nil {
		c.Metadata = make(map[string]string, len(m.Metadata))
		for k, v := range m.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}
