package channel

import (
	"context"
	"sync"
	"time"

	"github.com/swarmflow/swarmflow/types"
)

// priorityTiers is the number of distinct priority levels.
const priorityTiers = int(types.PriorityCritical) + 1

// mailbox is a per-recipient message queue: one FIFO list per priority tier,
// dequeued highest priority first. A closed-over notify channel wakes at most
// one blocked receiver per enqueue.
type mailbox struct {
	mu       sync.Mutex
	tiers    [priorityTiers][]*types.Message
	size     int
	capacity int
	notify   chan struct{}
}

func newMailbox(capacity int) *mailbox {
	return &mailbox{
		capacity: capacity,
		notify:   make(chan struct{}, 1),
	}
}

// push enqueues without blocking. It reports false when the mailbox is full;
// the caller decides whether that is loggable.
func (m *mailbox) push(msg *types.Message) bool {
	m.mu.Lock()
	if m.capacity > 0 && m.size >= m.capacity {
		m.mu.Unlock()
		return false
	}

	tier := int(msg.Priority)
	if tier < 0 {
		tier = 0
	}
	if tier >= priorityTiers {
		tier = priorityTiers - 1
	}
	m.tiers[tier] = append(m.tiers[tier], msg)
	m.size++
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
	return true
}

// pop dequeues the highest-priority message, FIFO within a tier. Returns nil
// when empty.
func (m *mailbox) pop() *types.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	for tier := priorityTiers - 1; tier >= 0; tier-- {
		queue := m.tiers[tier]
		if len(queue) == 0 {
			continue
		}
		msg := queue[0]
		m.tiers[tier] = queue[1:]
		m.size--
		if m.size > 0 {
			// Keep the wakeup token alive for other blocked receivers.
			select {
			case m.notify <- struct{}{}:
			default:
			}
		}
		return msg
	}
	return nil
}

// receive blocks until a message arrives, the timeout expires, or ctx is
// done. A timeout returns (nil, nil): an empty receive, not an error.
func (m *mailbox) receive(ctx context.Context, timeout time.Duration) (*types.Message, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if msg := m.pop(); msg != nil {
			return msg, nil
		}
		select {
		case <-m.notify:
		case <-timer.C:
			return nil, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// drain removes and returns all queued messages, highest priority first.
func (m *mailbox) drain() []*types.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	drained := make([]*types.Message, 0, m.size)
	for tier := priorityTiers - 1; tier >= 0; tier-- {
		drained = append(drained, m.tiers[tier]...)
		m.tiers[tier] = nil
	}
	m.size = 0
	return drained
}

func (m *mailbox) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.size
}
