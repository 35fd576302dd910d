package channel

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/swarmflow/swarmflow/types"
)

const testTimeout = 200 * time.Millisecond

func directMsg(from, to string, prio types.Priority, content string) *types.Message {
	msg := types.NewMessage(types.MessageNotification, from)
	msg.To = to
	msg.Priority = prio
	msg.Content = content
	return msg
}

// ---------------------------------------------------------------------------
// DirectChannel
// ---------------------------------------------------------------------------

func TestDirect_SendReceive(t *testing.T) {
	t.Parallel()
	c := NewDirect(0, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, c.Send(ctx, directMsg("a1", "a2", types.PriorityNormal, "hello")))

	msg, err := c.Receive(ctx, "a2", testTimeout)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, "a1", msg.From)
}

func TestDirect_ReceiveTimeoutReturnsEmpty(t *testing.T) {
	t.Parallel()
	c := NewDirect(0, zap.NewNop())

	msg, err := c.Receive(context.Background(), "a1", 20*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, msg)
}

func TestDirect_PriorityThenFIFO(t *testing.T) {
	t.Parallel()
	c := NewDirect(0, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, c.Send(ctx, directMsg("s", "r", types.PriorityLow, "low-1")))
	require.NoError(t, c.Send(ctx, directMsg("s", "r", types.PriorityNormal, "normal-1")))
	require.NoError(t, c.Send(ctx, directMsg("s", "r", types.PriorityCritical, "critical-1")))
	require.NoError(t, c.Send(ctx, directMsg("s", "r", types.PriorityCritical, "critical-2")))
	require.NoError(t, c.Send(ctx, directMsg("s", "r", types.PriorityNormal, "normal-2")))

	var got []string
	for i := 0; i < 5; i++ {
		msg, err := c.Receive(ctx, "r", testTimeout)
		require.NoError(t, err)
		require.NotNil(t, msg)
		got = append(got, msg.Content.(string))
	}
	assert.Equal(t, []string{"critical-1", "critical-2", "normal-1", "normal-2", "low-1"}, got)
}

func TestDirect_UnknownRecipientIsFireAndForget(t *testing.T) {
	t.Parallel()
	c := NewDirect(0, zap.NewNop())
	assert.NoError(t, c.Send(context.Background(), directMsg("a1", "ghost", types.PriorityNormal, "void")))
}

func TestDirect_MissingRecipientRejected(t *testing.T) {
	t.Parallel()
	c := NewDirect(0, zap.NewNop())
	err := c.Send(context.Background(), directMsg("a1", "", types.PriorityNormal, "x"))
	assert.True(t, types.IsCode(err, types.ErrInvalidInput))
}

func TestDirect_SendAfterClose(t *testing.T) {
	t.Parallel()
	c := NewDirect(0, zap.NewNop())
	require.NoError(t, c.Close())
	err := c.Send(context.Background(), directMsg("a1", "a2", types.PriorityNormal, "x"))
	assert.True(t, types.IsCode(err, types.ErrChannelClosed))
}

func TestDirect_Drain(t *testing.T) {
	t.Parallel()
	c := NewDirect(0, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, c.Send(ctx, directMsg("s", "r", types.PriorityLow, "one")))
	require.NoError(t, c.Send(ctx, directMsg("s", "r", types.PriorityHigh, "two")))

	drained := c.Drain("r")
	require.Len(t, drained, 2)
	assert.Equal(t, "two", drained[0].Content) // highest priority first

	msg, err := c.Receive(ctx, "r", 20*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, msg)
}

func TestDirect_FullMailboxRefusesSend(t *testing.T) {
	t.Parallel()
	c := NewDirect(1, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, c.Send(ctx, directMsg("s", "r", types.PriorityNormal, "first")))

	err := c.Send(ctx, directMsg("s", "r", types.PriorityNormal, "second"))
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrMailboxFull))
	assert.True(t, types.IsRetryable(err))

	// Receiving frees capacity.
	got, err := c.Receive(ctx, "r", testTimeout)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "first", got.Content)
	require.NoError(t, c.Send(ctx, directMsg("s", "r", types.PriorityNormal, "third")))
}

func TestDirect_ReceiveBlocksUntilSend(t *testing.T) {
	t.Parallel()
	c := NewDirect(0, zap.NewNop())
	ctx := context.Background()

	done := make(chan *types.Message, 1)
	go func() {
		msg, _ := c.Receive(ctx, "r", time.Second)
		done <- msg
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, c.Send(ctx, directMsg("s", "r", types.PriorityNormal, "late")))

	select {
	case msg := <-done:
		require.NotNil(t, msg)
		assert.Equal(t, "late", msg.Content)
	case <-time.After(time.Second):
		t.Fatal("receiver never woke up")
	}
}

func TestDirect_ConcurrentSendersAndReceivers(t *testing.T) {
	t.Parallel()
	c := NewDirect(0, zap.NewNop())
	ctx := context.Background()

	const senders, perSender = 4, 50

	var wg sync.WaitGroup
	for s := 0; s < senders; s++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perSender; i++ {
				require.NoError(t, c.Send(ctx, directMsg("s", "r", types.PriorityNormal, "m")))
			}
		}()
	}

	received := make(chan struct{}, senders*perSender)
	for w := 0; w < 2; w++ {
		go func() {
			for {
				msg, err := c.Receive(ctx, "r", time.Second)
				if err != nil || msg == nil {
					return
				}
				received <- struct{}{}
			}
		}()
	}

	wg.Wait()
	for i := 0; i < senders*perSender; i++ {
		select {
		case <-received:
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d of %d messages delivered", i, senders*perSender)
		}
	}
}

// ---------------------------------------------------------------------------
// BroadcastChannel
// ---------------------------------------------------------------------------

type staticRoster []string

func (r staticRoster) ActiveIDs() []string { return r }

func TestBroadcast_SnapshotAtSendTime(t *testing.T) {
	t.Parallel()
	roster := &mutableRoster{ids: []string{"a1", "a2"}}
	c := NewBroadcast(roster, 0, zap.NewNop())
	ctx := context.Background()

	msg := types.NewMessage(types.MessageNotification, "a1")
	msg.Content = "round-1"
	require.NoError(t, c.Send(ctx, msg))

	// a3 joins after the send; it must not retroactively receive round-1.
	roster.add("a3")

	got, err := c.Receive(ctx, "a2", testTimeout)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "round-1", got.Content)

	late, err := c.Receive(ctx, "a3", 20*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, late)
}

func TestBroadcast_ExcludesSender(t *testing.T) {
	t.Parallel()
	c := NewBroadcast(staticRoster{"a1", "a2", "a3"}, 0, zap.NewNop())
	ctx := context.Background()

	msg := types.NewMessage(types.MessageNotification, "a1")
	require.NoError(t, c.Send(ctx, msg))

	self, err := c.Receive(ctx, "a1", 20*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, self)

	for _, id := range []string{"a2", "a3"} {
		got, err := c.Receive(ctx, id, testTimeout)
		require.NoError(t, err)
		assert.NotNil(t, got, "agent %s should receive the broadcast", id)
	}
}

func TestBroadcast_CopiesAreIndependent(t *testing.T) {
	t.Parallel()
	c := NewBroadcast(staticRoster{"a1", "a2", "a3"}, 0, zap.NewNop())
	ctx := context.Background()

	msg := types.NewMessage(types.MessageNotification, "a1")
	msg.Metadata = map[string]string{"k": "v"}
	require.NoError(t, c.Send(ctx, msg))

	m2, err := c.Receive(ctx, "a2", testTimeout)
	require.NoError(t, err)
	m3, err := c.Receive(ctx, "a3", testTimeout)
	require.NoError(t, err)

	m2.Metadata["k"] = "mutated"
	assert.Equal(t, "v", m3.Metadata["k"])
}

type mutableRoster struct {
	mu  sync.Mutex
	ids []string
}

func (r *mutableRoster) ActiveIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

func (r *mutableRoster) add(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
}

// ---------------------------------------------------------------------------
// TopicChannel
// ---------------------------------------------------------------------------

func TestTopic_DeliversToSubscribersOnly(t *testing.T) {
	t.Parallel()
	c := NewTopic(0, zap.NewNop())
	ctx := context.Background()

	c.Subscribe("alerts", "a1")
	c.Subscribe("alerts", "a2")
	c.Subscribe("reports", "a3")

	msg := types.NewMessage(types.MessageNotification, "sender")
	msg.Topic = "alerts"
	require.NoError(t, c.Send(ctx, msg))

	for _, id := range []string{"a1", "a2"} {
		got, err := c.Receive(ctx, id, testTimeout)
		require.NoError(t, err)
		assert.NotNil(t, got, "subscriber %s should receive", id)
	}

	other, err := c.Receive(ctx, "a3", 20*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestTopic_Unsubscribe(t *testing.T) {
	t.Parallel()
	c := NewTopic(0, zap.NewNop())
	ctx := context.Background()

	c.Subscribe("alerts", "a1")
	c.Unsubscribe("alerts", "a1")

	msg := types.NewMessage(types.MessageNotification, "sender")
	msg.Topic = "alerts"
	require.NoError(t, c.Send(ctx, msg))

	got, err := c.Receive(ctx, "a1", 20*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Empty(t, c.Subscribers("alerts"))
}

func TestTopic_MissingTopicRejected(t *testing.T) {
	t.Parallel()
	c := NewTopic(0, zap.NewNop())
	msg := types.NewMessage(types.MessageNotification, "sender")
	err := c.Send(context.Background(), msg)
	assert.True(t, types.IsCode(err, types.ErrInvalidInput))
}

func TestTopic_ExplicitRecipientBypassesSubscription(t *testing.T) {
	t.Parallel()
	c := NewTopic(0, zap.NewNop())
	ctx := context.Background()

	// Request/reply protocols address replies to a reply inbox that never
	// subscribed to anything.
	msg := types.NewMessage(types.MessageResponse, "sender")
	msg.To = "inbox:round-1"
	msg.Content = "reply"
	require.NoError(t, c.Send(ctx, msg))

	got, err := c.Receive(ctx, "inbox:round-1", testTimeout)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "reply", got.Content)
}
