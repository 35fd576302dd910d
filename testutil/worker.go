package testutil

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/swarmflow/swarmflow/channel"
	"github.com/swarmflow/swarmflow/pattern"
	"github.com/swarmflow/swarmflow/task"
	"github.com/swarmflow/swarmflow/types"
)

// pollInterval bounds each blocking receive so workers notice cancellation.
const pollInterval = 50 * time.Millisecond

// Worker is a scripted agent. It answers TASK_ASSIGNMENT messages with a
// RESULT and QUERY messages with a RESPONSE bid, both sent to the message's
// reply address.
type Worker struct {
	// ID is the agent ID the worker receives on.
	ID string

	// Channel carries the worker's traffic.
	Channel channel.Channel

	// Output is the payload returned for assignments.
	Output any

	// Fail, when non-empty, makes the worker answer assignments with a
	// failed result carrying this error text.
	Fail string

	// Silent makes the worker swallow assignments without answering.
	Silent bool

	// Bid, when non-nil, is the worker's answer to bid queries. A nil Bid
	// declines every auction.
	Bid *pattern.Bid

	// Delay is slept before each answer.
	Delay time.Duration
}

// Run drains the worker's mailbox until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	for {
		msg, err := w.Channel.Receive(ctx, w.ID, pollInterval)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		if msg == nil {
			continue
		}
		if err := w.handle(ctx, msg); err != nil {
			return err
		}
	}
}

func (w *Worker) handle(ctx context.Context, msg *types.Message) error {
	switch msg.Type {
	case types.MessageTaskAssignment:
		if w.Silent {
			return nil
		}
		w.sleep(ctx)
		return w.reply(ctx, msg, types.MessageResult, w.result(msg.TaskID))
	case types.MessageQuery:
		if w.Bid == nil {
			return nil
		}
		w.sleep(ctx)
		return w.reply(ctx, msg, types.MessageResponse, *w.Bid)
	default:
		return nil
	}
}

func (w *Worker) result(taskID string) task.Result {
	res := task.Result{
		TaskID:     taskID,
		AgentID:    w.ID,
		Status:     task.StatusCompleted,
		Output:     w.Output,
		ProducedAt: time.Now(),
	}
	if w.Fail != "" {
		res.Status = task.StatusFailed
		res.Error = w.Fail
		res.Output = nil
	}
	return res
}

func (w *Worker) reply(ctx context.Context, in *types.Message, msgType types.MessageType, content any) error {
	out := types.NewMessage(msgType, w.ID)
	out.To = in.ReplyTo
	out.TaskID = in.TaskID
	out.Content = content
	return w.Channel.Send(ctx, out)
}

func (w *Worker) sleep(ctx context.Context) {
	if w.Delay <= 0 {
		return
	}
	select {
	case <-time.After(w.Delay):
	case <-ctx.Done():
	}
}

// Start launches the workers and returns a stop func that cancels them and
// waits for a clean exit.
func Start(ctx context.Context, workers ...*Worker) (stop func() error) {
	ctx, cancel := context.WithCancel(ctx)
	g, ctx := errgroup.WithContext(ctx)
	for _, w := range workers {
		g.Go(func() error { return w.Run(ctx) })
	}
	return func() error {
		cancel()
		return g.Wait()
	}
}
