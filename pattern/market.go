package pattern

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/swarmflow/swarmflow/channel"
	"github.com/swarmflow/swarmflow/task"
	"github.com/swarmflow/swarmflow/types"
)

// BidPolicy selects the winning bid.
type BidPolicy string

const (
	// BidLowestCost awards the task to the cheapest bidder.
	BidLowestCost BidPolicy = "lowest-cost"

	// BidHighestConfidence awards the task to the most confident bidder.
	BidHighestConfidence BidPolicy = "highest-confidence"
)

// Valid reports whether the policy is one of the known values.
func (p BidPolicy) Valid() bool {
	return p == BidLowestCost || p == BidHighestConfidence
}

// Bid is an agent's answer to a task auction.
type Bid struct {
	// Cost is the agent's estimated cost of executing the task.
	Cost float64 `json:"cost"`

	// Confidence is the agent's self-assessed fitness, higher is better.
	Confidence float64 `json:"confidence"`
}

// MarketBased auctions the task: it sends a QUERY to every candidate,
// collects RESPONSE bids until the bid deadline, awards the task to the best
// bid under the configured policy, and then delegates to the winner like the
// hierarchical pattern. Candidates that never bid are treated as declining.
type MarketBased struct {
	opts Options
}

// NewMarketBased creates a market-based pattern.
func NewMarketBased(opts Options) *MarketBased {
	opts = opts.withDefaults()
	opts.Logger = opts.Logger.With(zap.String("pattern", NameMarket))
	return &MarketBased{opts: opts}
}

// Coordinate implements Pattern.
func (p *MarketBased) Coordinate(ctx context.Context, t *task.Task, candidates []string, ch channel.Channel) ([]task.Result, error) {
	if len(candidates) == 0 {
		return nil, types.NewErrorf(types.ErrInvalidInput, "no candidates for task %s", t.ID)
	}

	winner, err := p.auction(ctx, t, candidates, ch)
	if err != nil {
		return nil, err
	}
	p.opts.Logger.Debug("auction won",
		zap.String("task_id", t.ID),
		zap.String("agent_id", winner),
	)

	res, err := delegate(ctx, p.opts, t, winner, ch)
	if err != nil {
		return nil, err
	}
	return []task.Result{res}, nil
}

// auction runs the bid round and returns the winning agent ID.
func (p *MarketBased) auction(ctx context.Context, t *task.Task, candidates []string, ch channel.Channel) (string, error) {
	inbox := newInbox(NameMarket)
	expected := make(map[string]bool, len(candidates))
	for _, agentID := range candidates {
		msg := types.NewMessage(types.MessageQuery, p.opts.Sender)
		msg.To = agentID
		msg.ReplyTo = inbox
		msg.TaskID = t.ID
		msg.Priority = t.Priority
		msg.Content = t
		if err := ch.Send(ctx, msg); err != nil {
			return "", err
		}
		expected[agentID] = true
	}

	bids := make(map[string]Bid, len(candidates))
	deadline := time.Now().Add(p.opts.BidTimeout)
	for len(bids) < len(candidates) {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		msg, err := ch.Receive(ctx, inbox, remaining)
		if err != nil {
			return "", err
		}
		if msg == nil {
			break
		}
		if msg.Type != types.MessageResponse || msg.TaskID != t.ID || !expected[msg.From] {
			continue
		}
		bid, ok := bidFromMessage(msg)
		if !ok {
			p.opts.Logger.Warn("unintelligible bid discarded",
				zap.String("task_id", t.ID),
				zap.String("agent_id", msg.From),
			)
			continue
		}
		expected[msg.From] = false
		bids[msg.From] = bid
	}

	if len(bids) == 0 {
		return "", types.NewErrorf(types.ErrNoResponse,
			"no candidate bid for task %s within %s", t.ID, p.opts.BidTimeout)
	}
	return p.pick(bids), nil
}

// pick applies the bid policy, breaking ties by lowest agent ID.
func (p *MarketBased) pick(bids map[string]Bid) string {
	var winner string
	var best float64
	for agentID, bid := range bids {
		score := p.score(bid)
		switch {
		case winner == "", score > best:
			winner, best = agentID, score
		case score == best && agentID < winner:
			winner = agentID
		}
	}
	return winner
}

// score maps a bid onto a single axis where higher wins.
func (p *MarketBased) score(bid Bid) float64 {
	if p.opts.BidPolicy == BidHighestConfidence {
		return bid.Confidence
	}
	return -bid.Cost
}

// bidFromMessage extracts a bid from a RESPONSE payload. Bare numbers are
// read as a cost with zero confidence.
func bidFromMessage(msg *types.Message) (Bid, bool) {
	switch v := msg.Content.(type) {
	case Bid:
		return v, true
	case *Bid:
		return *v, true
	case float64:
		return Bid{Cost: v}, true
	case int:
		return Bid{Cost: float64(v)}, true
	default:
		return Bid{}, false
	}
}

// FansOut implements Pattern. The auction selects one winner to delegate to.
func (p *MarketBased) FansOut() bool { return false }

var _ Pattern = (*MarketBased)(nil)
