// Package config loads coordinator configuration from YAML with environment
// variable overrides.
//
// Precedence: defaults, then the YAML file, then environment variables.
package config

import (
	"time"

	"github.com/swarmflow/swarmflow/pattern"
	"github.com/swarmflow/swarmflow/persistence"
	"github.com/swarmflow/swarmflow/types"
)

// Config is the complete coordinator configuration.
type Config struct {
	// Channel configures message delivery.
	Channel ChannelConfig `yaml:"channel"`

	// Pattern configures coordination protocol rounds.
	Pattern PatternConfig `yaml:"pattern"`

	// Store configures snapshot persistence.
	Store persistence.StoreConfig `yaml:"store"`

	// Metrics configures the prometheus collector.
	Metrics MetricsConfig `yaml:"metrics"`
}

// ChannelConfig configures message delivery.
type ChannelConfig struct {
	// MailboxCapacity bounds each per-agent mailbox.
	MailboxCapacity int `yaml:"mailbox_capacity"`
}

// PatternConfig configures coordination protocol rounds.
type PatternConfig struct {
	// ResponseTimeout bounds the wait for RESULT messages.
	ResponseTimeout time.Duration `yaml:"response_timeout"`

	// BidTimeout bounds the market pattern's bid round.
	BidTimeout time.Duration `yaml:"bid_timeout"`

	// BidPolicy selects the winning bid: lowest-cost or
	// highest-confidence.
	BidPolicy pattern.BidPolicy `yaml:"bid_policy"`
}

// MetricsConfig configures the prometheus collector.
type MetricsConfig struct {
	// Namespace prefixes every metric name.
	Namespace string `yaml:"namespace"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Channel: ChannelConfig{
			MailboxCapacity: 1024,
		},
		Pattern: PatternConfig{
			ResponseTimeout: pattern.DefaultResponseTimeout,
			BidTimeout:      pattern.DefaultBidTimeout,
			BidPolicy:       pattern.BidLowestCost,
		},
		Store: persistence.DefaultStoreConfig(),
		Metrics: MetricsConfig{
			Namespace: "swarmflow",
		},
	}
}

// Validate checks the configuration for values the coordinator cannot run
// with.
func (c *Config) Validate() error {
	if c.Channel.MailboxCapacity <= 0 {
		return types.NewError(types.ErrInvalidInput, "channel.mailbox_capacity must be positive")
	}
	if c.Pattern.ResponseTimeout <= 0 {
		return types.NewError(types.ErrInvalidInput, "pattern.response_timeout must be positive")
	}
	if c.Pattern.BidTimeout <= 0 {
		return types.NewError(types.ErrInvalidInput, "pattern.bid_timeout must be positive")
	}
	if !c.Pattern.BidPolicy.Valid() {
		return types.NewErrorf(types.ErrInvalidInput, "pattern.bid_policy %q is unknown", c.Pattern.BidPolicy)
	}
	switch c.Store.Type {
	case persistence.StoreTypeMemory, persistence.StoreTypeFile, persistence.StoreTypeRedis:
	default:
		return types.NewErrorf(types.ErrInvalidInput, "store.type %q is unknown", c.Store.Type)
	}
	return nil
}
