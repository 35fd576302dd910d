package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/swarmflow/swarmflow/pattern"
	"github.com/swarmflow/swarmflow/persistence"
	"github.com/swarmflow/swarmflow/types"
)

// DefaultEnvPrefix is the prefix for environment variable overrides.
const DefaultEnvPrefix = "SWARMFLOW"

// Loader loads configuration with the precedence defaults → YAML file →
// environment variables.
type Loader struct {
	path      string
	envPrefix string
}

// NewLoader creates a loader with no config file and the default env prefix.
func NewLoader() *Loader {
	return &Loader{envPrefix: DefaultEnvPrefix}
}

// WithConfigPath sets the YAML file to load. An empty path skips the file
// layer.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.path = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Load assembles and validates the configuration.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	if l.path != "" {
		data, err := os.ReadFile(l.path)
		if err != nil {
			return nil, types.NewErrorf(types.ErrInvalidInput, "cannot read config file %s", l.path).WithCause(err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, types.NewErrorf(types.ErrInvalidInput, "cannot parse config file %s", l.path).WithCause(err)
		}
	}

	l.applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides individual fields from the environment.
func (l *Loader) applyEnv(cfg *Config) {
	if v, ok := l.lookupInt("CHANNEL_MAILBOX_CAPACITY"); ok {
		cfg.Channel.MailboxCapacity = v
	}
	if v, ok := l.lookupDuration("PATTERN_RESPONSE_TIMEOUT"); ok {
		cfg.Pattern.ResponseTimeout = v
	}
	if v, ok := l.lookupDuration("PATTERN_BID_TIMEOUT"); ok {
		cfg.Pattern.BidTimeout = v
	}
	if v, ok := l.lookup("PATTERN_BID_POLICY"); ok {
		cfg.Pattern.BidPolicy = pattern.BidPolicy(v)
	}
	if v, ok := l.lookup("STORE_TYPE"); ok {
		cfg.Store.Type = persistence.StoreType(v)
	}
	if v, ok := l.lookup("STORE_PATH"); ok {
		cfg.Store.Path = v
	}
	if v, ok := l.lookup("STORE_REDIS_ADDR"); ok {
		cfg.Store.Redis.Addr = v
	}
	if v, ok := l.lookup("STORE_REDIS_PASSWORD"); ok {
		cfg.Store.Redis.Password = v
	}
	if v, ok := l.lookup("METRICS_NAMESPACE"); ok {
		cfg.Metrics.Namespace = v
	}
}

func (l *Loader) lookup(key string) (string, bool) {
	return os.LookupEnv(l.envPrefix + "_" + key)
}

func (l *Loader) lookupInt(key string) (int, bool) {
	raw, ok := l.lookup(key)
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (l *Loader) lookupDuration(key string) (time.Duration, bool) {
	raw, ok := l.lookup(key)
	if !ok {
		return 0, false
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
