package persistence

import (
	"context"
	"time"

	"github.com/swarmflow/swarmflow/registry"
	"github.com/swarmflow/swarmflow/task"
	"github.com/swarmflow/swarmflow/types"
)

// Snapshot is one durable image of the coordination state.
type Snapshot struct {
	// Registry holds the agent registry state.
	Registry *registry.Snapshot `json:"registry"`

	// Tasks holds the task store state.
	Tasks *task.Snapshot `json:"tasks"`

	// SavedAt is when the snapshot was taken.
	SavedAt time.Time `json:"saved_at"`
}

// StoreType selects the storage backend.
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeFile   StoreType = "file"
	StoreTypeRedis  StoreType = "redis"
)

// SnapshotStore persists coordination snapshots. Stores hold a single
// current snapshot; Save replaces it.
type SnapshotStore interface {
	// Save persists the snapshot, replacing any previous one.
	Save(ctx context.Context, snap *Snapshot) error

	// Load returns the current snapshot. It fails with NOT_FOUND when
	// nothing has been saved yet.
	Load(ctx context.Context) (*Snapshot, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// RedisConfig contains redis-specific configuration.
type RedisConfig struct {
	// Addr is the redis server address, host:port.
	Addr string `json:"addr" yaml:"addr"`

	// Password is the redis password, optional.
	Password string `json:"password" yaml:"password"`

	// DB is the redis database number.
	DB int `json:"db" yaml:"db"`

	// KeyPrefix namespaces the snapshot key.
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix"`
}

// StoreConfig configures a snapshot store.
type StoreConfig struct {
	// Type is the storage backend type.
	Type StoreType `json:"type" yaml:"type"`

	// Path is the snapshot file path for the file backend.
	Path string `json:"path" yaml:"path"`

	// Redis configures the redis backend.
	Redis RedisConfig `json:"redis" yaml:"redis"`
}

// DefaultStoreConfig returns the default store configuration.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Type: StoreTypeMemory,
		Path: "./data/snapshot.json",
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			KeyPrefix: "swarmflow:",
		},
	}
}

// NewSnapshotStore creates a snapshot store for the configured backend.
func NewSnapshotStore(config StoreConfig) (SnapshotStore, error) {
	switch config.Type {
	case StoreTypeMemory:
		return NewMemoryStore(), nil
	case StoreTypeFile:
		return NewFileStore(config.Path)
	case StoreTypeRedis:
		return NewRedisStore(config.Redis)
	default:
		return nil, types.NewErrorf(types.ErrInvalidInput, "unsupported snapshot store type %q", config.Type)
	}
}
