package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/swarmflow/swarmflow/types"
)

// RedisStore keeps the snapshot in a single redis key.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore creates a redis-backed snapshot store and verifies the
// connection.
func NewRedisStore(config RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, types.NewError(types.ErrInvalidInput, "cannot connect to redis").WithCause(err)
	}

	prefix := config.KeyPrefix
	if prefix == "" {
		prefix = "swarmflow:"
	}
	return &RedisStore{
		client: client,
		key:    prefix + "snapshot",
	}, nil
}

// Save implements SnapshotStore.
func (s *RedisStore) Save(ctx context.Context, snap *Snapshot) error {
	if snap == nil {
		return types.NewError(types.ErrInvalidInput, "nil snapshot")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return types.NewError(types.ErrInvalidInput, "snapshot not serializable").WithCause(err)
	}
	return s.client.Set(ctx, s.key, data, 0).Err()
}

// Load implements SnapshotStore.
func (s *RedisStore) Load(ctx context.Context) (*Snapshot, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, types.NewError(types.ErrNotFound, "no snapshot saved")
	}
	if err != nil {
		return nil, err
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, types.NewError(types.ErrInvalidInput, "stored snapshot is corrupt").WithCause(err)
	}
	return &snap, nil
}

// Ping implements SnapshotStore.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close implements SnapshotStore.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ SnapshotStore = (*RedisStore)(nil)
