package persistence

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/swarmflow/swarmflow/registry"
	"github.com/swarmflow/swarmflow/task"
	"github.com/swarmflow/swarmflow/types"
)

// buildSnapshot assembles a snapshot with one loaded agent and one assigned
// task.
func buildSnapshot(t *testing.T) *Snapshot {
	t.Helper()

	reg := registry.New(zap.NewNop())
	agentID, err := reg.Register(&registry.Agent{
		Name:         "worker",
		Capabilities: types.NewCapabilitySet("text"),
		Metadata:     map[string]string{"model": "small"},
	})
	require.NoError(t, err)
	require.NoError(t, reg.IncrementLoad(agentID))

	store := task.NewStore(zap.NewNop())
	taskID, err := store.Create(&task.Task{Name: "summarize", Priority: types.PriorityHigh})
	require.NoError(t, err)
	require.NoError(t, store.Assign(taskID, agentID))

	return &Snapshot{
		Registry: reg.ExportState(),
		Tasks:    store.ExportState(),
	}
}

// verifyRoundTrip imports a loaded snapshot into fresh components and checks
// that loads, availability, and statuses survived.
func verifyRoundTrip(t *testing.T, original, loaded *Snapshot) {
	t.Helper()

	reg := registry.New(zap.NewNop())
	require.NoError(t, reg.ImportState(loaded.Registry))
	store := task.NewStore(zap.NewNop())
	require.NoError(t, store.ImportState(loaded.Tasks))

	require.Len(t, original.Registry.Agents, 1)
	want := original.Registry.Agents[0]
	got, err := reg.Get(want.ID)
	require.NoError(t, err)
	assert.Equal(t, want.Load, got.Load)
	assert.Equal(t, want.Available, got.Available)
	assert.True(t, want.Capabilities.Equal(got.Capabilities))
	assert.Equal(t, want.Metadata, got.Metadata)

	require.Len(t, original.Tasks.Tasks, 1)
	wantTask := original.Tasks.Tasks[0]
	gotTask, err := store.Get(wantTask.ID)
	require.NoError(t, err)
	assert.Equal(t, wantTask.Status, gotTask.Status)
	assert.Equal(t, wantTask.AssignedTo, gotTask.AssignedTo)
	assert.Equal(t, wantTask.Priority, gotTask.Priority)
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()

	snap := buildSnapshot(t)
	require.NoError(t, s.Save(ctx, snap))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	verifyRoundTrip(t, snap, loaded)
}

func TestMemoryStore_LoadBeforeSave(t *testing.T) {
	t.Parallel()
	_, err := NewMemoryStore().Load(context.Background())
	assert.True(t, types.IsCode(err, types.ErrNotFound))
}

func TestMemoryStore_Closed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Close())

	assert.True(t, types.IsCode(s.Save(ctx, buildSnapshot(t)), types.ErrStoreClosed))
	_, err := s.Load(ctx)
	assert.True(t, types.IsCode(err, types.ErrStoreClosed))
}

func TestFileStore_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snapshot.json")

	s, err := NewFileStore(path)
	require.NoError(t, err)
	defer s.Close()

	snap := buildSnapshot(t)
	require.NoError(t, s.Save(ctx, snap))

	// A second store over the same path sees the snapshot, restart survival.
	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	loaded, err := reopened.Load(ctx)
	require.NoError(t, err)
	verifyRoundTrip(t, snap, loaded)
}

func TestFileStore_LoadBeforeSave(t *testing.T) {
	t.Parallel()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "snapshot.json"))
	require.NoError(t, err)

	_, err = s.Load(context.Background())
	assert.True(t, types.IsCode(err, types.ErrNotFound))
}

func TestRedisStore_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mr := miniredis.RunT(t)

	s, err := NewRedisStore(RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	defer s.Close()

	snap := buildSnapshot(t)
	require.NoError(t, s.Save(ctx, snap))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	verifyRoundTrip(t, snap, loaded)
}

func TestRedisStore_LoadBeforeSave(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)

	s, err := NewRedisStore(RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Load(context.Background())
	assert.True(t, types.IsCode(err, types.ErrNotFound))
}

func TestNewSnapshotStore_Factory(t *testing.T) {
	t.Parallel()

	mem, err := NewSnapshotStore(StoreConfig{Type: StoreTypeMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, mem)

	file, err := NewSnapshotStore(StoreConfig{
		Type: StoreTypeFile,
		Path: filepath.Join(t.TempDir(), "snapshot.json"),
	})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, file)

	_, err = NewSnapshotStore(StoreConfig{Type: "etcd"})
	assert.True(t, types.IsCode(err, types.ErrInvalidInput))
}
