package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/feedsync/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryCatalogLocker_Exclusive(t *testing.T) {
	locker := NewMemoryCatalogLocker()
	ctx := context.Background()
	catalogID := uuid.New()

	release, ok, err := locker.TryLock(ctx, catalogID, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.TryLock(ctx, catalogID, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must be refused")

	_, ok, err = locker.TryLock(ctx, uuid.New(), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "other catalogs are independent")

	require.NoError(t, release(ctx))
	assert.ErrorIs(t, release(ctx), ErrLockNotHeld)

	_, ok, err = locker.TryLock(ctx, catalogID, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryCatalogLocker_ExpiredLeaseIsTakenOver(t *testing.T) {
	locker := NewMemoryCatalogLocker()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	locker.now = func() time.Time { return now }
	ctx := context.Background()
	catalogID := uuid.New()

	staleRelease, ok, err := locker.TryLock(ctx, catalogID, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 0, locker.Held())

	_, ok, err = locker.TryLock(ctx, catalogID, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	assert.ErrorIs(t, staleRelease(ctx), ErrLockNotHeld, "stale holder must not release the new lease")
	assert.Equal(t, 1, locker.Held())
}

func TestMemoryCatalogLocker_ConcurrentAcquire(t *testing.T) {
	locker := NewMemoryCatalogLocker()
	catalogID := uuid.New()

	var acquired atomic.Int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok, _ := locker.TryLock(context.Background(), catalogID, time.Minute); ok {
				acquired.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), acquired.Load())
}

func TestMemoryIdempotencyStore(t *testing.T) {
	store := NewMemoryIdempotencyStore(time.Hour)
	defer store.Close()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	first, err := store.MarkProcessed(ctx, "key-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := store.MarkProcessed(ctx, "key-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, again)

	now = now.Add(time.Minute)
	afterExpiry, err := store.MarkProcessed(ctx, "key-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, afterExpiry)

	_, _ = store.MarkProcessed(ctx, "key-2", time.Second)
	now = now.Add(10 * time.Second)
	store.sweep()
	assert.Equal(t, 1, store.Len())

	require.NoError(t, store.Forget(ctx, "key-1"))
	assert.Equal(t, 0, store.Len())
	afterForget, err := store.MarkProcessed(ctx, "key-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, afterForget)

	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

func TestNewCoordination_RedisDisabled(t *testing.T) {
	coord, err := NewCoordination(context.Background(), config.RedisConfig{Enabled: false}, false, zap.NewNop())
	require.NoError(t, err)
	defer coord.Close()

	assert.Nil(t, coord.Redis)
	assert.IsType(t, &MemoryCatalogLocker{}, coord.Locker)
	assert.IsType(t, &MemoryIdempotencyStore{}, coord.Idempotency)
}

func TestNewCoordination_UnreachableRedis(t *testing.T) {
	cfg := config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1}

	_, err := NewCoordination(context.Background(), cfg, false, zap.NewNop())
	assert.ErrorIs(t, err, ErrRedisUnavailable)

	coord, err := NewCoordination(context.Background(), cfg, true, zap.NewNop())
	require.NoError(t, err)
	defer coord.Close()
	assert.IsType(t, &MemoryCatalogLocker{}, coord.Locker)
}
