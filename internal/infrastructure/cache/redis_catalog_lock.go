package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/feedsync/backend/internal/domain/feedsync"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const catalogLockPrefix = "feedsync:lock:catalog:"

// releaseScript deletes the lease only if it still carries our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisCatalogLocker leases catalogs with SET NX PX so that only one worker
// across all instances syncs a catalog at a time
type RedisCatalogLocker struct {
	client    redis.Cmdable
	keyPrefix string
}

// NewRedisCatalogLocker creates a locker on an existing client
func NewRedisCatalogLocker(client redis.Cmdable, keyPrefix string) *RedisCatalogLocker {
	if keyPrefix == "" {
		keyPrefix = catalogLockPrefix
	}
	return &RedisCatalogLocker{client: client, keyPrefix: keyPrefix}
}

// TryLock acquires the lease. The returned release is a no-op if the lease
// expired and another holder took it.
func (l *RedisCatalogLocker) TryLock(ctx context.Context, catalogID uuid.UUID, ttl time.Duration) (func(context.Context) error, bool, error) {
	key := l.keyPrefix + catalogID.String()
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire catalog lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		n, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int()
		if err != nil {
			return fmt.Errorf("failed to release catalog lock: %w", err)
		}
		if n == 0 {
			return ErrLockNotHeld
		}
		return nil
	}
	return release, true, nil
}

// Ensure RedisCatalogLocker implements CatalogLocker
var _ feedsync.CatalogLocker = (*RedisCatalogLocker)(nil)
