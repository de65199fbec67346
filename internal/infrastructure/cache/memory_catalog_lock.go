package cache

import (
	"context"
	"sync"
	"time"

	"github.com/feedsync/backend/internal/domain/feedsync"
	"github.com/google/uuid"
)

type lease struct {
	token     uint64
	expiresAt time.Time
}

// MemoryCatalogLocker leases catalogs within a single process
type MemoryCatalogLocker struct {
	mu     sync.Mutex
	leases map[uuid.UUID]lease
	next   uint64
	now    func() time.Time
}

// NewMemoryCatalogLocker creates an in-process locker
func NewMemoryCatalogLocker() *MemoryCatalogLocker {
	return &MemoryCatalogLocker{
		leases: make(map[uuid.UUID]lease),
		now:    time.Now,
	}
}

// TryLock acquires the lease unless an unexpired one exists
func (l *MemoryCatalogLocker) TryLock(_ context.Context, catalogID uuid.UUID, ttl time.Duration) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if held, ok := l.leases[catalogID]; ok && now.Before(held.expiresAt) {
		return nil, false, nil
	}

	l.next++
	token := l.next
	l.leases[catalogID] = lease{token: token, expiresAt: now.Add(ttl)}

	release := func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if held, ok := l.leases[catalogID]; !ok || held.token != token {
			return ErrLockNotHeld
		}
		delete(l.leases, catalogID)
		return nil
	}
	return release, true, nil
}

// Held returns the number of unexpired leases (for testing/monitoring)
func (l *MemoryCatalogLocker) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	n := 0
	for _, held := range l.leases {
		if now.Before(held.expiresAt) {
			n++
		}
	}
	return n
}

// Ensure MemoryCatalogLocker implements CatalogLocker
var _ feedsync.CatalogLocker = (*MemoryCatalogLocker)(nil)
