package queue

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type memoryMessage struct {
	id          string
	body        []byte
	deliveries  int
	deliveredAt time.Time
}

// MemoryTransport is an in-process Transport with the same redelivery and
// dead-letter semantics as the redis stream transport. Messages are lost on restart.
type MemoryTransport struct {
	opts Options
	now  func() time.Time

	mu      sync.Mutex
	ready   []*memoryMessage
	pending map[string]*memoryMessage
	dead    []Delivery
	seq     uint64
	closed  bool
	notify  chan struct{}
}

// NewMemoryTransport creates an empty in-memory transport
func NewMemoryTransport(opts Options) *MemoryTransport {
	return &MemoryTransport{
		opts:    opts.withDefaults(),
		now:     time.Now,
		pending: make(map[string]*memoryMessage),
		notify:  make(chan struct{}),
	}
}

// Publish appends a message and wakes waiting receivers
func (t *MemoryTransport) Publish(ctx context.Context, body []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return "", ErrQueueClosed
	}
	t.seq++
	msg := &memoryMessage{id: strconv.FormatUint(t.seq, 10), body: append([]byte(nil), body...)}
	t.ready = append(t.ready, msg)
	t.wakeLocked()
	return msg.id, nil
}

// Receive returns reclaimed idle messages first, then new ones
func (t *MemoryTransport) Receive(ctx context.Context, _ string, max int) ([]Delivery, error) {
	if max <= 0 {
		max = 1
	}
	timer := time.NewTimer(t.opts.Block)
	defer timer.Stop()

	for {
		t.mu.Lock()
		if t.closed {
			t.mu.Unlock()
			return nil, ErrQueueClosed
		}
		out := t.takeLocked(max)
		wake := t.notify
		t.mu.Unlock()

		if len(out) > 0 {
			return out, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, nil
		case <-wake:
		}
	}
}

func (t *MemoryTransport) takeLocked(max int) []Delivery {
	now := t.now()
	out := make([]Delivery, 0, max)

	for id, msg := range t.pending {
		if len(out) == max {
			return out
		}
		if now.Sub(msg.deliveredAt) < t.opts.ClaimMinIdle {
			continue
		}
		if msg.deliveries >= t.opts.MaxDeliveries {
			delete(t.pending, id)
			t.dead = append(t.dead, Delivery{ID: msg.id, Body: msg.body, Attempt: msg.deliveries})
			continue
		}
		out = append(out, t.deliverLocked(msg, now))
	}

	for len(out) < max && len(t.ready) > 0 {
		msg := t.ready[0]
		t.ready = t.ready[1:]
		t.pending[msg.id] = msg
		out = append(out, t.deliverLocked(msg, now))
	}
	return out
}

func (t *MemoryTransport) deliverLocked(msg *memoryMessage, now time.Time) Delivery {
	msg.deliveries++
	msg.deliveredAt = now
	return Delivery{ID: msg.id, Body: msg.body, Attempt: msg.deliveries}
}

func (t *MemoryTransport) wakeLocked() {
	close(t.notify)
	t.notify = make(chan struct{})
}

// Ack removes delivered messages from the pending list
func (t *MemoryTransport) Ack(_ context.Context, ids ...string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range ids {
		delete(t.pending, id)
	}
	return nil
}

// Extend marks pending messages as freshly delivered
func (t *MemoryTransport) Extend(_ context.Context, _ string, ids ...string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	for _, id := range ids {
		if msg, ok := t.pending[id]; ok {
			msg.deliveredAt = now
		}
	}
	return nil
}

// Close wakes and fails all receivers
func (t *MemoryTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		t.wakeLocked()
	}
	return nil
}

// Stats returns the ready, pending and dead-lettered message counts
func (t *MemoryTransport) Stats() (ready, pending, dead int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.ready), len(t.pending), len(t.dead)
}

// DeadLetters returns a copy of the dead-lettered messages
func (t *MemoryTransport) DeadLetters() []Delivery {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Delivery(nil), t.dead...)
}

// Ensure MemoryTransport implements Transport
var _ Transport = (*MemoryTransport)(nil)
