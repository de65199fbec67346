package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/feedsync/backend/internal/domain/feedsync"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func sampleTrigger() feedsync.SyncTrigger {
	return feedsync.SyncTrigger{
		CatalogID:   uuid.New(),
		MerchantID:  uuid.New(),
		AdPlatform:  catalog.AdPlatformGoogleMerchantCenter,
		TriggerType: feedsync.TriggerScheduledEnqueued,
	}
}

func TestDecodeTrigger(t *testing.T) {
	trigger := sampleTrigger()
	body, err := EncodeTrigger(trigger)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"trigger_type":"SCHEDULED_SYNC_JOB_ENQUEUED"`)
	assert.NotContains(t, string(body), "webhook_payload")

	decoded, err := DecodeTrigger(body)
	require.NoError(t, err)
	assert.Equal(t, trigger, decoded)

	tests := []struct {
		name string
		body string
	}{
		{"not json", `{{`},
		{"missing catalog", `{"merchant_id":"` + uuid.NewString() + `","trigger_type":"MANUAL_SYNC"}`},
		{"unknown trigger type", `{"catalog_id":"` + uuid.NewString() + `","merchant_id":"` + uuid.NewString() + `","trigger_type":"CRON"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeTrigger([]byte(tt.body))
			assert.ErrorIs(t, err, ErrMalformedMessage)
		})
	}

	t.Run("webhook payload needs no catalog", func(t *testing.T) {
		body := `{"webhook_payload":{"merchant_id":"` + uuid.NewString() + `","product_updates":[{"external_id":"P1","stock":0}]}}`
		decoded, err := DecodeTrigger([]byte(body))
		require.NoError(t, err)
		require.NotNil(t, decoded.WebhookPayload)
		require.Len(t, decoded.WebhookPayload.ProductUpdates, 1)
		assert.Equal(t, 0, *decoded.WebhookPayload.ProductUpdates[0].Stock)
	})
}

type recordingHandler struct {
	mu       sync.Mutex
	handled  []feedsync.SyncTrigger
	failures int
}

func (h *recordingHandler) Handle(_ context.Context, trigger feedsync.SyncTrigger) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, trigger)
	if h.failures > 0 {
		h.failures--
		return errors.New("boom")
	}
	return nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}

func TestConsumer_AcksHandledMessages(t *testing.T) {
	tr := NewMemoryTransport(Options{Block: 10 * time.Millisecond})
	handler := &recordingHandler{}
	consumer := NewConsumer(ConsumerConfig{Workers: 2}, tr, handler, zaptest.NewLogger(t))
	publisher := NewPublisher(tr, zaptest.NewLogger(t))

	ctx := context.Background()
	first, second := sampleTrigger(), sampleTrigger()
	require.NoError(t, publisher.Publish(ctx, first))
	require.NoError(t, publisher.Publish(ctx, second))

	require.NoError(t, consumer.Start(ctx))
	waitFor(t, func() bool {
		ready, pending, _ := tr.Stats()
		return ready == 0 && pending == 0
	})
	require.NoError(t, consumer.Stop(ctx))

	handler.mu.Lock()
	defer handler.mu.Unlock()
	assert.ElementsMatch(t, []feedsync.SyncTrigger{first, second}, handler.handled)
}

func TestConsumer_FailedHandlerLeavesMessagePending(t *testing.T) {
	tr, now := newClockedTransport(Options{Block: 10 * time.Millisecond, ClaimMinIdle: time.Minute, MaxDeliveries: 5})
	handler := &recordingHandler{failures: 1}
	consumer := NewConsumer(ConsumerConfig{Workers: 1}, tr, handler, zaptest.NewLogger(t))

	ctx := context.Background()
	require.NoError(t, NewPublisher(tr, zaptest.NewLogger(t)).Publish(ctx, sampleTrigger()))

	require.NoError(t, consumer.Start(ctx))
	waitFor(t, func() bool {
		_, pending, _ := tr.Stats()
		handler.mu.Lock()
		defer handler.mu.Unlock()
		return len(handler.handled) == 1 && pending == 1
	})
	require.NoError(t, consumer.Stop(ctx))

	// Once idle, the message is redelivered and the retry succeeds
	tr.mu.Lock()
	*now = now.Add(time.Minute)
	tr.mu.Unlock()

	consumer = NewConsumer(ConsumerConfig{Workers: 1}, tr, handler, zaptest.NewLogger(t))
	require.NoError(t, consumer.Start(ctx))
	waitFor(t, func() bool {
		_, pending, _ := tr.Stats()
		return pending == 0
	})
	require.NoError(t, consumer.Stop(ctx))

	handler.mu.Lock()
	defer handler.mu.Unlock()
	assert.Len(t, handler.handled, 2)
}

func TestConsumer_LongHandlerIsNotReclaimed(t *testing.T) {
	tr := NewMemoryTransport(Options{Block: 10 * time.Millisecond, ClaimMinIdle: 60 * time.Millisecond})

	var (
		mu      sync.Mutex
		calls   int
		running int
		peak    int
	)
	handler := HandlerFunc(func(context.Context, feedsync.SyncTrigger) error {
		mu.Lock()
		calls++
		running++
		if running > peak {
			peak = running
		}
		mu.Unlock()

		time.Sleep(300 * time.Millisecond)

		mu.Lock()
		running--
		mu.Unlock()
		return nil
	})
	consumer := NewConsumer(ConsumerConfig{Workers: 2, Heartbeat: 20 * time.Millisecond}, tr, handler, zaptest.NewLogger(t))

	ctx := context.Background()
	require.NoError(t, NewPublisher(tr, zaptest.NewLogger(t)).Publish(ctx, sampleTrigger()))
	require.NoError(t, consumer.Start(ctx))
	waitFor(t, func() bool {
		ready, pending, _ := tr.Stats()
		return ready == 0 && pending == 0
	})
	require.NoError(t, consumer.Stop(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, peak)
}

func TestConsumer_MalformedMessageIsNotAcked(t *testing.T) {
	tr := NewMemoryTransport(Options{Block: 10 * time.Millisecond, ClaimMinIdle: time.Hour})
	handler := &recordingHandler{}
	consumer := NewConsumer(ConsumerConfig{Workers: 1}, tr, handler, zaptest.NewLogger(t))

	ctx := context.Background()
	_, err := tr.Publish(ctx, []byte(`not json`))
	require.NoError(t, err)

	require.NoError(t, consumer.Start(ctx))
	waitFor(t, func() bool {
		ready, pending, _ := tr.Stats()
		return ready == 0 && pending == 1
	})
	require.NoError(t, consumer.Stop(ctx))

	handler.mu.Lock()
	defer handler.mu.Unlock()
	assert.Empty(t, handler.handled)
}

func TestConsumer_HandlerPanicIsRecovered(t *testing.T) {
	tr := NewMemoryTransport(Options{Block: 10 * time.Millisecond, ClaimMinIdle: time.Hour})
	calls := make(chan struct{}, 1)
	handler := HandlerFunc(func(context.Context, feedsync.SyncTrigger) error {
		calls <- struct{}{}
		panic("unexpected")
	})
	consumer := NewConsumer(ConsumerConfig{Workers: 1}, tr, handler, zaptest.NewLogger(t))

	ctx := context.Background()
	require.NoError(t, NewPublisher(tr, zaptest.NewLogger(t)).Publish(ctx, sampleTrigger()))
	require.NoError(t, consumer.Start(ctx))

	select {
	case <-calls:
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not called")
	}
	require.NoError(t, consumer.Stop(ctx))

	_, pending, _ := tr.Stats()
	assert.Equal(t, 1, pending)
}

func TestConsumer_StopWithoutStart(t *testing.T) {
	consumer := NewConsumer(ConsumerConfig{}, NewMemoryTransport(Options{}), &recordingHandler{}, zaptest.NewLogger(t))
	assert.ErrorIs(t, consumer.Stop(context.Background()), ErrConsumerNotRunning)
}
