// Package queue carries sync triggers from the HTTP API, ingestion and the
// scheduler to the sync workers. Delivery is at-least-once: a message is
// redelivered until a consumer acknowledges it, and moved to a dead-letter
// list once it has been delivered too many times.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/feedsync/backend/internal/domain/feedsync"
	"github.com/google/uuid"
)

// Delivery is one received message
type Delivery struct {
	ID   string
	Body []byte
	// Attempt counts deliveries of this message, starting at 1
	Attempt int
}

// Transport is a durable or in-memory message stream with consumer acknowledgement
type Transport interface {
	// Publish appends a message and returns its id
	Publish(ctx context.Context, body []byte) (string, error)

	// Receive returns up to max messages for consumer, blocking until at least
	// one is available, the transport's block timeout elapses or ctx is done.
	// An empty result with a nil error means the wait timed out.
	Receive(ctx context.Context, consumer string, max int) ([]Delivery, error)

	// Ack removes messages from the pending list
	Ack(ctx context.Context, ids ...string) error

	// Extend resets the idle time of messages consumer is still working on
	// so they are not reclaimed by another consumer
	Extend(ctx context.Context, consumer string, ids ...string) error

	Close() error
}

// Options are the redelivery settings shared by transports
type Options struct {
	Block         time.Duration
	ClaimMinIdle  time.Duration
	MaxDeliveries int
}

func (o Options) withDefaults() Options {
	if o.Block <= 0 {
		o.Block = 5 * time.Second
	}
	if o.ClaimMinIdle <= 0 {
		o.ClaimMinIdle = time.Minute
	}
	if o.MaxDeliveries <= 0 {
		o.MaxDeliveries = 5
	}
	return o
}

// EncodeTrigger serializes a trigger as the wire JSON
func EncodeTrigger(trigger feedsync.SyncTrigger) ([]byte, error) {
	return json.Marshal(trigger)
}

// DecodeTrigger parses and validates a wire message
func DecodeTrigger(body []byte) (feedsync.SyncTrigger, error) {
	var trigger feedsync.SyncTrigger
	if err := json.Unmarshal(body, &trigger); err != nil {
		return feedsync.SyncTrigger{}, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	if trigger.WebhookPayload != nil {
		return trigger, nil
	}
	if trigger.CatalogID == uuid.Nil || trigger.MerchantID == uuid.Nil {
		return feedsync.SyncTrigger{}, fmt.Errorf("%w: catalog_id and merchant_id are required", ErrMalformedMessage)
	}
	if !trigger.TriggerType.IsValid() {
		return feedsync.SyncTrigger{}, fmt.Errorf("%w: unknown trigger_type %q", ErrMalformedMessage, trigger.TriggerType)
	}
	return trigger, nil
}
