package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/feedsync/backend/internal/domain/feedsync"
	"go.uber.org/zap"
)

// Handler processes one decoded trigger. A nil error acknowledges the message.
type Handler interface {
	Handle(ctx context.Context, trigger feedsync.SyncTrigger) error
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, trigger feedsync.SyncTrigger) error

// Handle calls f
func (f HandlerFunc) Handle(ctx context.Context, trigger feedsync.SyncTrigger) error {
	return f(ctx, trigger)
}

// ConsumerConfig holds worker pool settings
type ConsumerConfig struct {
	// Name prefixes the per-worker consumer names registered with the transport
	Name string
	// Workers is the number of concurrent handlers
	Workers int
	// BatchSize is the number of messages a worker receives at once
	BatchSize int
	// HandlerTimeout bounds a single handler call
	HandlerTimeout time.Duration
	// Heartbeat is how often a message still being handled is extended.
	// It must be shorter than the transport's ClaimMinIdle; zero disables it.
	Heartbeat time.Duration
}

// Consumer runs a bounded pool of workers draining a transport
type Consumer struct {
	config    ConsumerConfig
	transport Transport
	handler   Handler
	logger    *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewConsumer creates a consumer
func NewConsumer(cfg ConsumerConfig, transport Transport, handler Handler, logger *zap.Logger) *Consumer {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}
	if cfg.Name == "" {
		cfg.Name = "worker"
	}
	return &Consumer{
		config:    cfg,
		transport: transport,
		handler:   handler,
		logger:    logger,
	}
}

// Start launches the workers
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isRunning {
		return nil
	}
	c.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	for i := 0; i < c.config.Workers; i++ {
		c.wg.Add(1)
		go c.worker(ctx, i)
	}

	c.logger.Info("Trigger consumer started",
		zap.Int("workers", c.config.Workers),
		zap.Int("batch_size", c.config.BatchSize),
	)
	return nil
}

// Stop cancels the workers and waits for in-flight handlers to return
func (c *Consumer) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return ErrConsumerNotRunning
	}
	c.isRunning = false
	c.cancel()
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Trigger consumer stopped gracefully")
		return nil
	case <-ctx.Done():
		c.logger.Warn("Trigger consumer stop timed out")
		return ctx.Err()
	}
}

func (c *Consumer) worker(ctx context.Context, workerID int) {
	defer c.wg.Done()
	name := fmt.Sprintf("%s-%d", c.config.Name, workerID)

	for ctx.Err() == nil {
		deliveries, err := c.transport.Receive(ctx, name, c.config.BatchSize)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrQueueClosed) {
				return
			}
			c.logger.Error("Failed to receive triggers", zap.Int("worker_id", workerID), zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		for _, d := range deliveries {
			c.process(ctx, workerID, name, d)
		}
	}
}

// process handles one delivery. Malformed messages and handler failures are
// left unacknowledged for redelivery or dead-lettering.
func (c *Consumer) process(ctx context.Context, workerID int, consumer string, d Delivery) {
	trigger, err := DecodeTrigger(d.Body)
	if err != nil {
		c.logger.Error("Malformed trigger message",
			zap.Int("worker_id", workerID),
			zap.String("message_id", d.ID),
			zap.Int("attempt", d.Attempt),
			zap.Error(err),
		)
		return
	}

	fields := []zap.Field{
		zap.Int("worker_id", workerID),
		zap.String("message_id", d.ID),
		zap.Int("attempt", d.Attempt),
		zap.String("catalog_id", trigger.CatalogID.String()),
		zap.String("platform", trigger.AdPlatform.String()),
		zap.String("trigger_type", trigger.TriggerType.String()),
	}

	handlerCtx := ctx
	if c.config.HandlerTimeout > 0 {
		var cancel context.CancelFunc
		handlerCtx, cancel = context.WithTimeout(ctx, c.config.HandlerTimeout)
		defer cancel()
	}

	stopHeartbeat := c.keepClaimed(ctx, consumer, d.ID, fields)
	err = c.safeHandle(handlerCtx, trigger)
	stopHeartbeat()
	if err != nil {
		c.logger.Warn("Trigger handling failed, leaving message for redelivery", append(fields, zap.Error(err))...)
		return
	}

	// Finished work is acked even when the consumer is shutting down
	ackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := c.transport.Ack(ackCtx, d.ID); err != nil {
		c.logger.Error("Failed to ack trigger", append(fields, zap.Error(err))...)
		return
	}
	c.logger.Debug("Trigger processed", fields...)
}

// keepClaimed extends the delivery every Heartbeat until the returned stop
// function is called, so a long handler is not raced by a reclaiming worker.
func (c *Consumer) keepClaimed(ctx context.Context, consumer, id string, fields []zap.Field) func() {
	if c.config.Heartbeat <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(c.config.Heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := c.transport.Extend(ctx, consumer, id); err != nil {
					c.logger.Warn("Failed to extend trigger claim", append(fields, zap.Error(err))...)
				}
			}
		}
	}()

	return func() {
		close(done)
		wg.Wait()
	}
}

func (c *Consumer) safeHandle(ctx context.Context, trigger feedsync.SyncTrigger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return c.handler.Handle(ctx, trigger)
}
