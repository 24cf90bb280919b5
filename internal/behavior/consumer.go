package behavior

import (
	"context"

	"go.uber.org/zap"

	"github.com/sonna-ai/sonna/internal/queue"
)

// Consumer drains lifecycle events from the bus into the adapter
type Consumer struct {
	bus      queue.EventBus
	adapter  *Adapter
	logger   *zap.Logger
	prefetch int
}

// NewConsumer creates an event consumer for the behavior adapter
func NewConsumer(bus queue.EventBus, adapter *Adapter, prefetch int, logger *zap.Logger) *Consumer {
	if prefetch < 1 {
		prefetch = 1
	}
	return &Consumer{
		bus:      bus,
		adapter:  adapter,
		logger:   logger,
		prefetch: prefetch,
	}
}

// Run consumes events until ctx is cancelled. Events that fail to record are
// nacked without requeue so poison messages land in the DLQ instead of
// looping forever.
func (c *Consumer) Run(ctx context.Context) error {
	msgs, errs, err := c.bus.Consume(ctx, c.prefetch)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			c.logger.Warn("event bus error", zap.Error(err))
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			c.handle(ctx, msg)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg *queue.Message) {
	event := msg.GetEvent()
	if err := c.adapter.RecordEvent(ctx, event); err != nil {
		c.logger.Error("record lifecycle event",
			zap.String("event_id", event.ID.String()),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		if nackErr := msg.Nack(false); nackErr != nil {
			c.logger.Warn("nack failed", zap.Error(nackErr))
		}
		return
	}

	if err := msg.Ack(); err != nil {
		c.logger.Warn("ack failed",
			zap.String("event_id", event.ID.String()), zap.Error(err))
	}
}
