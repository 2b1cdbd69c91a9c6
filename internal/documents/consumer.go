package documents

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/JaimeStill/docgate/pkg/bus"
)

// RequestHandler processes one decoded request.
type RequestHandler interface {
	Handle(ctx context.Context, req Request) error
}

// Consumer pulls records from the inbound subscription and hands each one to
// the handler, one at a time.
type Consumer struct {
	sub     bus.Subscription
	handler RequestHandler
	logger  *slog.Logger
	once    sync.Once
	err     error
}

// NewConsumer creates a Consumer over an inbound subscription.
func NewConsumer(sub bus.Subscription, handler RequestHandler, logger *slog.Logger) *Consumer {
	return &Consumer{
		sub:     sub,
		handler: handler,
		logger:  logger.With("component", "consumer"),
	}
}

// Run consumes until ctx is cancelled, returning nil. Handler errors and
// panics are logged and the loop continues. A subscription failure is logged
// and returned; the subscription is not restarted.
//
// The record in flight when ctx is cancelled is processed to completion and
// committed before Run returns.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("consumer started")

	for {
		msg, err := c.sub.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopped")
				return nil
			}
			c.logger.Error("consume failed", "error", err)
			return fmt.Errorf("fetch document request: %w", err)
		}

		work := context.WithoutCancel(ctx)
		c.dispatch(work, msg)

		if err := c.sub.Commit(work, msg); err != nil {
			c.logger.Error(
				"offset commit failed",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}

// Close releases the subscription. Only the first call has effect.
func (c *Consumer) Close() error {
	c.once.Do(func() {
		c.err = c.sub.Close()
	})
	return c.err
}

func (c *Consumer) dispatch(ctx context.Context, msg bus.Message) {
	logger := c.logger.With(
		"topic", msg.Topic,
		"partition", msg.Partition,
		"offset", msg.Offset,
	)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("document request handler panicked", "panic", r)
		}
	}()

	req, err := Decode(msg.Value)
	if err != nil {
		logger.Error("document request skipped", "error", err)
		return
	}

	if err := c.handler.Handle(ctx, req); err != nil {
		logger.Error("document request dropped", "correlation_id", req.CorrelationID, "error", err)
	}
}
