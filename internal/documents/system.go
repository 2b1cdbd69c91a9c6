package documents

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/docgate/pkg/bus"
	"github.com/JaimeStill/docgate/pkg/lifecycle"
	"github.com/JaimeStill/docgate/pkg/storage"
)

// Config wires the gateway to its channels.
type Config struct {
	InboundTopic string
	SuccessTopic string
	ErrorTopic   string
	GroupID      string
	Consumers    int
	Handler      HandlerOptions
}

// System defines the public contract for the document access gateway.
type System interface {
	// Start registers a shutdown hook that closes every consumer.
	Start(lc *lifecycle.Coordinator) error
	// Run consumes until ctx is cancelled or a consumer fails. The first
	// consumer failure stops the others.
	Run(ctx context.Context) error
	// Close releases every consumer subscription.
	Close() error
}

type gateway struct {
	consumers []*Consumer
	topic     string
	logger    *slog.Logger
}

// New creates the gateway: one shared handler and publisher, and
// cfg.Consumers consumer instances in the same consumer group.
func New(cfg Config, store storage.System, b bus.System, logger *slog.Logger) System {
	logger = logger.With("system", "documents")

	publisher := NewPublisher(
		b.Producer(cfg.SuccessTopic),
		b.Producer(cfg.ErrorTopic),
	)
	handler := NewHandler(store, publisher, cfg.Handler, logger)

	n := max(cfg.Consumers, 1)
	consumers := make([]*Consumer, n)
	for i := range n {
		consumers[i] = NewConsumer(
			b.Subscribe(cfg.InboundTopic, cfg.GroupID),
			handler,
			logger.With("consumer", i),
		)
	}

	return &gateway{
		consumers: consumers,
		topic:     cfg.InboundTopic,
		logger:    logger,
	}
}

func (g *gateway) Start(lc *lifecycle.Coordinator) error {
	g.logger.Info("starting document gateway", "topic", g.topic, "consumers", len(g.consumers))

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		if err := g.Close(); err != nil {
			g.logger.Error("consumer close failed", "error", err)
			return
		}
		g.logger.Info("consumers closed")
	})

	return nil
}

func (g *gateway) Run(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	for _, c := range g.consumers {
		eg.Go(func() error {
			return c.Run(ctx)
		})
	}
	return eg.Wait()
}

func (g *gateway) Close() error {
	var errs []error
	for _, c := range g.consumers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
