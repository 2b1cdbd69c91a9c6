// Package infrastructure provides core service initialization for application startup.
// It assembles the dependencies the document gateway requires: logging, blob
// storage, and the message bus.
package infrastructure

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/JaimeStill/docgate/internal/config"
	"github.com/JaimeStill/docgate/pkg/bus"
	"github.com/JaimeStill/docgate/pkg/lifecycle"
	"github.com/JaimeStill/docgate/pkg/storage"
)

// Infrastructure holds the core systems required by the gateway.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Storage   storage.System
	Bus       bus.System
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	b, err := bus.New(&cfg.Bus, logger)
	if err != nil {
		return nil, fmt.Errorf("bus init failed: %w", err)
	}

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Storage:   store,
		Bus:       b,
	}, nil
}

// Start registers storage and bus hooks with the lifecycle coordinator.
func (i *Infrastructure) Start() error {
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("storage start failed: %w", err)
	}
	if err := i.Bus.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("bus start failed: %w", err)
	}
	return nil
}
