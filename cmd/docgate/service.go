package main

import (
	"context"
	"fmt"
	"time"

	"github.com/JaimeStill/docgate/internal/config"
	"github.com/JaimeStill/docgate/internal/documents"
	"github.com/JaimeStill/docgate/internal/infrastructure"
	"github.com/JaimeStill/docgate/pkg/middleware"
)

type Service struct {
	infra   *infrastructure.Infrastructure
	gateway documents.System
	http    *httpServer
}

func NewService(cfg *config.Config) (*Service, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	gateway := documents.New(cfg.Gateway.Documents(), infra.Storage, infra.Bus, infra.Logger)

	health := middleware.Chain(
		healthRouter(infra.Lifecycle),
		middleware.Logger(infra.Logger.With("system", "http")),
	)

	infra.Logger.Info(
		"service initialized",
		"health_addr", cfg.Server.Addr(),
		"inbound_topic", cfg.Gateway.InboundTopic,
		"version", cfg.Version,
	)

	return &Service{
		infra:   infra,
		gateway: gateway,
		http:    newHTTPServer(&cfg.Server, health, infra.Logger),
	}, nil
}

func (s *Service) Start() error {
	s.infra.Logger.Info("starting service")

	if err := s.infra.Start(); err != nil {
		return err
	}
	if err := s.gateway.Start(s.infra.Lifecycle); err != nil {
		return fmt.Errorf("gateway start failed: %w", err)
	}
	return s.http.Start(s.infra.Lifecycle)
}

// Run waits for every startup hook, then consumes until ctx is cancelled
// or the gateway fails.
func (s *Service) Run(ctx context.Context) error {
	if err := s.infra.Lifecycle.WaitForStartup(); err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}
	s.infra.Logger.Info("all subsystems ready")

	return s.gateway.Run(ctx)
}

func (s *Service) Shutdown(timeout time.Duration) error {
	s.infra.Logger.Info("initiating shutdown")
	return s.infra.Lifecycle.Shutdown(timeout)
}
