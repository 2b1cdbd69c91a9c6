package documents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/docgate/pkg/bus"
	"github.com/JaimeStill/docgate/pkg/formatting"
	"github.com/JaimeStill/docgate/pkg/storage"
)

// Store is the subset of the storage system the handler depends on.
type Store interface {
	Lookup(ctx context.Context, name string) (*storage.Object, error)
	ContainerSAS(ctx context.Context, policy string) (string, error)
}

// Responder delivers responses to the success and error channels.
type Responder interface {
	PublishSuccess(ctx context.Context, resp Success) error
	PublishFailure(ctx context.Context, resp Failure) error
}

// HandlerOptions configures credential issuance.
type HandlerOptions struct {
	// OnMissing decides whether a missing object blocks issuance.
	OnMissing MissingPolicy
	// SASPolicy names a stored access policy on the container. Empty signs
	// an explicit read/write window instead.
	SASPolicy string
}

// Handler turns one Request into exactly one published response.
type Handler struct {
	store     Store
	responder Responder
	opts      HandlerOptions
	logger    *slog.Logger
}

// NewHandler creates a Handler. An empty OnMissing defaults to IssueAnyway.
func NewHandler(store Store, responder Responder, opts HandlerOptions, logger *slog.Logger) *Handler {
	if opts.OnMissing == "" {
		opts.OnMissing = IssueAnyway
	}
	return &Handler{
		store:     store,
		responder: responder,
		opts:      opts,
		logger:    logger.With("handler", "documents"),
	}
}

// Handle resolves the document, issues a container credential, and publishes
// a Success. Any failure along the way is published as a Failure instead.
// A Success the bus reports as not delivered is answered with a Failure. When
// delivery is uncertain no Failure is sent, so a request is never answered
// twice. The returned error is non-nil only when no response is known to have
// been delivered.
func (h *Handler) Handle(ctx context.Context, req Request) error {
	logger := h.logger.With(
		"correlation_id", req.CorrelationID,
		"file_name", req.FileName,
		"file_size", formatting.FormatBytes(req.FileSize, 1),
	)
	logger.Info("document request received")

	uri, err := h.issue(ctx, req, logger)
	if err != nil {
		logger.Warn("document request failed", "error", err)
		return h.fail(ctx, req, err, logger)
	}

	resp := Success{
		CorrelationID: req.CorrelationID,
		AccessURI:     uri,
	}

	if err := h.responder.PublishSuccess(ctx, resp); err != nil {
		logger.Error("success response not delivered", "error", err)
		if !errors.Is(err, bus.ErrNotDelivered) {
			return fmt.Errorf("deliver success response for %s: %w", req.CorrelationID, err)
		}
		return h.fail(ctx, req, fmt.Errorf("deliver success response: %w", err), logger)
	}

	logger.Info("success response published", "credential", uri != nil)
	return nil
}

func (h *Handler) issue(ctx context.Context, req Request, logger *slog.Logger) (*string, error) {
	obj, err := h.store.Lookup(ctx, req.FileName)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		if h.opts.OnMissing == Deny {
			return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, req.FileName)
		}
		logger.Warn("document not found, issuing container credential")
	case err != nil:
		return nil, fmt.Errorf("lookup %s: %w", req.FileName, err)
	default:
		logger.Debug("document resolved", "uri", obj.URI)
	}

	uri, err := h.store.ContainerSAS(ctx, h.opts.SASPolicy)
	if errors.Is(err, storage.ErrSigningUnavailable) {
		logger.Warn("container credential unavailable")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("issue container credential: %w", err)
	}

	return &uri, nil
}

func (h *Handler) fail(ctx context.Context, req Request, cause error, logger *slog.Logger) error {
	resp := Failure{
		CorrelationID: req.CorrelationID,
		Error:         cause.Error(),
	}

	if err := h.responder.PublishFailure(ctx, resp); err != nil {
		return fmt.Errorf("deliver failure response for %s: %w", req.CorrelationID, err)
	}

	logger.Info("failure response published")
	return nil
}
