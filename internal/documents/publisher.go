package documents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/JaimeStill/docgate/pkg/bus"
)

// Publisher writes responses to the success and error channels, keyed by
// correlation id.
type Publisher struct {
	success bus.Producer
	failure bus.Producer
}

// NewPublisher creates a Publisher over the two outbound producers.
func NewPublisher(success, failure bus.Producer) *Publisher {
	return &Publisher{
		success: success,
		failure: failure,
	}
}

// PublishSuccess writes resp to the success channel.
func (p *Publisher) PublishSuccess(ctx context.Context, resp Success) error {
	return publish(ctx, p.success, resp.CorrelationID, resp)
}

// PublishFailure writes resp to the error channel.
func (p *Publisher) PublishFailure(ctx context.Context, resp Failure) error {
	return publish(ctx, p.failure, resp.CorrelationID, resp)
}

func publish(ctx context.Context, producer bus.Producer, id uuid.UUID, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	key := id.String()
	return producer.Publish(ctx, bus.Record{
		Key:     key,
		Value:   data,
		Headers: map[string]string{HeaderCorrelationID: key},
	})
}
