package transport

import (
	"context"
	"fmt"

	"smscast/internal/domain"
	"smscast/internal/queue"
)

// AMQPPort submits units by publishing them to the outbound queue consumed by
// an SMS modem daemon. A successful publish is the synchronous accept; the
// daemon reports send and delivery outcomes on the receipts queue.
type AMQPPort struct {
	publisher queue.Publisher
}

var _ Port = (*AMQPPort)(nil)

func NewAMQPPort(publisher queue.Publisher) (*AMQPPort, error) {
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	return &AMQPPort{publisher: publisher}, nil
}

func (p *AMQPPort) Submit(ctx context.Context, destination, body, unitID string) error {
	if p == nil || p.publisher == nil {
		return fmt.Errorf("amqp port is not initialized")
	}

	err := p.publisher.Publish(ctx, queue.SubmitMessage{
		UnitID: unitID,
		To:     destination,
		Body:   body,
	})
	if err != nil {
		return &GatewayError{
			Message: "outbound publish failed",
			Reason:  domain.ReasonRadioUnavailable,
			Cause:   err,
		}
	}

	return nil
}
