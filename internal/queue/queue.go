package queue

import "context"

const (
	// OutboundQueue carries accepted units to the SMS modem daemon.
	OutboundQueue = "sms.outbound"
	// ReceiptQueue carries send and delivery receipts back from the gateway.
	ReceiptQueue = "sms.receipts"
	// OutboundDLQ collects outbound messages the daemon rejected.
	OutboundDLQ = "dlq.sms.outbound"
)

// Publisher publishes outbound submit messages for the modem daemon.
type Publisher interface {
	Publish(ctx context.Context, msg SubmitMessage) error
	Close() error
}

// ReceiptHandler handles one consumed receipt message.
type ReceiptHandler func(ctx context.Context, msg ReceiptMessage) error

// Consumer consumes receipt messages from the gateway.
type Consumer interface {
	Consume(ctx context.Context, handler ReceiptHandler) error
	Close() error
}
