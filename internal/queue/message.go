package queue

import (
	"fmt"
	"strings"
)

// Receipt event names as reported by the gateway.
const (
	ReceiptEventSent        = "sent"
	ReceiptEventFailed      = "failed"
	ReceiptEventDelivered   = "delivered"
	ReceiptEventUndelivered = "undelivered"
)

// SubmitMessage is the broker payload handed to the modem daemon.
type SubmitMessage struct {
	UnitID string `json:"unitId"`
	To     string `json:"to"`
	Body   string `json:"body"`
}

func (m SubmitMessage) Validate() error {
	if strings.TrimSpace(m.UnitID) == "" {
		return fmt.Errorf("unitId is required")
	}
	if strings.TrimSpace(m.To) == "" {
		return fmt.Errorf("to is required")
	}
	if strings.TrimSpace(m.Body) == "" {
		return fmt.Errorf("body is required")
	}
	return nil
}

// ReceiptMessage is the broker payload for an asynchronous outcome report.
// The same shape is accepted on the receipts webhook.
type ReceiptMessage struct {
	UnitID string `json:"unitId"`
	Event  string `json:"event"`
	Reason string `json:"reason,omitempty"`
}

func (m ReceiptMessage) Validate() error {
	if strings.TrimSpace(m.UnitID) == "" {
		return fmt.Errorf("unitId is required")
	}
	switch strings.ToLower(strings.TrimSpace(m.Event)) {
	case ReceiptEventSent, ReceiptEventFailed, ReceiptEventDelivered, ReceiptEventUndelivered:
		return nil
	}
	return fmt.Errorf("invalid receipt event %q", m.Event)
}
