package status

import (
	"fmt"
	"strings"

	"smscast/internal/domain"
)

// SignalKind enumerates the asynchronous signal sources merged by the tracker.
type SignalKind string

const (
	// SignalSubmitOK is recorded when a unit is handed to the transport.
	SignalSubmitOK SignalKind = "SUBMIT_OK"
	// SignalSendOK is the transport's positive send confirmation.
	SignalSendOK SignalKind = "SEND_OK"
	// SignalSendFailed is the transport's negative send confirmation.
	SignalSendFailed SignalKind = "SEND_FAILED"
	// SignalDelivered is the transport's positive delivery receipt.
	SignalDelivered SignalKind = "DELIVERED"
	// SignalUndelivered is a negative delivery receipt. The absence of a
	// positive receipt is not evidence of failure, so it never changes state.
	SignalUndelivered SignalKind = "UNDELIVERED"
	// SignalTimeout fires once per unit if no send confirmation arrived
	// within the send timeout.
	SignalTimeout SignalKind = "TIMEOUT"
)

func (k SignalKind) String() string { return string(k) }

func (k SignalKind) IsValid() bool {
	switch k {
	case SignalSubmitOK, SignalSendOK, SignalSendFailed, SignalDelivered, SignalUndelivered, SignalTimeout:
		return true
	}
	return false
}

func ParseSignalKindFromString(s string) (SignalKind, error) {
	k := SignalKind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("%w: invalid signal kind %q", domain.ErrValidation, s)
	}
	return k, nil
}

// Signal is one typed status event for one unit.
type Signal struct {
	UnitID string
	Kind   SignalKind
	Reason domain.FailureReason
}

func (s Signal) Validate() error {
	if strings.TrimSpace(s.UnitID) == "" {
		return fmt.Errorf("%w: signal unit id is required", domain.ErrValidation)
	}
	if !s.Kind.IsValid() {
		return fmt.Errorf("%w: invalid signal kind %q", domain.ErrValidation, s.Kind)
	}
	return nil
}
