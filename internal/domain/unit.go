package domain

import (
	"fmt"
	"strings"
	"time"
)

// UnitState represents the lifecycle state of a dispatch unit.
type UnitState string

const (
	StatePending   UnitState = "PENDING"
	StateSending   UnitState = "SENDING"
	StateSent      UnitState = "SENT"
	StateDelivered UnitState = "DELIVERED"
	StateFailed    UnitState = "FAILED"
)

func (s UnitState) String() string { return string(s) }

func (s UnitState) IsValid() bool {
	switch s {
	case StatePending, StateSending, StateSent, StateDelivered, StateFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the unit has settled. SENT counts as terminal:
// a delivery receipt may still upgrade it to DELIVERED, but nothing is owed
// to the batch anymore.
func (s UnitState) IsTerminal() bool {
	switch s {
	case StateSent, StateDelivered, StateFailed:
		return true
	}
	return false
}

func ParseUnitStateFromString(s string) (UnitState, error) {
	st := UnitState(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid unit state %q", ErrValidation, s)
	}
	return st, nil
}

// FailureReason normalizes transport failure signals. None of these are
// retried; the reason is preserved for diagnostics only.
type FailureReason string

const (
	ReasonPermissionDenied FailureReason = "PERMISSION_DENIED"
	ReasonNoService        FailureReason = "NO_SERVICE"
	ReasonMalformedPayload FailureReason = "MALFORMED_PAYLOAD"
	ReasonRadioUnavailable FailureReason = "RADIO_UNAVAILABLE"
	ReasonUnknown          FailureReason = "UNKNOWN"
)

func (r FailureReason) String() string { return string(r) }

func (r FailureReason) IsValid() bool {
	switch r {
	case ReasonPermissionDenied, ReasonNoService, ReasonMalformedPayload, ReasonRadioUnavailable, ReasonUnknown:
		return true
	}
	return false
}

func ParseFailureReasonFromString(s string) FailureReason {
	r := FailureReason(strings.ToUpper(strings.TrimSpace(s)))
	if !r.IsValid() {
		return ReasonUnknown
	}
	return r
}

// DispatchUnit is the atomic sendable item: one segment of one recipient's
// rendered message. Immutable once built by the planner.
type DispatchUnit struct {
	ID            string
	BatchID       string
	RecipientID   string
	RecipientName string
	Destination   string
	Body          string
	PartIndex     int
	PartCount     int
}

func (u DispatchUnit) Validate() error {
	if strings.TrimSpace(u.ID) == "" {
		return fmt.Errorf("%w: unit id is required", ErrValidation)
	}
	if strings.TrimSpace(u.Destination) == "" {
		return fmt.Errorf("%w: destination is required", ErrValidation)
	}
	if strings.TrimSpace(u.Body) == "" {
		return fmt.Errorf("%w: body is required", ErrValidation)
	}
	if u.PartCount < 1 {
		return fmt.Errorf("%w: part count must be at least 1 (got %d)", ErrValidation, u.PartCount)
	}
	if u.PartIndex < 0 || u.PartIndex >= u.PartCount {
		return fmt.Errorf("%w: part index %d out of range [0,%d)", ErrValidation, u.PartIndex, u.PartCount)
	}
	return nil
}

// UnitStatus is the authoritative, mutable status of one dispatch unit. It is
// owned by the status tracker and updated only through its merge function.
type UnitStatus struct {
	UnitID        string
	State         UnitState
	SentAt        *time.Time
	DeliveredAt   *time.Time
	FailureReason *FailureReason
}
