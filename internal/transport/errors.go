package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"smscast/internal/domain"
)

// GatewayError describes a synchronous submit rejection from the gateway.
type GatewayError struct {
	StatusCode int
	Message    string
	Reason     domain.FailureReason
	Cause      error
}

func (e *GatewayError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 4)
	parts = append(parts, "gateway error")

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *GatewayError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// ReasonFor normalizes a submit rejection into a failure reason. Units are
// never retried, so the classification exists only to preserve diagnostics.
func ReasonFor(err error) domain.FailureReason {
	if err == nil {
		return ""
	}

	var gatewayErr *GatewayError
	if errors.As(err, &gatewayErr) && gatewayErr.Reason.IsValid() {
		return gatewayErr.Reason
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ReasonNoService
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return domain.ReasonNoService
		}
		return domain.ReasonRadioUnavailable
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return domain.ReasonRadioUnavailable
	}

	return domain.ReasonUnknown
}

// reasonForHTTPStatus classifies a gateway HTTP rejection.
func reasonForHTTPStatus(statusCode int) domain.FailureReason {
	switch {
	case statusCode == 401 || statusCode == 403:
		return domain.ReasonPermissionDenied
	case statusCode == 400 || statusCode == 413 || statusCode == 422:
		return domain.ReasonMalformedPayload
	case statusCode == 429 || statusCode >= 500:
		return domain.ReasonNoService
	default:
		return domain.ReasonUnknown
	}
}
