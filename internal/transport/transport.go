package transport

import "context"

// Port is the outbound transport capability. It accepts one message at a
// time: Submit returns nil when the transport accepted the unit for delivery
// and an error when it rejected it synchronously. Send and delivery
// confirmations arrive later, out of band, keyed by unit ID.
type Port interface {
	Submit(ctx context.Context, destination, body, unitID string) error
}
