package ratelimit

import "context"

// Limiter paces submissions toward a shared gateway. The key identifies the
// contended resource, e.g. the gateway account.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Wait(ctx context.Context, key string) error
}

// Nop is a Limiter that never delays. Used when pacing is handled entirely by
// the configured inter-send delays.
type Nop struct{}

func (Nop) Allow(ctx context.Context, key string) (bool, error) { return true, nil }
func (Nop) Wait(ctx context.Context, key string) error          { return nil }
