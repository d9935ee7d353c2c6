package ratelimit

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

const defaultPerSec = 1

// Local is an in-process token-bucket limiter. It is sufficient for a single
// engine instance; fleets sharing one gateway use the Redis limiter instead.
type Local struct {
	limiter *rate.Limiter
}

var _ Limiter = (*Local)(nil)

func NewLocal(perSec int) *Local {
	if perSec <= 0 {
		perSec = defaultPerSec
	}
	return &Local{
		limiter: rate.NewLimiter(rate.Limit(perSec), perSec),
	}
}

func (l *Local) Allow(ctx context.Context, key string) (bool, error) {
	if l == nil || l.limiter == nil {
		return false, fmt.Errorf("rate limiter is not initialized")
	}
	return l.limiter.Allow(), nil
}

func (l *Local) Wait(ctx context.Context, key string) error {
	if l == nil || l.limiter == nil {
		return fmt.Errorf("rate limiter is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return l.limiter.Wait(ctx)
}
