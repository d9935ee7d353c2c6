package guard

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// budgetPadding covers plan assembly, queue publishes, and the settle grace
// window that fall outside the per-unit pacing math.
const budgetPadding = 30 * time.Second

// Budget sizes a stay-awake hold for a batch: every unit pays the
// inter-message delay plus the worst-case send timeout, plus a fixed pad.
func Budget(unitCount int, delayBetweenRecipients, sendTimeout time.Duration) time.Duration {
	if unitCount <= 0 {
		return budgetPadding
	}
	return time.Duration(unitCount)*(delayBetweenRecipients+sendTimeout) + budgetPadding
}

// Hold is an acquired suspend-inhibitor lease. Release is idempotent.
type Hold interface {
	Release()
}

// Guard keeps the host from suspending or shutting down while a batch is in
// flight.
type Guard interface {
	Acquire(ctx context.Context, reason string, budget time.Duration) (Hold, error)
}

// Noop satisfies Guard without touching the host. Used when no inhibitor
// backend is available or the guard is disabled by config.
type Noop struct{}

func (Noop) Acquire(_ context.Context, _ string, _ time.Duration) (Hold, error) {
	return noopHold{}, nil
}

type noopHold struct{}

func (noopHold) Release() {}

// NopHold returns a Hold whose Release does nothing.
func NopHold() Hold { return noopHold{} }

// hold wraps a backend release func so double-release is safe.
type hold struct {
	once    sync.Once
	release func()
}

func newHold(release func()) *hold {
	return &hold{release: release}
}

func (h *hold) Release() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		if h.release != nil {
			h.release()
		}
	})
}

// ForPlatform returns the systemd-backed guard when the host supports it,
// falling back to Noop.
func ForPlatform(logger *zap.Logger) Guard {
	if logger == nil {
		logger = zap.NewNop()
	}

	g, err := newSystemdGuard(logger)
	if err != nil {
		logger.Warn("suspend inhibitor unavailable, batches run unguarded", zap.Error(err))
		return Noop{}
	}
	return g
}
