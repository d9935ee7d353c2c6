//go:build linux

package guard

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/login1"
	"go.uber.org/zap"
)

const inhibitWho = "smscast"

// systemdGuard takes logind sleep/shutdown inhibitor locks for the lifetime
// of a batch. logind releases the lock when the returned fd is closed, so a
// crashed process can never wedge the host.
type systemdGuard struct {
	conn   *login1.Conn
	logger *zap.Logger
}

func newSystemdGuard(logger *zap.Logger) (Guard, error) {
	conn, err := login1.New()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to logind: %w", err)
	}

	return &systemdGuard{conn: conn, logger: logger}, nil
}

func (g *systemdGuard) Acquire(ctx context.Context, reason string, budget time.Duration) (Hold, error) {
	if ctx != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}

	fd, err := g.conn.Inhibit("sleep:shutdown", inhibitWho, reason, "block")
	if err != nil {
		return nil, fmt.Errorf("failed to take inhibitor lock: %w", err)
	}

	g.logger.Debug("inhibitor lock acquired",
		zap.String("reason", reason),
		zap.Duration("budget", budget),
	)

	// The budget caps how long a stuck batch can pin the lock.
	timer := time.AfterFunc(budget, func() {
		g.logger.Warn("inhibitor budget exhausted, releasing lock",
			zap.String("reason", reason),
			zap.Duration("budget", budget),
		)
		_ = fd.Close()
	})

	return newHold(func() {
		timer.Stop()
		if err := fd.Close(); err != nil {
			g.logger.Warn("failed to release inhibitor lock", zap.Error(err))
			return
		}
		g.logger.Debug("inhibitor lock released", zap.String("reason", reason))
	}), nil
}
