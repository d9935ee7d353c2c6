package dispatch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"smscast/internal/domain"
	"smscast/internal/observability"
	"smscast/internal/ratelimit"
	"smscast/internal/status"
	"smscast/internal/transport"
)

const (
	// DefaultDelayBetweenRecipients keeps carriers from flagging the run as
	// bulk spam.
	DefaultDelayBetweenRecipients = 5 * time.Second
	// DefaultDelayBetweenParts paces consecutive parts of one multi-part
	// message.
	DefaultDelayBetweenParts = 2 * time.Second
	// DefaultSendTimeout forces a unit to SENT when the transport never
	// confirms the send.
	DefaultSendTimeout = 10 * time.Second

	rateLimitKey = "gateway"
)

// Options are the per-run pacing knobs.
type Options struct {
	DelayBetweenRecipients time.Duration
	DelayBetweenParts      time.Duration
	SendTimeout            time.Duration
}

func (o Options) withDefaults() Options {
	if o.DelayBetweenRecipients <= 0 {
		o.DelayBetweenRecipients = DefaultDelayBetweenRecipients
	}
	if o.DelayBetweenParts <= 0 {
		o.DelayBetweenParts = DefaultDelayBetweenParts
	}
	if o.SendTimeout <= 0 {
		o.SendTimeout = DefaultSendTimeout
	}
	return o
}

// StatusSink receives the status signals the dispatcher emits.
type StatusSink interface {
	Signal(s status.Signal)
}

// Dispatcher walks the send plan strictly sequentially: the transport forbids
// concurrent submissions. It fires and forgets per unit; confirmations arrive
// later on the status event stream.
type Dispatcher struct {
	transport transport.Port
	limiter   ratelimit.Limiter
	sink      StatusSink
	opts      Options
	logger    *zap.Logger
	metrics   *observability.Metrics

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
	after func(d time.Duration, f func())
}

func NewDispatcher(
	port transport.Port,
	limiter ratelimit.Limiter,
	sink StatusSink,
	opts Options,
	logger *zap.Logger,
) (*Dispatcher, error) {
	if port == nil {
		return nil, fmt.Errorf("transport port is required")
	}
	if sink == nil {
		return nil, fmt.Errorf("status sink is required")
	}
	if limiter == nil {
		limiter = ratelimit.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		transport: port,
		limiter:   limiter,
		sink:      sink,
		opts:      opts.withDefaults(),
		logger:    logger,
		now:       time.Now,
		sleep:     sleepWithContext,
		after:     func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}, nil
}

func (d *Dispatcher) SetMetrics(metrics *observability.Metrics) {
	if d == nil {
		return
	}
	d.metrics = metrics
}

// Run submits every unit in plan order and returns once the walk is done.
// Per-unit failures never abort the walk. Cancellation stops new submissions;
// units already submitted keep their pending confirmations and timeouts.
func (d *Dispatcher) Run(ctx context.Context, units []domain.DispatchUnit) error {
	if ctx == nil {
		ctx = context.Background()
	}

	for i, unit := range units {
		if ctx.Err() != nil {
			d.logger.Info("dispatch cancelled",
				zap.String("batchId", unit.BatchID),
				zap.Int("submitted", i),
				zap.Int("remaining", len(units)-i),
			)
			return nil
		}

		if err := d.limiter.Wait(ctx, rateLimitKey); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("rate limiter wait failed: %w", err)
		}

		d.submit(ctx, unit)

		if i == len(units)-1 {
			break
		}

		delay := d.opts.DelayBetweenRecipients
		if unit.PartIndex < unit.PartCount-1 {
			delay = d.opts.DelayBetweenParts
		}
		if err := d.sleep(ctx, delay); err != nil {
			d.logger.Info("dispatch cancelled during delay",
				zap.String("batchId", unit.BatchID),
				zap.Int("submitted", i+1),
			)
			return nil
		}
	}

	return nil
}

func (d *Dispatcher) submit(ctx context.Context, unit domain.DispatchUnit) {
	d.sink.Signal(status.Signal{UnitID: unit.ID, Kind: status.SignalSubmitOK})

	start := d.now()
	err := d.transport.Submit(ctx, unit.Destination, unit.Body, unit.ID)
	if d.metrics != nil {
		d.metrics.ObserveSubmitDuration(d.now().Sub(start))
	}

	if err != nil {
		reason := transport.ReasonFor(err)
		d.logger.Warn("transport rejected unit",
			zap.String("unitId", unit.ID),
			zap.String("destination", unit.Destination),
			zap.String("reason", reason.String()),
			zap.Error(err),
		)
		d.sink.Signal(status.Signal{UnitID: unit.ID, Kind: status.SignalSendFailed, Reason: reason})
		return
	}

	d.logger.Debug("unit submitted",
		zap.String("unitId", unit.ID),
		zap.Int("part", unit.PartIndex+1),
		zap.Int("partCount", unit.PartCount),
	)

	d.after(d.opts.SendTimeout, func() {
		d.sink.Signal(status.Signal{UnitID: unit.ID, Kind: status.SignalTimeout})
	})
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
