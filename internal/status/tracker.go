package status

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"smscast/internal/domain"
)

const eventBufferPerUnit = 6

// ProgressSink receives a batch progress snapshot on every accepted
// transition.
type ProgressSink interface {
	Publish(batchID string, counts domain.BatchCounts)
}

// TransitionHook observes accepted state transitions, e.g. for metrics.
type TransitionHook func(unitID string, from, to domain.UnitState, reason domain.FailureReason)

// Tracker merges the independent asynchronous signal sources (submit result,
// send confirmation, delivery receipt, timeout) into one authoritative state
// per unit. Signals for any unit may arrive in any order; a single consumer
// goroutine applies them one at a time, so updates to the same unit are
// always serialized.
type Tracker struct {
	batchID string
	order   []string

	mu       sync.RWMutex
	statuses map[string]*domain.UnitStatus

	events     chan Signal
	settled    chan struct{}
	settleOnce sync.Once

	progress ProgressSink
	hook     TransitionHook
	logger   *zap.Logger
	now      func() time.Time
}

func NewTracker(batchID string, units []domain.DispatchUnit, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}

	statuses := make(map[string]*domain.UnitStatus, len(units))
	order := make([]string, 0, len(units))
	for _, unit := range units {
		statuses[unit.ID] = &domain.UnitStatus{
			UnitID: unit.ID,
			State:  domain.StatePending,
		}
		order = append(order, unit.ID)
	}

	t := &Tracker{
		batchID:  batchID,
		order:    order,
		statuses: statuses,
		events:   make(chan Signal, len(units)*eventBufferPerUnit+16),
		settled:  make(chan struct{}),
		logger:   logger,
		now:      time.Now,
	}

	if len(units) == 0 {
		t.settleOnce.Do(func() { close(t.settled) })
	}

	return t
}

func (t *Tracker) SetProgressSink(sink ProgressSink) {
	if t == nil {
		return
	}
	t.progress = sink
}

func (t *Tracker) SetTransitionHook(hook TransitionHook) {
	if t == nil {
		return
	}
	t.hook = hook
}

// Signal enqueues one status event. It never blocks: the buffer is sized for
// every signal a run can produce, and anything beyond that is a duplicate
// receipt that is safe to drop.
func (t *Tracker) Signal(s Signal) {
	if err := s.Validate(); err != nil {
		t.logger.Warn("dropping invalid signal", zap.Error(err))
		return
	}

	select {
	case t.events <- s:
	default:
		t.logger.Warn("dropping signal, event buffer full",
			zap.String("batchId", t.batchID),
			zap.String("unitId", s.UnitID),
			zap.String("kind", s.Kind.String()),
		)
	}
}

// Run consumes the event stream until the context is cancelled. It keeps
// running after settlement: a late delivery receipt may still upgrade a SENT
// unit.
func (t *Tracker) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case s := <-t.events:
			t.apply(s)
		}
	}
}

// apply is the merge function. Only the defined edges alter state; every
// other (unit, signal) combination is a no-op. Last-writer-wins is
// deliberately not used here.
func (t *Tracker) apply(s Signal) {
	t.mu.Lock()

	st, ok := t.statuses[s.UnitID]
	if !ok {
		t.mu.Unlock()
		t.logger.Warn("signal for unknown unit",
			zap.String("batchId", t.batchID),
			zap.String("unitId", s.UnitID),
			zap.String("kind", s.Kind.String()),
		)
		return
	}

	from := st.State
	to := from

	switch s.Kind {
	case SignalSubmitOK:
		if from == domain.StatePending {
			to = domain.StateSending
		}
	case SignalSendOK:
		if from == domain.StateSending {
			to = domain.StateSent
			now := t.now().UTC()
			st.SentAt = &now
		}
	case SignalSendFailed:
		if from == domain.StateSending {
			to = domain.StateFailed
			reason := s.Reason
			if !reason.IsValid() {
				reason = domain.ReasonUnknown
			}
			st.FailureReason = &reason
		}
	case SignalTimeout:
		// Some transports never confirm a send. Without this edge the
		// unit would stay SENDING forever. A timeout after the unit
		// already left SENDING is a no-op.
		if from == domain.StateSending {
			to = domain.StateSent
			now := t.now().UTC()
			st.SentAt = &now
		}
	case SignalDelivered:
		// A receipt racing ahead of the send confirmation (unit still
		// SENDING) is dropped; delivery cannot resurrect a FAILED unit.
		if from == domain.StateSent {
			to = domain.StateDelivered
			now := t.now().UTC()
			st.DeliveredAt = &now
		}
	case SignalUndelivered:
		// No edge: lack of delivery is not failure.
	}

	if to == from {
		t.mu.Unlock()
		return
	}

	st.State = to
	counts := t.countsLocked()
	t.mu.Unlock()

	t.logger.Debug("unit transition",
		zap.String("batchId", t.batchID),
		zap.String("unitId", s.UnitID),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
	)

	if t.hook != nil {
		var reason domain.FailureReason
		if s.Kind == SignalSendFailed {
			reason = s.Reason
			if !reason.IsValid() {
				reason = domain.ReasonUnknown
			}
		}
		t.hook(s.UnitID, from, to, reason)
	}
	if t.progress != nil {
		t.progress.Publish(t.batchID, counts)
	}

	if counts.Settled() {
		t.settleOnce.Do(func() { close(t.settled) })
	}
}

// Counts folds over the current per-unit states. Nothing is cached, so the
// result can never drift from per-unit truth.
func (t *Tracker) Counts() domain.BatchCounts {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.countsLocked()
}

func (t *Tracker) countsLocked() domain.BatchCounts {
	var counts domain.BatchCounts
	for _, st := range t.statuses {
		switch st.State {
		case domain.StatePending:
			counts.Pending++
		case domain.StateSending:
			counts.Sending++
		case domain.StateSent:
			counts.Sent++
		case domain.StateDelivered:
			counts.Delivered++
		case domain.StateFailed:
			counts.Failed++
		}
	}
	return counts
}

// Statuses returns a copy of every unit status in plan order.
func (t *Tracker) Statuses() []domain.UnitStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]domain.UnitStatus, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, *t.statuses[id])
	}
	return out
}

func (t *Tracker) Status(unitID string) (domain.UnitStatus, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	st, ok := t.statuses[unitID]
	if !ok {
		return domain.UnitStatus{}, fmt.Errorf("%w: unit %q", domain.ErrNotFound, unitID)
	}
	return *st, nil
}

// Owns reports whether the tracker knows the unit. Used to route incoming
// receipts to the right run.
func (t *Tracker) Owns(unitID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.statuses[unitID]
	return ok
}

func (t *Tracker) Settled() bool {
	select {
	case <-t.settled:
		return true
	default:
		return false
	}
}

// Wait blocks until every unit reached a terminal state or the context is
// done.
func (t *Tracker) Wait(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	select {
	case <-t.settled:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
