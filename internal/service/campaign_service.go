package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"smscast/internal/dispatch"
	"smscast/internal/domain"
	"smscast/internal/guard"
	"smscast/internal/observability"
	"smscast/internal/plan"
	"smscast/internal/queue"
	"smscast/internal/ratelimit"
	"smscast/internal/repository"
	"smscast/internal/status"
	"smscast/internal/transport"
)

const (
	maxRecipientsPerBatch = 1000

	// settleGracePadding extends the settle wait past the last unit's send
	// timeout so the forced-SENT fallback always has a chance to land.
	settleGracePadding = 2 * time.Second

	// defaultRunLinger keeps a settled run addressable so late delivery
	// receipts can still upgrade SENT units.
	defaultRunLinger = 30 * time.Second

	statsWriteTimeout = 5 * time.Second
)

// CampaignService owns the full life of a batch: planning, history, guard,
// the dispatch walk, and receipt routing.
type CampaignService struct {
	planner   *plan.Planner
	history   repository.HistoryRepository
	port      transport.Port
	limiter   ratelimit.Limiter
	guard     guard.Guard
	directory RecipientDirectory
	opts      dispatch.Options
	logger    *zap.Logger
	metrics   *observability.Metrics

	mu        sync.Mutex
	runs      map[string]*run
	unitIndex map[string]*run

	linger time.Duration
	now    func() time.Time
	newID  func() string
	sleep  func(ctx context.Context, d time.Duration) error
}

// run is one in-flight batch.
type run struct {
	batch   domain.Batch
	units   []domain.DispatchUnit
	tracker *status.Tracker
	cancel  context.CancelFunc
	hold    guard.Hold
	done    chan struct{}
}

type CreateParams struct {
	Template   string
	Recipients []domain.Recipient
	GroupIDs   []string
}

type CreateResult struct {
	BatchID        string
	RecipientCount int
	TotalUnits     int
	Skipped        int
}

// BatchSummary is the read model for one batch. Statuses is populated only
// while the run is still resident; afterwards the persisted aggregation is
// all that remains.
type BatchSummary struct {
	BatchID        string
	Template       string
	RecipientCount int
	TotalUnits     int
	Counts         domain.BatchCounts
	Settled        bool
	Statuses       []domain.UnitStatus
}

func NewCampaignService(
	planner *plan.Planner,
	history repository.HistoryRepository,
	port transport.Port,
	limiter ratelimit.Limiter,
	g guard.Guard,
	directory RecipientDirectory,
	opts dispatch.Options,
	logger *zap.Logger,
) (*CampaignService, error) {
	if planner == nil {
		return nil, fmt.Errorf("planner is required")
	}
	if history == nil {
		return nil, fmt.Errorf("history repository is required")
	}
	if port == nil {
		return nil, fmt.Errorf("transport port is required")
	}
	if limiter == nil {
		limiter = ratelimit.Nop{}
	}
	if g == nil {
		g = guard.Noop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CampaignService{
		planner:   planner,
		history:   history,
		port:      port,
		limiter:   limiter,
		guard:     g,
		directory: directory,
		opts:      opts,
		logger:    logger,
		runs:      make(map[string]*run),
		unitIndex: make(map[string]*run),
		linger:    defaultRunLinger,
		now:       time.Now,
		newID:     uuid.NewString,
		sleep:     sleepWithContext,
	}, nil
}

func (s *CampaignService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Create plans a batch, persists its history record, and starts the dispatch
// run in the background. The returned result only confirms acceptance; all
// outcomes arrive through the status stream.
func (s *CampaignService) Create(ctx context.Context, params CreateParams) (*CreateResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	template := strings.TrimSpace(params.Template)
	if template == "" {
		return nil, fmt.Errorf("%w: template is required", domain.ErrValidation)
	}

	recipients, err := s.resolveRecipients(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, fmt.Errorf("%w: at least one recipient is required", domain.ErrValidation)
	}
	if len(recipients) > maxRecipientsPerBatch {
		return nil, fmt.Errorf("%w: recipient count exceeds %d", domain.ErrValidation, maxRecipientsPerBatch)
	}

	batchID := s.newID()
	units, skipped := s.planner.Build(batchID, template, recipients)
	if len(units) == 0 {
		return nil, fmt.Errorf("%w: no usable recipients after planning", domain.ErrValidation)
	}

	batch := domain.Batch{
		ID:             batchID,
		Template:       template,
		RecipientCount: len(recipients),
		TotalUnits:     len(units),
		CreatedAt:      s.now().UTC(),
	}
	if err := s.history.Create(ctx, &batch); err != nil {
		return nil, fmt.Errorf("failed to persist batch history: %w", err)
	}

	tracker := status.NewTracker(batchID, units, s.logger)
	tracker.SetTransitionHook(s.transitionHook)
	tracker.SetProgressSink(multiProgressSink{
		NewLoggingProgressSink(s.logger),
		progressFunc(s.persistProgress),
	})

	dispatcher, err := dispatch.NewDispatcher(s.port, s.limiter, tracker, s.opts, s.logger)
	if err != nil {
		return nil, err
	}
	dispatcher.SetMetrics(s.metrics)

	hold := s.acquireHold(ctx, batchID, len(units))

	runCtx, cancel := context.WithCancel(context.Background())
	r := &run{
		batch:   batch,
		units:   units,
		tracker: tracker,
		cancel:  cancel,
		hold:    hold,
		done:    make(chan struct{}),
	}
	s.registerRun(r)

	s.metrics.IncBatchStarted()
	s.metrics.IncBatchActive()
	s.logger.Info("batch accepted",
		zap.String("batchId", batchID),
		zap.Int("recipients", len(recipients)),
		zap.Int("units", len(units)),
		zap.Int("skipped", skipped),
	)

	go s.execute(runCtx, cancel, r, dispatcher)

	return &CreateResult{
		BatchID:        batchID,
		RecipientCount: len(recipients),
		TotalUnits:     len(units),
		Skipped:        skipped,
	}, nil
}

func (s *CampaignService) resolveRecipients(ctx context.Context, params CreateParams) ([]domain.Recipient, error) {
	recipients := append([]domain.Recipient(nil), params.Recipients...)

	if len(params.GroupIDs) == 0 {
		return recipients, nil
	}
	if s.directory == nil {
		return nil, fmt.Errorf("%w: recipient groups are not configured", domain.ErrValidation)
	}

	resolved, err := s.directory.Resolve(ctx, params.GroupIDs)
	if err != nil {
		return nil, err
	}
	return append(recipients, resolved...), nil
}

func (s *CampaignService) acquireHold(ctx context.Context, batchID string, unitCount int) guard.Hold {
	budget := guard.Budget(unitCount, s.opts.DelayBetweenRecipients, s.opts.SendTimeout)
	hold, err := s.guard.Acquire(ctx, fmt.Sprintf("bulk sms batch %s", batchID), budget)
	if err != nil {
		s.logger.Warn("resource guard unavailable, batch runs unguarded",
			zap.String("batchId", batchID),
			zap.Error(err),
		)
		return guard.NopHold()
	}
	return hold
}

func (s *CampaignService) execute(ctx context.Context, cancel context.CancelFunc, r *run, dispatcher *dispatch.Dispatcher) {
	defer func() {
		r.hold.Release()
		s.metrics.DecBatchActive()
		cancel()
		s.dropRun(r)
		close(r.done)
	}()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return r.tracker.Run(gctx)
	})

	g.Go(func() error {
		defer cancel()

		if err := dispatcher.Run(gctx, r.units); err != nil {
			s.logger.Error("dispatch walk aborted",
				zap.String("batchId", r.batch.ID),
				zap.Error(err),
			)
		}

		grace := s.opts.SendTimeout + settleGracePadding
		waitCtx, waitCancel := context.WithTimeout(gctx, grace)
		err := r.tracker.Wait(waitCtx)
		waitCancel()
		if err != nil {
			counts := r.tracker.Counts()
			s.logger.Warn("batch did not settle within grace",
				zap.String("batchId", r.batch.ID),
				zap.Int("pending", counts.Pending),
				zap.Int("sending", counts.Sending),
			)
			return nil
		}

		// Stay resident for a while so late delivery receipts still land.
		_ = s.sleep(gctx, s.linger)
		return nil
	})

	_ = g.Wait()

	counts := r.tracker.Counts()
	s.persistProgress(r.batch.ID, counts)
	s.logger.Info("batch finished",
		zap.String("batchId", r.batch.ID),
		zap.Int("sent", counts.SentOrBetter()),
		zap.Int("delivered", counts.Delivered),
		zap.Int("failed", counts.Failed),
		zap.Int("total", counts.Total()),
	)
}

func (s *CampaignService) registerRun(r *run) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[r.batch.ID] = r
	for _, unit := range r.units {
		s.unitIndex[unit.ID] = r
	}
}

func (s *CampaignService) dropRun(r *run) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.runs, r.batch.ID)
	for _, unit := range r.units {
		delete(s.unitIndex, unit.ID)
	}
}

func (s *CampaignService) lookupRun(batchID string) *run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs[batchID]
}

func (s *CampaignService) lookupRunByUnit(unitID string) *run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unitIndex[unitID]
}

// GetSummary serves live runs from the tracker and settled batches from
// history.
func (s *CampaignService) GetSummary(ctx context.Context, batchID string) (*BatchSummary, error) {
	batchID = strings.TrimSpace(batchID)
	if batchID == "" {
		return nil, fmt.Errorf("%w: batch id is required", domain.ErrValidation)
	}

	if r := s.lookupRun(batchID); r != nil {
		counts := r.tracker.Counts()
		return &BatchSummary{
			BatchID:        r.batch.ID,
			Template:       r.batch.Template,
			RecipientCount: r.batch.RecipientCount,
			TotalUnits:     r.batch.TotalUnits,
			Counts:         counts,
			Settled:        r.tracker.Settled(),
			Statuses:       r.tracker.Statuses(),
		}, nil
	}

	entry, err := s.history.GetByBatchID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	return summaryFromHistory(entry), nil
}

func summaryFromHistory(entry *domain.HistoryEntry) *BatchSummary {
	counts := domain.BatchCounts{
		Sent:      entry.SentCount - entry.DeliveredCount,
		Delivered: entry.DeliveredCount,
		Failed:    entry.FailedCount,
	}
	if counts.Sent < 0 {
		counts.Sent = 0
	}
	if remainder := entry.TotalUnits - counts.Total(); remainder > 0 {
		counts.Pending = remainder
	}

	return &BatchSummary{
		BatchID:        entry.BatchID,
		Template:       entry.Template,
		RecipientCount: entry.RecipientCount,
		TotalUnits:     entry.TotalUnits,
		Counts:         counts,
		Settled:        counts.Settled(),
	}
}

// Cancel stops the walk of a live batch. Units already submitted settle on
// their own; units never submitted stay PENDING.
func (s *CampaignService) Cancel(ctx context.Context, batchID string) error {
	batchID = strings.TrimSpace(batchID)
	if batchID == "" {
		return fmt.Errorf("%w: batch id is required", domain.ErrValidation)
	}

	if r := s.lookupRun(batchID); r != nil {
		r.cancel()
		s.logger.Info("batch cancel requested", zap.String("batchId", batchID))
		return nil
	}

	if _, err := s.history.GetByBatchID(ctx, batchID); err != nil {
		return err
	}
	return fmt.Errorf("%w: batch %q is not running", domain.ErrCanceled, batchID)
}

// IngestReceipt routes an asynchronous gateway receipt to the run that owns
// the unit. Receipts for unknown units are dropped, not errors: the run may
// already be gone.
func (s *CampaignService) IngestReceipt(_ context.Context, msg queue.ReceiptMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	event := strings.ToLower(strings.TrimSpace(msg.Event))
	r := s.lookupRunByUnit(msg.UnitID)
	if r == nil {
		s.metrics.IncReceiptDropped(event)
		s.logger.Debug("receipt for unknown unit dropped",
			zap.String("unitId", msg.UnitID),
			zap.String("event", event),
		)
		return nil
	}

	sig := status.Signal{UnitID: msg.UnitID}
	switch event {
	case queue.ReceiptEventSent:
		sig.Kind = status.SignalSendOK
	case queue.ReceiptEventFailed:
		sig.Kind = status.SignalSendFailed
		sig.Reason = domain.ParseFailureReasonFromString(msg.Reason)
	case queue.ReceiptEventDelivered:
		sig.Kind = status.SignalDelivered
	case queue.ReceiptEventUndelivered:
		sig.Kind = status.SignalUndelivered
	default:
		return fmt.Errorf("%w: unknown receipt event %q", domain.ErrValidation, msg.Event)
	}

	r.tracker.Signal(sig)
	return nil
}

func (s *CampaignService) Preview(_ context.Context, template string, recipients []domain.Recipient) ([]plan.Preview, error) {
	if strings.TrimSpace(template) == "" {
		return nil, fmt.Errorf("%w: template is required", domain.ErrValidation)
	}
	if len(recipients) == 0 {
		return nil, fmt.Errorf("%w: at least one recipient is required", domain.ErrValidation)
	}
	return plan.PreviewRender(template, recipients), nil
}

func (s *CampaignService) Placeholders() []string {
	return plan.Placeholders()
}

func (s *CampaignService) ListHistory(ctx context.Context, limit int) ([]*domain.HistoryEntry, error) {
	return s.history.List(ctx, limit)
}

// Shutdown cancels every live run and waits for them to wind down.
func (s *CampaignService) Shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	active := make([]*run, 0, len(s.runs))
	for _, r := range s.runs {
		active = append(active, r)
	}
	s.mu.Unlock()

	for _, r := range active {
		r.cancel()
	}
	for _, r := range active {
		select {
		case <-r.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *CampaignService) transitionHook(_ string, _, to domain.UnitState, reason domain.FailureReason) {
	switch to {
	case domain.StateSent:
		s.metrics.IncUnitSent()
	case domain.StateDelivered:
		s.metrics.IncUnitDelivered()
	case domain.StateFailed:
		s.metrics.IncUnitFailed(reason.String())
	}
}

func (s *CampaignService) persistProgress(batchID string, counts domain.BatchCounts) {
	ctx, cancel := context.WithTimeout(context.Background(), statsWriteTimeout)
	defer cancel()

	if err := s.history.UpdateStats(ctx, batchID, counts); err != nil {
		s.logger.Error("failed to persist batch stats",
			zap.String("batchId", batchID),
			zap.Error(err),
		)
	}
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
