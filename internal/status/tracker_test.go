package status

import (
	"context"
	"sync"
	"testing"
	"time"

	"smscast/internal/domain"
)

func testUnits(ids ...string) []domain.DispatchUnit {
	units := make([]domain.DispatchUnit, 0, len(ids))
	for _, id := range ids {
		units = append(units, domain.DispatchUnit{
			ID:          id,
			BatchID:     "b1",
			Destination: "+15551234567",
			Body:        "hi",
			PartIndex:   0,
			PartCount:   1,
		})
	}
	return units
}

func TestTrackerHappyPath(t *testing.T) {
	t.Parallel()

	tracker := NewTracker("b1", testUnits("u1"), nil)
	tracker.now = func() time.Time { return time.Unix(1_700_000_000, 0) }

	tracker.apply(Signal{UnitID: "u1", Kind: SignalSubmitOK})
	st, _ := tracker.Status("u1")
	if st.State != domain.StateSending {
		t.Fatalf("state after submitOk = %s, want SENDING", st.State)
	}

	tracker.apply(Signal{UnitID: "u1", Kind: SignalSendOK})
	st, _ = tracker.Status("u1")
	if st.State != domain.StateSent {
		t.Fatalf("state after sendOk = %s, want SENT", st.State)
	}
	if st.SentAt == nil || !st.SentAt.Equal(time.Unix(1_700_000_000, 0).UTC()) {
		t.Fatalf("SentAt = %v, want injected clock value", st.SentAt)
	}

	tracker.apply(Signal{UnitID: "u1", Kind: SignalDelivered})
	st, _ = tracker.Status("u1")
	if st.State != domain.StateDelivered {
		t.Fatalf("state after delivered = %s, want DELIVERED", st.State)
	}
	if st.DeliveredAt == nil {
		t.Fatal("DeliveredAt should be recorded")
	}
}

func TestTrackerSendFailure(t *testing.T) {
	t.Parallel()

	tracker := NewTracker("b1", testUnits("u1"), nil)
	tracker.apply(Signal{UnitID: "u1", Kind: SignalSubmitOK})
	tracker.apply(Signal{UnitID: "u1", Kind: SignalSendFailed, Reason: domain.ReasonNoService})

	st, _ := tracker.Status("u1")
	if st.State != domain.StateFailed {
		t.Fatalf("state = %s, want FAILED", st.State)
	}
	if st.FailureReason == nil || *st.FailureReason != domain.ReasonNoService {
		t.Fatalf("FailureReason = %v, want NO_SERVICE", st.FailureReason)
	}
}

func TestTrackerDeliveryCannotResurrectFailedUnit(t *testing.T) {
	t.Parallel()

	tracker := NewTracker("b1", testUnits("u1"), nil)
	tracker.apply(Signal{UnitID: "u1", Kind: SignalSubmitOK})
	tracker.apply(Signal{UnitID: "u1", Kind: SignalSendFailed, Reason: domain.ReasonNoService})
	tracker.apply(Signal{UnitID: "u1", Kind: SignalDelivered})

	st, _ := tracker.Status("u1")
	if st.State != domain.StateFailed {
		t.Fatalf("state = %s, want FAILED after late delivery receipt", st.State)
	}
}

func TestTrackerTimeoutForcesSentExactlyOnce(t *testing.T) {
	t.Parallel()

	tracker := NewTracker("b1", testUnits("u1"), nil)
	transitions := 0
	tracker.SetTransitionHook(func(unitID string, from, to domain.UnitState, reason domain.FailureReason) {
		if to == domain.StateSent {
			transitions++
		}
	})

	tracker.apply(Signal{UnitID: "u1", Kind: SignalSubmitOK})
	tracker.apply(Signal{UnitID: "u1", Kind: SignalTimeout})
	tracker.apply(Signal{UnitID: "u1", Kind: SignalTimeout})

	st, _ := tracker.Status("u1")
	if st.State != domain.StateSent {
		t.Fatalf("state = %s, want SENT", st.State)
	}
	if transitions != 1 {
		t.Fatalf("SENT transitions = %d, want exactly 1", transitions)
	}
}

func TestTrackerLateTimeoutIsNoOp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup []Signal
		want  domain.UnitState
	}{
		{
			name:  "after sendOk",
			setup: []Signal{{UnitID: "u1", Kind: SignalSubmitOK}, {UnitID: "u1", Kind: SignalSendOK}},
			want:  domain.StateSent,
		},
		{
			name: "after failure",
			setup: []Signal{
				{UnitID: "u1", Kind: SignalSubmitOK},
				{UnitID: "u1", Kind: SignalSendFailed, Reason: domain.ReasonRadioUnavailable},
			},
			want: domain.StateFailed,
		},
		{
			name: "after delivery",
			setup: []Signal{
				{UnitID: "u1", Kind: SignalSubmitOK},
				{UnitID: "u1", Kind: SignalSendOK},
				{UnitID: "u1", Kind: SignalDelivered},
			},
			want: domain.StateDelivered,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tracker := NewTracker("b1", testUnits("u1"), nil)
			for _, s := range tt.setup {
				tracker.apply(s)
			}
			tracker.apply(Signal{UnitID: "u1", Kind: SignalTimeout})

			st, _ := tracker.Status("u1")
			if st.State != tt.want {
				t.Fatalf("state = %s, want %s (timeout must be a no-op)", st.State, tt.want)
			}
		})
	}
}

func TestTrackerDeliveryRacingAheadOfSendResultIsDropped(t *testing.T) {
	t.Parallel()

	tracker := NewTracker("b1", testUnits("u1"), nil)
	tracker.apply(Signal{UnitID: "u1", Kind: SignalSubmitOK})
	tracker.apply(Signal{UnitID: "u1", Kind: SignalDelivered})

	st, _ := tracker.Status("u1")
	if st.State != domain.StateSending {
		t.Fatalf("state = %s, want SENDING (early receipt dropped)", st.State)
	}
}

func TestTrackerUndeliveredKeepsSent(t *testing.T) {
	t.Parallel()

	tracker := NewTracker("b1", testUnits("u1"), nil)
	tracker.apply(Signal{UnitID: "u1", Kind: SignalSubmitOK})
	tracker.apply(Signal{UnitID: "u1", Kind: SignalSendOK})
	tracker.apply(Signal{UnitID: "u1", Kind: SignalUndelivered})

	st, _ := tracker.Status("u1")
	if st.State != domain.StateSent {
		t.Fatalf("state = %s, want SENT (negative receipt is not failure)", st.State)
	}
}

func TestTrackerCountsAreFoldOverStates(t *testing.T) {
	t.Parallel()

	tracker := NewTracker("b1", testUnits("u1", "u2", "u3", "u4"), nil)
	tracker.apply(Signal{UnitID: "u1", Kind: SignalSubmitOK})
	tracker.apply(Signal{UnitID: "u1", Kind: SignalSendOK})
	tracker.apply(Signal{UnitID: "u2", Kind: SignalSubmitOK})
	tracker.apply(Signal{UnitID: "u2", Kind: SignalSendFailed, Reason: domain.ReasonUnknown})
	tracker.apply(Signal{UnitID: "u3", Kind: SignalSubmitOK})

	counts := tracker.Counts()
	want := domain.BatchCounts{Pending: 1, Sending: 1, Sent: 1, Failed: 1}
	if counts != want {
		t.Fatalf("Counts() = %+v, want %+v", counts, want)
	}
	if counts.Settled() {
		t.Fatal("batch with pending units must not be settled")
	}
}

func TestTrackerSettlementAndWait(t *testing.T) {
	t.Parallel()

	tracker := NewTracker("b1", testUnits("u1", "u2"), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- tracker.Run(ctx) }()

	tracker.Signal(Signal{UnitID: "u1", Kind: SignalSubmitOK})
	tracker.Signal(Signal{UnitID: "u1", Kind: SignalSendOK})
	tracker.Signal(Signal{UnitID: "u2", Kind: SignalSubmitOK})
	tracker.Signal(Signal{UnitID: "u2", Kind: SignalSendFailed, Reason: domain.ReasonNoService})

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()
	if err := tracker.Wait(waitCtx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if !tracker.Settled() {
		t.Fatal("Settled() = false after Wait returned")
	}

	// A late delivery receipt after settlement still upgrades the unit.
	tracker.Signal(Signal{UnitID: "u1", Kind: SignalDelivered})
	deadline := time.Now().Add(2 * time.Second)
	for {
		st, _ := tracker.Status("u1")
		if st.State == domain.StateDelivered {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("state = %s, want DELIVERED after late receipt", st.State)
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestTrackerProgressEmittedOnEveryTransition(t *testing.T) {
	t.Parallel()

	tracker := NewTracker("b1", testUnits("u1"), nil)

	var mu sync.Mutex
	var snapshots []domain.BatchCounts
	tracker.SetProgressSink(progressFunc(func(batchID string, counts domain.BatchCounts) {
		if batchID != "b1" {
			t.Errorf("batchID = %q, want b1", batchID)
		}
		mu.Lock()
		snapshots = append(snapshots, counts)
		mu.Unlock()
	}))

	tracker.apply(Signal{UnitID: "u1", Kind: SignalSubmitOK})
	tracker.apply(Signal{UnitID: "u1", Kind: SignalSendOK})
	tracker.apply(Signal{UnitID: "u1", Kind: SignalSendOK}) // no-op, no emission

	mu.Lock()
	defer mu.Unlock()
	if len(snapshots) != 2 {
		t.Fatalf("progress emissions = %d, want 2", len(snapshots))
	}
	if snapshots[1].Sent != 1 {
		t.Fatalf("final snapshot sent = %d, want 1", snapshots[1].Sent)
	}
}

func TestTrackerUnknownUnitSignalIgnored(t *testing.T) {
	t.Parallel()

	tracker := NewTracker("b1", testUnits("u1"), nil)
	tracker.apply(Signal{UnitID: "ghost", Kind: SignalSubmitOK})

	counts := tracker.Counts()
	if counts.Pending != 1 {
		t.Fatalf("Counts() = %+v, want untouched single pending unit", counts)
	}
	if tracker.Owns("ghost") {
		t.Fatal("Owns(ghost) = true, want false")
	}
	if !tracker.Owns("u1") {
		t.Fatal("Owns(u1) = false, want true")
	}
}

type progressFunc func(batchID string, counts domain.BatchCounts)

func (f progressFunc) Publish(batchID string, counts domain.BatchCounts) { f(batchID, counts) }
