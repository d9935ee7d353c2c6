package guard

import (
	"context"
	"testing"
	"time"
)

func TestBudget(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		unitCount int
		delay     time.Duration
		timeout   time.Duration
		want      time.Duration
	}{
		{
			name:      "single unit",
			unitCount: 1,
			delay:     5 * time.Second,
			timeout:   10 * time.Second,
			want:      45 * time.Second,
		},
		{
			name:      "ten units",
			unitCount: 10,
			delay:     5 * time.Second,
			timeout:   10 * time.Second,
			want:      180 * time.Second,
		},
		{
			name:      "zero units keeps only padding",
			unitCount: 0,
			delay:     5 * time.Second,
			timeout:   10 * time.Second,
			want:      30 * time.Second,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := Budget(tc.unitCount, tc.delay, tc.timeout); got != tc.want {
				t.Fatalf("Budget() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestHoldReleaseIsIdempotent(t *testing.T) {
	t.Parallel()

	released := 0
	h := newHold(func() { released++ })

	h.Release()
	h.Release()
	h.Release()

	if released != 1 {
		t.Fatalf("release count = %d, want 1", released)
	}
}

func TestHoldNilReceiverIsSafe(t *testing.T) {
	t.Parallel()

	var h *hold
	h.Release()
}

func TestNoopGuard(t *testing.T) {
	t.Parallel()

	g := Noop{}
	h, err := g.Acquire(context.Background(), "bulk send", time.Minute)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	h.Release()
	h.Release()
}
