package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLocalAllowRespectsBurst(t *testing.T) {
	t.Parallel()

	limiter := NewLocal(2)

	allowed := 0
	for i := 0; i < 10; i++ {
		ok, err := limiter.Allow(context.Background(), "gateway")
		if err != nil {
			t.Fatalf("Allow() error = %v", err)
		}
		if ok {
			allowed++
		}
	}

	if allowed != 2 {
		t.Fatalf("allowed = %d immediate submissions, want burst of 2", allowed)
	}
}

func TestLocalWaitHonorsContext(t *testing.T) {
	t.Parallel()

	limiter := NewLocal(1)
	if err := limiter.Wait(context.Background(), "gateway"); err != nil {
		t.Fatalf("first Wait() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx, "gateway"); err == nil {
		t.Fatal("Wait() with expired context expected error")
	}
}

func TestNopNeverDelays(t *testing.T) {
	t.Parallel()

	var limiter Nop
	ok, err := limiter.Allow(context.Background(), "gateway")
	if err != nil || !ok {
		t.Fatalf("Allow() = %v, %v; want true, nil", ok, err)
	}
	if err := limiter.Wait(context.Background(), "gateway"); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}
