package core

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRetryPolicy_CalculateDelay(t *testing.T) {
	p := RetryPolicy{InitialDelay: 10 * time.Millisecond, MaxDelay: 35 * time.Millisecond, BackoffRatio: 2}

	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 35 * time.Millisecond}
	for i, w := range want {
		if got := p.calculateDelay(i); got != w {
			t.Errorf("attempt %d delay = %v, want %v", i, got, w)
		}
	}
	if got := NoRetry().calculateDelay(3); got != 0 {
		t.Errorf("NoRetry delay = %v, want 0", got)
	}
}

// TestBlockingIOWithRetry verifies retries park between attempts and stop on success
func TestBlockingIOWithRetry(t *testing.T) {
	s := newTestRuntime(t, 1)
	var attempts atomic.Int32
	policy := RetryPolicy{MaxRetries: 3, InitialDelay: time.Millisecond, BackoffRatio: 2}

	task, _ := NewBuilder(s).Start(func(ctx context.Context) error {
		return BlockingIOWithRetry(ctx, policy, func() error {
			if attempts.Add(1) < 3 {
				return errors.New("transient")
			}
			return nil
		})
	})

	if o := joinWithin(t, task, time.Second); !o.OK() {
		t.Fatalf("outcome = %+v", o)
	}
	if attempts.Load() != 3 {
		t.Errorf("attempts = %d, want 3", attempts.Load())
	}
	if task.Info().Parks < 3 {
		t.Errorf("parks = %d, want each attempt and backoff to park", task.Info().Parks)
	}
}

// TestBlockingIOWithRetry_Exhausted verifies the last error is wrapped
func TestBlockingIOWithRetry_Exhausted(t *testing.T) {
	cause := errors.New("down")
	err := BlockingIOWithRetry(context.Background(), RetryPolicy{MaxRetries: 1}, func() error { return cause })

	if !errors.Is(err, cause) {
		t.Errorf("err = %v, want wrapped cause", err)
	}
}
