package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errTransient = errors.New("backend overloaded")

func alwaysRetryable(error) bool { return true }

func TestDoReturnsFirstSuccess(t *testing.T) {
	calls := 0
	v, err := Do(context.Background(), Policy{MaxAttempts: 3, IsRetryable: alwaysRetryable}, func(ctx context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if v != "ok" || calls != 1 {
		t.Fatalf("v = %q, calls = %d", v, calls)
	}
}

func TestDoRespectsAttemptBudget(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), Policy{MaxAttempts: 3, IsRetryable: alwaysRetryable}, func(ctx context.Context) (int, error) {
		calls++
		return 0, errTransient
	})
	if calls != 3 {
		t.Fatalf("op invoked %d times, want 3", calls)
	}
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("error = %v, want ExhaustedError", err)
	}
	if exhausted.Attempts != 3 {
		t.Fatalf("Attempts = %d, want 3", exhausted.Attempts)
	}
	if !errors.Is(err, errTransient) {
		t.Fatal("ExhaustedError must preserve the last error")
	}
}

func TestDoLargerBudgetForProTier(t *testing.T) {
	p := ProPolicy()
	p.BaseDelay = 0
	p.IsRetryable = alwaysRetryable
	calls := 0
	_, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
		calls++
		return 0, errTransient
	})
	if calls != 6 {
		t.Fatalf("op invoked %d times, want 6", calls)
	}
	if !IsExhausted(err) {
		t.Fatalf("error = %v, want exhausted", err)
	}
}

func TestDoFatalShortCircuits(t *testing.T) {
	fatal := errors.New("bad request")
	calls := 0
	_, err := Do(context.Background(), Policy{MaxAttempts: 5, IsRetryable: func(err error) bool { return !errors.Is(err, fatal) }}, func(ctx context.Context) (int, error) {
		calls++
		return 0, fatal
	})
	if calls != 1 {
		t.Fatalf("op invoked %d times, want 1", calls)
	}
	if !errors.Is(err, fatal) {
		t.Fatalf("error = %v, want fatal error", err)
	}
	if IsExhausted(err) {
		t.Fatal("fatal error must not be wrapped as exhausted")
	}
}

func TestDoStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := Do(ctx, Policy{MaxAttempts: 10, BaseDelay: time.Hour, IsRetryable: alwaysRetryable}, func(ctx context.Context) (int, error) {
		calls++
		return 0, errTransient
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Fatalf("op invoked %d times, want 1", calls)
	}
}

func TestDelayBounds(t *testing.T) {
	p := Policy{BaseDelay: 100 * time.Millisecond, MaxDelay: 400 * time.Millisecond}
	for i := 0; i < 8; i++ {
		d := p.delay(i)
		exp := p.BaseDelay << uint(i)
		if exp > p.MaxDelay {
			exp = p.MaxDelay
		}
		if d < exp {
			t.Fatalf("delay(%d) = %v, below backoff %v", i, d, exp)
		}
		// Jitter is bounded by the base delay, not the exponential term.
		if d >= exp+p.BaseDelay {
			t.Fatalf("delay(%d) = %v, jitter exceeds base delay bound", i, d)
		}
	}
}

func TestDelayZeroBase(t *testing.T) {
	p := Policy{}
	if d := p.delay(3); d != 0 {
		t.Fatalf("delay = %v, want 0", d)
	}
}
