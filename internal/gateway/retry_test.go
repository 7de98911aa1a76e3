package gateway

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/ironsheep/answer-eraser/internal/failure"
)

// fakeClock records the waits requested by Retry.
type fakeClock struct {
	sleeps []time.Duration
}

func (c *fakeClock) policy(maxAttempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		BaseDelay:   2 * time.Second,
		MaxJitter:   250 * time.Millisecond,
		Sleep: func(ctx context.Context, d time.Duration) error {
			c.sleeps = append(c.sleeps, d)
			return ctx.Err()
		},
		Jitter: func(time.Duration) time.Duration { return 0 },
	}
}

func TestRetry_SucceedsOnNthAttempt(t *testing.T) {
	for n := 1; n <= 5; n++ {
		clock := &fakeClock{}
		calls := 0
		got, err := Retry(context.Background(), clock.policy(5), func(ctx context.Context, st RetryState) (string, error) {
			calls++
			if st.Attempt != calls {
				t.Errorf("Attempt: got %d, want %d", st.Attempt, calls)
			}
			if calls < n {
				return "", failure.HTTP("op", http.StatusTooManyRequests, 0, nil)
			}
			return "payload", nil
		})
		if err != nil {
			t.Fatalf("n=%d: Retry failed: %v", n, err)
		}
		if got != "payload" {
			t.Errorf("n=%d: got %q", n, got)
		}
		if calls != n {
			t.Errorf("n=%d: calls: got %d, want %d", n, calls, n)
		}
		if len(clock.sleeps) != n-1 {
			t.Errorf("n=%d: sleeps: got %d, want %d", n, len(clock.sleeps), n-1)
		}
	}
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	clock := &fakeClock{}
	calls := 0
	_, err := Retry(context.Background(), clock.policy(5), func(ctx context.Context, st RetryState) (int, error) {
		calls++
		return 0, failure.HTTP("op", http.StatusTooManyRequests, 0, nil)
	})

	if calls != 5 {
		t.Errorf("calls: got %d, want 5", calls)
	}
	if failure.StatusOf(err) != 429 {
		t.Errorf("expected HTTP 429, got %v", err)
	}

	// No wait after the final attempt; exponential delays otherwise.
	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second}
	if len(clock.sleeps) != len(want) {
		t.Fatalf("sleeps: got %v, want %v", clock.sleeps, want)
	}
	for i := range want {
		if clock.sleeps[i] != want[i] {
			t.Errorf("sleep %d: got %v, want %v", i, clock.sleeps[i], want[i])
		}
	}
}

func TestRetry_NonRetryableFailsImmediately(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"unauthorized", failure.HTTP("op", 401, 0, nil)},
		{"server error", failure.HTTP("op", 500, 0, nil)},
		{"transport", failure.Transport("op", errors.New("reset"))},
		{"plain", errors.New("plain")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := &fakeClock{}
			calls := 0
			_, err := Retry(context.Background(), clock.policy(5), func(ctx context.Context, st RetryState) (int, error) {
				calls++
				return 0, tt.err
			})
			if err != tt.err {
				t.Errorf("error: got %v, want %v", err, tt.err)
			}
			if calls != 1 {
				t.Errorf("calls: got %d, want 1", calls)
			}
			if len(clock.sleeps) != 0 {
				t.Errorf("unexpected sleeps: %v", clock.sleeps)
			}
		})
	}
}

func TestRetry_ServiceUnavailableThenFatal(t *testing.T) {
	clock := &fakeClock{}
	calls := 0
	_, err := Retry(context.Background(), clock.policy(5), func(ctx context.Context, st RetryState) (int, error) {
		calls++
		if calls == 1 {
			return 0, failure.HTTP("op", http.StatusServiceUnavailable, 0, nil)
		}
		if st.LastStatus != 503 {
			t.Errorf("LastStatus: got %d, want 503", st.LastStatus)
		}
		return 0, failure.HTTP("op", http.StatusBadRequest, 0, nil)
	})
	if calls != 2 || failure.StatusOf(err) != 400 {
		t.Errorf("calls=%d err=%v, want 2 calls ending in 400", calls, err)
	}
}

func TestRetry_HonorsRetryAfter(t *testing.T) {
	clock := &fakeClock{}
	calls := 0
	_, err := Retry(context.Background(), clock.policy(3), func(ctx context.Context, st RetryState) (int, error) {
		calls++
		if calls == 1 {
			return 0, failure.HTTP("op", 429, 7*time.Second, nil)
		}
		if st.Delay != 7*time.Second {
			t.Errorf("Delay: got %v, want 7s", st.Delay)
		}
		return 1, nil
	})
	if err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if len(clock.sleeps) != 1 || clock.sleeps[0] != 7*time.Second {
		t.Errorf("sleeps: got %v, want [7s]", clock.sleeps)
	}
}

func TestRetry_AddsJitter(t *testing.T) {
	p := DefaultRetryPolicy()
	for i := 0; i < 100; i++ {
		d := p.delay(1, failure.HTTP("op", 429, 0, nil))
		if d < 4*time.Second || d > 4*time.Second+250*time.Millisecond {
			t.Fatalf("delay out of range: %v", d)
		}
	}
}

func TestRetry_CancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := DefaultRetryPolicy()
	p.BaseDelay = time.Hour

	calls := 0
	_, err := Retry(ctx, p, func(ctx context.Context, st RetryState) (int, error) {
		calls++
		cancel()
		return 0, failure.HTTP("op", 429, 0, nil)
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		header string
		want   time.Duration
	}{
		{"seconds", "3", 3 * time.Second},
		{"padded", " 10 ", 10 * time.Second},
		{"fractional", "1.5", 1500 * time.Millisecond},
		{"not a number", "NaN", 0},
		{"http date", "Wed, 01 May 2024 12:00:30 GMT", 30 * time.Second},
		{"past date", "Wed, 01 May 2024 11:00:00 GMT", 0},
		{"negative", "-5", 0},
		{"empty", "", 0},
		{"garbage", "soon", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseRetryAfter(tt.header, now); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
