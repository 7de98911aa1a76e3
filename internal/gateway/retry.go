package gateway

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ironsheep/answer-eraser/internal/failure"
)

// RetryPolicy describes how Retry backs off between attempts.
type RetryPolicy struct {
	// MaxAttempts is the total number of calls, including the first.
	MaxAttempts int
	// BaseDelay is the wait after the first failure. It doubles each attempt.
	BaseDelay time.Duration
	// MaxJitter bounds the random delay added to every wait.
	MaxJitter time.Duration

	// Sleep waits for d or until ctx is done. Nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// Jitter returns a duration in [0, max]. Nil uses math/rand.
	Jitter func(max time.Duration) time.Duration
	// OnRetry, if set, is called before each wait.
	OnRetry func(state RetryState, err error)
}

// DefaultRetryPolicy returns 5 attempts, 2s base delay and 250ms jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   2 * time.Second,
		MaxJitter:   250 * time.Millisecond,
	}
}

// RetryState is the bookkeeping of one Retry call.
type RetryState struct {
	// Attempt is 1-based.
	Attempt int
	// LastStatus is the HTTP status of the previous failure, or 0.
	LastStatus int
	// Delay is the wait before this attempt.
	Delay time.Duration
}

// retryable is implemented by errors that know whether they may succeed on a
// later attempt.
type retryable interface {
	Retryable() bool
}

// Retry calls op until it succeeds, fails with a non-retryable error, or
// MaxAttempts calls have been made. The last error is returned when attempts
// run out. No wait follows the final attempt. A cancelled ctx stops the wait
// and returns ctx.Err().
func Retry[T any](ctx context.Context, p RetryPolicy, op func(ctx context.Context, state RetryState) (T, error)) (T, error) {
	var zero T
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var state RetryState
	var lastErr error
	for i := 0; i < attempts; i++ {
		state.Attempt = i + 1
		v, err := op(ctx, state)
		if err == nil {
			return v, nil
		}
		lastErr = err

		var r retryable
		if !errors.As(err, &r) || !r.Retryable() {
			return zero, err
		}
		if i == attempts-1 {
			break
		}

		state.LastStatus = failure.StatusOf(err)
		state.Delay = p.delay(i, err)
		if p.OnRetry != nil {
			p.OnRetry(state, err)
		}
		if err := p.sleep(ctx, state.Delay); err != nil {
			return zero, err
		}
	}
	return zero, lastErr
}

// delay returns the wait after the failed attempt i (0-based): the server's
// Retry-After when present, otherwise BaseDelay·2^i, plus jitter.
func (p RetryPolicy) delay(i int, err error) time.Duration {
	d := p.BaseDelay << uint(i)
	var fe *failure.Error
	if errors.As(err, &fe) && fe.RetryAfter > 0 {
		d = fe.RetryAfter
	}
	if p.MaxJitter > 0 {
		if p.Jitter != nil {
			d += p.Jitter(p.MaxJitter)
		} else {
			d += time.Duration(rand.Int63n(int64(p.MaxJitter) + 1))
		}
	}
	return d
}

func (p RetryPolicy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// parseRetryAfter reads a Retry-After header given as delay-seconds, possibly
// fractional, or an HTTP date. Missing, malformed and past values yield 0.
func parseRetryAfter(h string, now time.Time) time.Duration {
	h = strings.TrimSpace(h)
	if h == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(h, 64); err == nil {
		if math.IsNaN(secs) || math.IsInf(secs, 0) || secs < 0 {
			return 0
		}
		return time.Duration(secs * float64(time.Second))
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
