package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RetryProvider wraps a Provider with exponential backoff retry logic.
// Streams are retried only until the provider accepts the request.
type RetryProvider struct {
	inner      Provider
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// RetryOption configures a RetryProvider.
type RetryOption func(*RetryProvider)

// WithBaseDelay sets the first backoff delay. It doubles on each attempt.
func WithBaseDelay(d time.Duration) RetryOption {
	return func(r *RetryProvider) { r.baseDelay = d }
}

// WithRequestRate caps outgoing requests, retries included, at perSecond.
func WithRequestRate(perSecond float64) RetryOption {
	return func(r *RetryProvider) {
		if perSecond > 0 {
			r.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

func WithLogger(l *zap.Logger) RetryOption {
	return func(r *RetryProvider) {
		if l != nil {
			r.logger = l
		}
	}
}

func WithRetry(p Provider, maxRetries int, opts ...RetryOption) *RetryProvider {
	if maxRetries < 0 {
		maxRetries = 0
	}
	r := &RetryProvider{
		inner:      p,
		maxRetries: maxRetries,
		baseDelay:  500 * time.Millisecond,
		maxDelay:   30 * time.Second,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RetryProvider) Name() string { return r.inner.Name() }

func (r *RetryProvider) Generate(ctx context.Context, msgs []Message) (string, error) {
	var out string
	err := r.do(ctx, "generate", func() error {
		var err error
		out, err = r.inner.Generate(ctx, msgs)
		return err
	})
	return out, err
}

func (r *RetryProvider) Stream(ctx context.Context, msgs []Message) (<-chan StreamChunk, error) {
	var ch <-chan StreamChunk
	err := r.do(ctx, "stream", func() error {
		var err error
		ch, err = r.inner.Stream(ctx, msgs)
		return err
	})
	return ch, err
}

func (r *RetryProvider) do(ctx context.Context, op string, call func() error) error {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		err := call()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isRetryable(err) || attempt == r.maxRetries {
			break
		}
		delay := r.delay(attempt)
		r.logger.Warn("llm request failed, retrying",
			zap.String("provider", r.inner.Name()),
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return lastErr
		}
	}
	if r.maxRetries > 0 && isRetryable(lastErr) {
		return fmt.Errorf("after %d retries: %w", r.maxRetries, lastErr)
	}
	return lastErr
}

func (r *RetryProvider) delay(attempt int) time.Duration {
	d := time.Duration(float64(r.baseDelay) * math.Pow(2, float64(attempt)))
	if d > r.maxDelay {
		d = r.maxDelay
	}
	return d
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	msg := err.Error()
	for _, s := range []string{"connection refused", "timeout", "EOF", "reset by peer"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
