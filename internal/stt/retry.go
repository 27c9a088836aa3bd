package stt

import (
	"context"
	"log/slog"
	"time"
)

const (
	defaultMaxRetries   = 3
	defaultInitialDelay = time.Second
)

// RetryPolicy controls how transcription failures are retried. Delays
// double with each attempt: 1s, 2s, 4s for the defaults.
type RetryPolicy struct {
	MaxRetries   int
	InitialDelay time.Duration
}

// WithDefaults fills in zero fields.
func (p RetryPolicy) WithDefaults() RetryPolicy {
	if p.MaxRetries <= 0 {
		p.MaxRetries = defaultMaxRetries
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = defaultInitialDelay
	}
	return p
}

// Delay returns the backoff before the given retry attempt (1-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	delay := p.InitialDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	return delay
}

// Transcriber wraps an Adapter with retry-on-transient-failure semantics.
// Only Network-classified errors are retried; provider rejections and
// local failures surface immediately.
type Transcriber struct {
	adapter Adapter
	policy  RetryPolicy
	sleep   func(ctx context.Context, d time.Duration) error // tests override
}

// NewTranscriber wraps adapter with the given policy.
func NewTranscriber(adapter Adapter, policy RetryPolicy) *Transcriber {
	return &Transcriber{
		adapter: adapter,
		policy:  policy.WithDefaults(),
		sleep:   sleepCtx,
	}
}

// Transcribe attempts the transcription, retrying transient failures up
// to the policy's limit. The error from the final attempt is returned
// when all attempts fail.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, opts Options) (Result, error) {
	var lastErr error
	for attempt := 0; attempt <= t.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := t.policy.Delay(attempt)
			slog.Debug("retrying transcription",
				"provider", t.adapter.Name(),
				"attempt", attempt,
				"delay", delay)
			if err := t.sleep(ctx, delay); err != nil {
				return Result{}, lastErr
			}
		}

		result, err := t.adapter.Transcribe(ctx, audio, opts)
		if err == nil {
			return result, nil
		}
		if !KindOf(err).Retryable() {
			return Result{}, err
		}
		lastErr = err
	}

	slog.Warn("transcription retries exhausted",
		"provider", t.adapter.Name(),
		"retries", t.policy.MaxRetries)
	return Result{}, lastErr
}

// TestConnection probes the provider once, without retries.
func (t *Transcriber) TestConnection(ctx context.Context) error {
	return t.adapter.TestConnection(ctx)
}

// Name returns the wrapped provider's identifier.
func (t *Transcriber) Name() string {
	return t.adapter.Name()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
