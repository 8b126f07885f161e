// Package router walks translation backends in priority order with per-
// backend retry, backoff and circuit breaking. The recovery sequence is an
// explicit ordered walk rather than nested error handlers so each step can
// be observed and tested on its own.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cxchat/lingo-gateway/internal/backend"
	"github.com/cxchat/lingo-gateway/internal/telemetry"
	"github.com/cxchat/lingo-gateway/internal/types"
)

// Options configure one Router.
type Options struct {
	// AttemptTimeout bounds every single backend call.
	AttemptTimeout time.Duration
	// MaxRetries is the number of extra attempts per backend after the
	// first one fails with a retryable error.
	MaxRetries int
	// RetryBackoff is the initial backoff, doubled per retry.
	RetryBackoff time.Duration
}

// Router dispatches one translation request across the registry.
type Router struct {
	registry *backend.Registry
	breakers *BreakerSet
	opts     Options
	metrics  *telemetry.Metrics
}

func New(registry *backend.Registry, breakers *BreakerSet, opts Options, metrics *telemetry.Metrics) *Router {
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = 15 * time.Second
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 100 * time.Millisecond
	}
	return &Router{registry: registry, breakers: breakers, opts: opts, metrics: metrics}
}

// Translate walks backends in priority order. Per backend: unsupported pairs
// skip ahead without retrying, unavailability retries with exponential
// backoff up to MaxRetries before recording a breaker failure and failing
// over. When every backend is exhausted the request fails with
// ErrTranslationUnavailable.
func (r *Router) Translate(ctx context.Context, req types.TranslationRequest) (*types.TranslationResult, error) {
	candidates := r.registry.Ordered()
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no backends configured: %w", types.ErrTranslationUnavailable)
	}

	var lastErr error
	tried := 0
	for _, b := range candidates {
		if !b.Supports(req.SourceLang, req.TargetLang) {
			continue
		}
		cb := r.breakers.Get(b.Name())
		if !cb.Allow() {
			slog.Debug("skipping backend, circuit open", "backend", b.Name())
			continue
		}
		tried++

		res, err := r.attempt(ctx, b, req)
		if err == nil {
			cb.RecordSuccess()
			return res, nil
		}
		lastErr = err

		if errors.Is(err, types.ErrUnsupportedLanguagePair) {
			// Capability mismatch, not a health signal
			if r.metrics != nil {
				r.metrics.RecordFailover(b.Name(), "unsupported_pair")
			}
			continue
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("translate cancelled: %w", ctx.Err())
		}

		cb.RecordFailure()
		if r.metrics != nil {
			r.metrics.RecordFailover(b.Name(), "unavailable")
		}
		slog.Warn("backend failed, trying next",
			"backend", b.Name(),
			"source_lang", req.SourceLang,
			"target_lang", req.TargetLang,
			"error", err,
		)
	}

	if tried == 0 && lastErr == nil {
		return nil, fmt.Errorf("no backend supports %s->%s: %w", req.SourceLang, req.TargetLang, types.ErrUnsupportedLanguagePair)
	}
	return nil, fmt.Errorf("all backends exhausted: %w (last: %v)", types.ErrTranslationUnavailable, lastErr)
}

// attempt calls one backend with per-attempt timeout and retry/backoff.
// A timeout counts as BackendUnavailable for retry purposes.
func (r *Router) attempt(ctx context.Context, b backend.Backend, req types.TranslationRequest) (*types.TranslationResult, error) {
	backoff := r.opts.RetryBackoff
	var lastErr error

	for attempt := 0; attempt <= r.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if r.metrics != nil {
				r.metrics.RecordRetry(b.Name())
			}
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
		}

		attemptCtx, cancel := context.WithTimeout(ctx, r.opts.AttemptTimeout)
		start := time.Now()
		res, err := b.Translate(attemptCtx, req)
		cancel()
		if r.metrics != nil {
			r.metrics.RecordBackendDuration(b.Name(), float64(time.Since(start).Milliseconds()))
		}
		if err == nil {
			return res, nil
		}
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%s: attempt timeout: %w", b.Name(), types.ErrBackendUnavailable)
		}
		lastErr = err

		if errors.Is(err, types.ErrUnsupportedLanguagePair) || ctx.Err() != nil {
			return nil, err
		}
	}
	return nil, lastErr
}
