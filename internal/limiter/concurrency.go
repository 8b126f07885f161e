// Package limiter bounds how much work the gateway accepts: in-flight
// translation concurrency with a bounded wait queue, per-client request
// rates, and daily character quotas.
package limiter

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cxchat/lingo-gateway/internal/telemetry"
	"github.com/cxchat/lingo-gateway/internal/types"
)

// Concurrency caps concurrent translation work. Requests beyond the cap
// wait in a bounded queue; a request finding the queue full is rejected
// immediately, and a queued request is rejected once its wait exceeds the
// queue timeout. Rejections never block.
type Concurrency struct {
	permits      chan struct{}
	queued       atomic.Int64
	maxQueue     int64
	queueTimeout time.Duration
	metrics      *telemetry.Metrics
}

func NewConcurrency(maxConcurrent, maxQueueDepth int, queueTimeout time.Duration, metrics *telemetry.Metrics) *Concurrency {
	if maxConcurrent <= 0 {
		maxConcurrent = 32
	}
	if maxQueueDepth < 0 {
		maxQueueDepth = 0
	}
	return &Concurrency{
		permits:      make(chan struct{}, maxConcurrent),
		maxQueue:     int64(maxQueueDepth),
		queueTimeout: queueTimeout,
		metrics:      metrics,
	}
}

// Acquire obtains a work permit, waiting in the queue if none is free.
// On success it returns an idempotent release function. On rejection or
// caller cancellation the error wraps types.ErrLimiterRejected or the
// context error respectively.
func (c *Concurrency) Acquire(ctx context.Context) (release func(), err error) {
	select {
	case c.permits <- struct{}{}:
		return c.releaseFunc(), nil
	default:
	}

	if c.queued.Add(1) > c.maxQueue {
		c.queued.Add(-1)
		c.reject("queue_full")
		return nil, fmt.Errorf("%w: queue full", types.ErrLimiterRejected)
	}
	defer c.queued.Add(-1)

	timer := time.NewTimer(c.queueTimeout)
	defer timer.Stop()

	select {
	case c.permits <- struct{}{}:
		return c.releaseFunc(), nil
	case <-timer.C:
		c.reject("queue_timeout")
		return nil, fmt.Errorf("%w: queued longer than %s", types.ErrLimiterRejected, c.queueTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// InFlight reports the number of permits currently held.
func (c *Concurrency) InFlight() int {
	return len(c.permits)
}

// Queued reports the number of requests waiting for a permit.
func (c *Concurrency) Queued() int64 {
	return c.queued.Load()
}

func (c *Concurrency) releaseFunc() func() {
	var once sync.Once
	return func() {
		once.Do(func() { <-c.permits })
	}
}

func (c *Concurrency) reject(reason string) {
	if c.metrics != nil {
		c.metrics.RecordLimiterReject(reason)
	}
}
