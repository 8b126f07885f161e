package limiter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cxchat/lingo-gateway/internal/types"
)

func TestConcurrency_AcquireRelease(t *testing.T) {
	c := NewConcurrency(2, 0, time.Second, nil)
	ctx := context.Background()

	rel1, err := c.Acquire(ctx)
	if err != nil {
		t.Fatal(err)
	}
	rel2, err := c.Acquire(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got := c.InFlight(); got != 2 {
		t.Fatalf("expected 2 in flight, got %d", got)
	}

	rel1()
	rel1() // idempotent
	if got := c.InFlight(); got != 1 {
		t.Fatalf("expected 1 in flight after release, got %d", got)
	}
	rel2()
}

func TestConcurrency_QueueFullRejectsImmediately(t *testing.T) {
	c := NewConcurrency(1, 1, time.Minute, nil)
	ctx := context.Background()

	rel, err := c.Acquire(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer rel()

	// Fill the single queue slot.
	queued := make(chan struct{})
	go func() {
		close(queued)
		rel2, err := c.Acquire(ctx)
		if err == nil {
			rel2()
		}
	}()
	<-queued
	time.Sleep(10 * time.Millisecond)

	start := time.Now()
	_, err = c.Acquire(ctx)
	if !errors.Is(err, types.ErrLimiterRejected) {
		t.Fatalf("expected limiter rejection, got %v", err)
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("queue-full rejection must not block")
	}
}

func TestConcurrency_QueueTimeout(t *testing.T) {
	c := NewConcurrency(1, 4, 20*time.Millisecond, nil)
	ctx := context.Background()

	rel, err := c.Acquire(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer rel()

	_, err = c.Acquire(ctx)
	if !errors.Is(err, types.ErrLimiterRejected) {
		t.Fatalf("expected queue timeout rejection, got %v", err)
	}
}

func TestConcurrency_QueuedRequestGetsPermitOnRelease(t *testing.T) {
	c := NewConcurrency(1, 4, time.Second, nil)
	ctx := context.Background()

	rel, err := c.Acquire(ctx)
	if err != nil {
		t.Fatal(err)
	}

	acquired := make(chan error, 1)
	go func() {
		rel2, err := c.Acquire(ctx)
		if err == nil {
			defer rel2()
		}
		acquired <- err
	}()

	time.Sleep(10 * time.Millisecond)
	rel()

	select {
	case err := <-acquired:
		if err != nil {
			t.Fatalf("queued acquire failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("queued request never got the released permit")
	}
}

func TestConcurrency_ContextCancelWhileQueued(t *testing.T) {
	c := NewConcurrency(1, 4, time.Minute, nil)

	rel, err := c.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer rel()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Acquire(ctx)
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
