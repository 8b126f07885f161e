package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cxchat/lingo-gateway/internal/backend"
	"github.com/cxchat/lingo-gateway/internal/cache"
	"github.com/cxchat/lingo-gateway/internal/config"
	"github.com/cxchat/lingo-gateway/internal/convo"
	"github.com/cxchat/lingo-gateway/internal/detector"
	"github.com/cxchat/lingo-gateway/internal/guard"
	"github.com/cxchat/lingo-gateway/internal/limiter"
	"github.com/cxchat/lingo-gateway/internal/router"
	"github.com/cxchat/lingo-gateway/internal/store"
	"github.com/cxchat/lingo-gateway/internal/types"
)

type fakeBackend struct {
	name      string
	calls     atomic.Int64
	err       error
	delay     time.Duration
	translate func(req types.TranslationRequest) string
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Supports(sourceLang, targetLang string) bool {
	return sourceLang != targetLang
}

func (f *fakeBackend) Translate(ctx context.Context, req types.TranslationRequest) (*types.TranslationResult, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	text := "translated:" + req.Text
	if f.translate != nil {
		text = f.translate(req)
	}
	return &types.TranslationResult{
		TranslatedText:     text,
		ResolvedSourceLang: req.SourceLang,
		TargetLang:         req.TargetLang,
		Confidence:         1,
		Backend:            f.name,
	}, nil
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Translation.Languages = []string{"en", "es", "ru", "de"}
	cfg.Translation.DefaultSourceLang = "en"
	cfg.Translation.AttemptTimeout = time.Second
	cfg.Translation.MaxRetries = 0
	cfg.Translation.RetryBackoff = time.Millisecond
	cfg.Cache.Capacity = 64
	cfg.Cache.TTL = time.Minute
	return cfg
}

type pipeline struct {
	coord    *Coordinator
	backends []*fakeBackend
}

func newPipeline(t *testing.T, cfg *config.Config, backends ...*fakeBackend) *pipeline {
	t.Helper()

	registry := backend.NewRegistry()
	for _, b := range backends {
		registry.Register(b.name, b)
	}
	breakers := router.NewBreakerSet(cfg.Translation.CircuitBreaker.FailureThreshold,
		cfg.Translation.CircuitBreaker.RecoveryProbeInterval)
	rt := router.New(registry, breakers, router.Options{
		AttemptTimeout: cfg.Translation.AttemptTimeout,
		MaxRetries:     cfg.Translation.MaxRetries,
		RetryBackoff:   cfg.Translation.RetryBackoff,
	}, nil)

	var c *cache.Cache
	if cfg.Cache.Enabled {
		c = cache.New(cfg.Cache.Capacity, cfg.Cache.TTL, nil, nil)
	}

	coord := New(Deps{
		Config:   func() *config.Config { return cfg },
		Detector: detector.New(cfg.Translation.Languages, cfg.Detector.MinTextLength),
		Router:   rt,
		Cache:    c,
		Permits: limiter.NewConcurrency(cfg.Limiter.MaxConcurrent,
			cfg.Limiter.MaxQueueDepth, cfg.Limiter.QueueTimeout, nil),
		Guards: guard.NewChain(guard.NewPairGuard(func() []string {
			return cfg.Translation.Languages
		})),
		Convos: convo.NewTable(cfg.Context.Depth, cfg.Context.Conversations, cfg.Context.TTL),
	})
	return &pipeline{coord: coord, backends: backends}
}

func TestTranslate_MissThenHit(t *testing.T) {
	b := &fakeBackend{name: "universal", translate: func(req types.TranslationRequest) string {
		return "Hello"
	}}
	p := newPipeline(t, testConfig(), b)

	msg := types.Message{ID: "m1", Text: "Hola", SourceLang: "es", TargetLang: "en"}

	res, err := p.coord.Translate(context.Background(), msg)
	if err != nil {
		t.Fatal(err)
	}
	if res.TranslatedText != "Hello" {
		t.Fatalf("unexpected translation %q", res.TranslatedText)
	}
	if res.CacheHit {
		t.Fatal("first request must not be a cache hit")
	}

	msg.ID = "m2"
	res, err = p.coord.Translate(context.Background(), msg)
	if err != nil {
		t.Fatal(err)
	}
	if !res.CacheHit {
		t.Fatal("second identical request must be a cache hit")
	}
	if got := b.calls.Load(); got != 1 {
		t.Fatalf("expected 1 backend call, got %d", got)
	}
}

func TestTranslate_CoalescesIdenticalConcurrentRequests(t *testing.T) {
	b := &fakeBackend{name: "universal", delay: 50 * time.Millisecond}
	p := newPipeline(t, testConfig(), b)

	const n = 6
	var wg sync.WaitGroup
	results := make([]*types.TranslationResult, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			msg := types.Message{
				ID:         fmt.Sprintf("m%d", i),
				Text:       "Hola mundo",
				SourceLang: "es",
				TargetLang: "en",
			}
			results[i], errs[i] = p.coord.Translate(context.Background(), msg)
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("request %d: %v", i, errs[i])
		}
		if results[i].TranslatedText != results[0].TranslatedText {
			t.Fatalf("request %d: diverging result", i)
		}
	}
	if got := b.calls.Load(); got != 1 {
		t.Fatalf("expected 1 coalesced backend call, got %d", got)
	}
}

func TestTranslate_FailoverToSecondBackend(t *testing.T) {
	primary := &fakeBackend{name: "primary", err: fmt.Errorf("%w: boom", types.ErrBackendUnavailable)}
	secondary := &fakeBackend{name: "secondary"}
	p := newPipeline(t, testConfig(), primary, secondary)

	msg := types.Message{ID: "m1", Text: "Hola", SourceLang: "es", TargetLang: "en"}
	res, err := p.coord.Translate(context.Background(), msg)
	if err != nil {
		t.Fatal(err)
	}
	if res.Backend != "secondary" {
		t.Fatalf("expected failover to secondary, got %q", res.Backend)
	}
	if primary.calls.Load() == 0 {
		t.Fatal("primary must be attempted first")
	}
}

func TestTranslate_BackpressureRejectsFast(t *testing.T) {
	cfg := testConfig()
	cfg.Limiter.MaxConcurrent = 1
	cfg.Limiter.MaxQueueDepth = 0
	b := &fakeBackend{name: "universal", delay: 200 * time.Millisecond}
	p := newPipeline(t, cfg, b)

	started := make(chan struct{})
	go func() {
		close(started)
		p.coord.Translate(context.Background(),
			types.Message{ID: "slow", Text: "uno", SourceLang: "es", TargetLang: "en"})
	}()
	<-started
	time.Sleep(20 * time.Millisecond)

	start := time.Now()
	_, err := p.coord.Translate(context.Background(),
		types.Message{ID: "fast", Text: "dos", SourceLang: "es", TargetLang: "en"})
	if !errors.Is(err, types.ErrLimiterRejected) {
		t.Fatalf("expected limiter rejection, got %v", err)
	}
	if types.Kind(err) != types.KindLimiterRejected {
		t.Fatalf("expected limiter_rejected kind, got %s", types.Kind(err))
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("rejection must be fast, not queued behind the slow request")
	}
}

func TestTranslate_EmptyTextRejected(t *testing.T) {
	p := newPipeline(t, testConfig(), &fakeBackend{name: "universal"})

	_, err := p.coord.Translate(context.Background(),
		types.Message{ID: "m1", Text: "   ", TargetLang: "en"})
	if !errors.Is(err, types.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestTranslate_UnsupportedTargetRejected(t *testing.T) {
	p := newPipeline(t, testConfig(), &fakeBackend{name: "universal"})

	_, err := p.coord.Translate(context.Background(),
		types.Message{ID: "m1", Text: "Hola", SourceLang: "es", TargetLang: "xx"})
	if !errors.Is(err, types.ErrUnsupportedLanguagePair) {
		t.Fatalf("expected unsupported pair, got %v", err)
	}
}

func TestTranslate_MissingTargetRejectedWithoutDefault(t *testing.T) {
	cfg := testConfig()
	cfg.Translation.DefaultTargetLang = ""
	p := newPipeline(t, cfg, &fakeBackend{name: "universal"})

	_, err := p.coord.Translate(context.Background(),
		types.Message{ID: "m1", Text: "Hola", SourceLang: "es"})
	if !errors.Is(err, types.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestTranslate_DefaultTargetApplied(t *testing.T) {
	cfg := testConfig()
	cfg.Translation.DefaultTargetLang = "en"
	b := &fakeBackend{name: "universal"}
	p := newPipeline(t, cfg, b)

	res, err := p.coord.Translate(context.Background(),
		types.Message{ID: "m1", Text: "Hola", SourceLang: "es"})
	if err != nil {
		t.Fatal(err)
	}
	if res.TargetLang != "en" {
		t.Fatalf("expected default target en, got %q", res.TargetLang)
	}
}

func TestTranslate_PassthroughWhenSourceEqualsTarget(t *testing.T) {
	b := &fakeBackend{name: "universal"}
	p := newPipeline(t, testConfig(), b)

	res, err := p.coord.Translate(context.Background(),
		types.Message{ID: "m1", Text: "Hello there", SourceLang: "en", TargetLang: "en"})
	if err != nil {
		t.Fatal(err)
	}
	if res.TranslatedText != "Hello there" {
		t.Fatalf("expected passthrough text, got %q", res.TranslatedText)
	}
	if got := b.calls.Load(); got != 0 {
		t.Fatalf("passthrough must not call the backend, got %d calls", got)
	}
}

func TestTranslate_ConversationDominantLanguageFallback(t *testing.T) {
	cfg := testConfig()
	cfg.Detector.ConfidenceThreshold = 1.1 // force detection to be inconclusive
	b := &fakeBackend{name: "universal"}
	p := newPipeline(t, cfg, b)

	// Seed the conversation with Russian messages.
	for i := 0; i < 3; i++ {
		_, err := p.coord.Translate(context.Background(), types.Message{
			ID:             fmt.Sprintf("seed-%d", i),
			ConversationID: "conv-1",
			Text:           fmt.Sprintf("привет %d", i),
			SourceLang:     "ru",
			TargetLang:     "en",
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	// No declared source; dominant conversation language should win over
	// the configured default.
	res, err := p.coord.Translate(context.Background(), types.Message{
		ID:             "m1",
		ConversationID: "conv-1",
		Text:           "как дела",
		TargetLang:     "en",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.ResolvedSourceLang != "ru" {
		t.Fatalf("expected dominant language ru, got %q", res.ResolvedSourceLang)
	}
}

func TestTranslate_DeclaredSourceOutsideSetRejected(t *testing.T) {
	b := &fakeBackend{name: "universal"}
	p := newPipeline(t, testConfig(), b)

	// "ja" is not in the configured language set; the request must fail
	// instead of being silently re-detected.
	_, err := p.coord.Translate(context.Background(),
		types.Message{ID: "m1", Text: "Hola, ¿cómo estás?", SourceLang: "ja", TargetLang: "en"})
	if !errors.Is(err, types.ErrUnsupportedLanguagePair) {
		t.Fatalf("expected unsupported pair, got %v", err)
	}
	if got := b.calls.Load(); got != 0 {
		t.Fatalf("rejected request must not reach a backend, got %d calls", got)
	}
}

type fakeHistory struct {
	records map[string][]store.Record
	queries atomic.Int64
}

func (f *fakeHistory) RecordTranslation(msg types.Message, res types.TranslationResult) {}

func (f *fakeHistory) RecentByConversation(ctx context.Context, conversationID string, limit int) ([]store.Record, error) {
	f.queries.Add(1)
	return f.records[conversationID], nil
}

func TestTranslate_DominantLanguageWarmedFromStore(t *testing.T) {
	cfg := testConfig()
	cfg.Detector.ConfidenceThreshold = 1.1 // force detection to be inconclusive
	b := &fakeBackend{name: "universal"}
	p := newPipeline(t, cfg, b)

	now := time.Now()
	p.coord.store = &fakeHistory{records: map[string][]store.Record{
		// Newest first, as the database query returns them.
		"conv-1": {
			{ConversationID: "conv-1", SourceLang: "ru", TargetLang: "en", SourceText: "как дела", CreatedAt: now},
			{ConversationID: "conv-1", SourceLang: "ru", TargetLang: "en", SourceText: "привет", CreatedAt: now.Add(-time.Minute)},
		},
	}}

	// First message of a conversation the in-memory table has never seen.
	res, err := p.coord.Translate(context.Background(), types.Message{
		ID:             "m1",
		ConversationID: "conv-1",
		Text:           "спасибо",
		TargetLang:     "en",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.ResolvedSourceLang != "ru" {
		t.Fatalf("expected ru from persisted history, got %q", res.ResolvedSourceLang)
	}

	// Once warmed, the conversation is served from memory.
	if _, err := p.coord.Translate(context.Background(), types.Message{
		ID:             "m2",
		ConversationID: "conv-1",
		Text:           "пока",
		TargetLang:     "en",
	}); err != nil {
		t.Fatal(err)
	}
	h := p.coord.store.(*fakeHistory)
	if got := h.queries.Load(); got != 1 {
		t.Fatalf("expected a single history query, got %d", got)
	}
}

func TestTranslate_AllBackendsDownReturnsUnavailable(t *testing.T) {
	b := &fakeBackend{name: "universal", err: fmt.Errorf("%w: down", types.ErrBackendUnavailable)}
	p := newPipeline(t, testConfig(), b)

	_, err := p.coord.Translate(context.Background(),
		types.Message{ID: "m1", Text: "Hola", SourceLang: "es", TargetLang: "en"})
	if !errors.Is(err, types.ErrTranslationUnavailable) {
		t.Fatalf("expected translation unavailable, got %v", err)
	}

	// The failure must not be cached: a recovered backend serves the next
	// request.
	b.err = nil
	res, err := p.coord.Translate(context.Background(),
		types.Message{ID: "m2", Text: "Hola", SourceLang: "es", TargetLang: "en"})
	if err != nil {
		t.Fatal(err)
	}
	if res.CacheHit {
		t.Fatal("failed fill must not populate the cache")
	}
}
