// Package coordinator drives a message through the full translation
// pipeline: validation, admission guards, source language resolution,
// cache lookup with coalesced fill, concurrency-limited backend dispatch,
// and post-completion bookkeeping.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cxchat/lingo-gateway/internal/cache"
	"github.com/cxchat/lingo-gateway/internal/config"
	"github.com/cxchat/lingo-gateway/internal/convo"
	"github.com/cxchat/lingo-gateway/internal/detector"
	"github.com/cxchat/lingo-gateway/internal/guard"
	"github.com/cxchat/lingo-gateway/internal/language"
	"github.com/cxchat/lingo-gateway/internal/limiter"
	"github.com/cxchat/lingo-gateway/internal/router"
	"github.com/cxchat/lingo-gateway/internal/store"
	"github.com/cxchat/lingo-gateway/internal/telemetry"
	"github.com/cxchat/lingo-gateway/internal/types"
)

// History persists completed translations and replays them to warm
// conversation context after a restart. *store.Store satisfies it.
type History interface {
	RecordTranslation(msg types.Message, res types.TranslationResult)
	RecentByConversation(ctx context.Context, conversationID string, limit int) ([]store.Record, error)
}

// Coordinator owns the translation pipeline. All collaborators except the
// router may be nil, which disables the corresponding stage.
type Coordinator struct {
	cfg      func() *config.Config
	detector *detector.Detector
	router   *router.Router
	cache    *cache.Cache
	permits  *limiter.Concurrency
	quota    *limiter.QuotaTracker
	guards   *guard.Chain
	convos   *convo.Table
	store    History
	metrics  *telemetry.Metrics
}

type Deps struct {
	Config   func() *config.Config
	Detector *detector.Detector
	Router   *router.Router
	Cache    *cache.Cache
	Permits  *limiter.Concurrency
	Quota    *limiter.QuotaTracker
	Guards   *guard.Chain
	Convos   *convo.Table
	Store    History
	Metrics  *telemetry.Metrics
}

func New(deps Deps) *Coordinator {
	return &Coordinator{
		cfg:      deps.Config,
		detector: deps.Detector,
		router:   deps.Router,
		cache:    deps.Cache,
		permits:  deps.Permits,
		quota:    deps.Quota,
		guards:   deps.Guards,
		convos:   deps.Convos,
		store:    deps.Store,
		metrics:  deps.Metrics,
	}
}

// Translate runs one message through the pipeline and returns its
// translation. Errors always wrap one of the pipeline sentinels.
func (c *Coordinator) Translate(ctx context.Context, msg types.Message) (*types.TranslationResult, error) {
	start := time.Now()
	life := newLifecycle(msg.ID)
	cfg := c.cfg()

	res, err := c.run(ctx, life, cfg, &msg)
	if err != nil {
		life.to(StateFailed)
		c.observe(msg, nil, types.Kind(err), time.Since(start))
		return nil, err
	}

	life.to(StateCompleted)
	c.observe(msg, res, "ok", time.Since(start))
	c.finish(msg, *res)
	return res, nil
}

func (c *Coordinator) run(ctx context.Context, life *lifecycle, cfg *config.Config, msg *types.Message) (*types.TranslationResult, error) {
	if strings.TrimSpace(msg.Text) == "" {
		return nil, fmt.Errorf("%w: text is empty", types.ErrInvalidInput)
	}

	if msg.TargetLang == "" {
		msg.TargetLang = cfg.Translation.DefaultTargetLang
	}
	msg.TargetLang = language.Normalize(msg.TargetLang)

	if c.guards != nil {
		if err := c.admit(ctx, msg); err != nil {
			return nil, err
		}
	}

	sourceLang, confidence := c.resolveSourceLang(ctx, cfg, msg)
	life.to(StateLanguageResolved)

	if sourceLang == msg.TargetLang {
		// Nothing to translate.
		return &types.TranslationResult{
			TranslatedText:     msg.Text,
			ResolvedSourceLang: sourceLang,
			TargetLang:         msg.TargetLang,
			Confidence:         confidence,
			Backend:            "passthrough",
		}, nil
	}

	if err := c.checkQuota(ctx, cfg, msg); err != nil {
		return nil, err
	}

	req := types.TranslationRequest{
		Text:       msg.Text,
		SourceLang: sourceLang,
		TargetLang: msg.TargetLang,
	}

	if c.cache == nil || !cfg.Cache.Enabled {
		life.to(StateBackendDispatched)
		res, err := c.dispatch(ctx, req)
		if err != nil {
			return nil, err
		}
		if res.Confidence == 0 {
			res.Confidence = confidence
		}
		return res, nil
	}

	key := cache.KeyFor(req.Text, req.SourceLang, req.TargetLang)
	life.to(StateCacheChecked)

	dispatched := false
	res, hit, err := c.cache.Fetch(ctx, key, func(fillCtx context.Context) (*types.TranslationResult, error) {
		dispatched = true
		return c.dispatch(fillCtx, req)
	})
	if err != nil {
		return nil, err
	}
	if hit {
		life.to(StateCacheHit)
	} else if dispatched {
		life.to(StateBackendDispatched)
	}
	if res.Confidence == 0 {
		res.Confidence = confidence
	}
	return res, nil
}

// admit runs the guard chain and maps a block to a pipeline error.
func (c *Coordinator) admit(ctx context.Context, msg *types.Message) error {
	results, blocked := c.guards.Run(ctx, msg)
	if c.metrics != nil {
		for _, r := range results {
			c.metrics.RecordGuardAction(r.GuardName, string(r.Action))
		}
	}
	if blocked == nil {
		return nil
	}

	switch blocked.GuardName {
	case "pairs":
		if msg.TargetLang == "" {
			return fmt.Errorf("%w: %s", types.ErrInvalidInput, blocked.Message)
		}
		return fmt.Errorf("%w: %s", types.ErrUnsupportedLanguagePair, blocked.Message)
	default:
		return fmt.Errorf("%w: %s", types.ErrPolicyBlocked, blocked.Message)
	}
}

// resolveSourceLang picks the source language and a confidence for the
// choice: the client's declaration if it is in the allowed set, otherwise
// detection, then the conversation's dominant language, then the
// configured default.
func (c *Coordinator) resolveSourceLang(ctx context.Context, cfg *config.Config, msg *types.Message) (string, float64) {
	declared := language.Normalize(msg.SourceLang)
	if declared != "" && c.allowed(cfg, declared) {
		return declared, 1
	}

	var detected detector.Result
	if c.detector != nil {
		detected = c.detector.Detect(msg.Text)
		if c.metrics != nil {
			c.metrics.RecordDetection(detected.Confidence)
		}
		if detected.Confidence >= cfg.Detector.ConfidenceThreshold && c.allowed(cfg, detected.Lang) {
			return detected.Lang, detected.Confidence
		}
	}

	if c.convos != nil && msg.ConversationID != "" {
		c.warmConversation(ctx, cfg, msg.ConversationID)
		if dominant := c.convos.DominantLanguage(msg.ConversationID); dominant != "" {
			slog.Debug("source language from conversation context",
				"message_id", msg.ID,
				"conversation_id", msg.ConversationID,
				"lang", dominant,
			)
			return dominant, detected.Confidence
		}
	}

	return cfg.Translation.DefaultSourceLang, detected.Confidence
}

// warmConversation seeds the in-memory context of a conversation the
// table has not seen yet from persisted history, so the dominant-language
// fallback survives a restart. A conversation that comes back empty is
// still marked known to avoid re-querying it on every message.
func (c *Coordinator) warmConversation(ctx context.Context, cfg *config.Config, conversationID string) {
	if c.store == nil || c.convos.Known(conversationID) {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	records, err := c.store.RecentByConversation(ctx, conversationID, cfg.Context.Depth)
	if err != nil {
		slog.Warn("failed to warm conversation context",
			"conversation_id", conversationID, "error", err)
		return
	}

	// RecentByConversation returns newest first; the table wants oldest first.
	entries := make([]convo.Entry, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		entries = append(entries, convo.Entry{
			Text:        r.SourceText,
			SourceLang:  r.SourceLang,
			TargetLang:  r.TargetLang,
			CompletedAt: r.CreatedAt,
		})
	}
	c.convos.Seed(conversationID, entries)
}

func (c *Coordinator) allowed(cfg *config.Config, code string) bool {
	for _, l := range cfg.Translation.Languages {
		if language.Normalize(l) == code {
			return true
		}
	}
	return false
}

func (c *Coordinator) checkQuota(ctx context.Context, cfg *config.Config, msg *types.Message) error {
	if c.quota == nil || cfg.Limiter.DailyCharQuota <= 0 || msg.ClientID == "" {
		return nil
	}
	result, err := c.quota.CheckDailyChars(ctx, msg.ClientID, cfg.Limiter.DailyCharQuota)
	if err != nil || result.Allowed {
		return nil
	}
	return fmt.Errorf("%w: daily character quota exhausted (%d of %d)",
		types.ErrLimiterRejected, result.SpentChars, result.LimitChars)
}

// dispatch performs the backend call behind the concurrency limiter.
func (c *Coordinator) dispatch(ctx context.Context, req types.TranslationRequest) (*types.TranslationResult, error) {
	if c.permits != nil {
		release, err := c.permits.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		defer release()
	}
	return c.router.Translate(ctx, req)
}

// finish runs post-completion bookkeeping. None of it can fail the request.
func (c *Coordinator) finish(msg types.Message, res types.TranslationResult) {
	if c.convos != nil {
		c.convos.Append(msg.ConversationID, convo.Entry{
			Text:        msg.Text,
			SourceLang:  res.ResolvedSourceLang,
			TargetLang:  res.TargetLang,
			CompletedAt: time.Now(),
		})
	}
	if c.store != nil {
		c.store.RecordTranslation(msg, res)
	}
	if c.quota != nil && msg.ClientID != "" && !res.CacheHit {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := c.quota.RecordChars(ctx, msg.ClientID, int64(len(msg.Text))); err != nil {
			slog.Warn("failed to record quota usage", "client_id", msg.ClientID, "error", err)
		}
	}
}

func (c *Coordinator) observe(msg types.Message, res *types.TranslationResult, status string, elapsed time.Duration) {
	if c.metrics == nil {
		return
	}
	backendName := ""
	cacheHit := false
	sourceLang := msg.SourceLang
	if res != nil {
		backendName = res.Backend
		cacheHit = res.CacheHit
		sourceLang = res.ResolvedSourceLang
	}
	c.metrics.RecordRequest(status, backendName, sourceLang, msg.TargetLang,
		float64(elapsed.Milliseconds()), cacheHit)
}
