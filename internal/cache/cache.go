// Package cache memoizes translation results keyed by (normalized text,
// source lang, target lang). Identical concurrent misses coalesce into a
// single backend call; every cache failure degrades to a miss, never to a
// request failure.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/cxchat/lingo-gateway/internal/language"
	"github.com/cxchat/lingo-gateway/internal/telemetry"
	"github.com/cxchat/lingo-gateway/internal/types"
)

const redisKeyPrefix = "lingo:tr:"

// KeyFor builds the cache key: SHA-256 over whitespace-normalized text and
// the normalized language pair. One key maps to exactly one
// (text, source, target) triple.
func KeyFor(text, sourceLang, targetLang string) string {
	normalized := strings.Join(strings.Fields(text), " ")
	h := sha256.New()
	h.Write([]byte(normalized))
	h.Write([]byte{0})
	h.Write([]byte(language.Normalize(sourceLang)))
	h.Write([]byte{0})
	h.Write([]byte(language.Normalize(targetLang)))
	return hex.EncodeToString(h.Sum(nil))
}

// Cache is a two-tier translation cache: an in-process expirable LRU in
// front of Redis. Both tiers share one TTL; the LRU additionally bounds
// capacity. A nil Redis client leaves the in-process tier on its own.
type Cache struct {
	local   *expirable.LRU[string, types.TranslationResult]
	rdb     *redis.Client
	ttl     time.Duration
	group   singleflight.Group
	metrics *telemetry.Metrics
}

func New(capacity int, ttl time.Duration, rdb *redis.Client, metrics *telemetry.Metrics) *Cache {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Cache{
		local:   expirable.NewLRU[string, types.TranslationResult](capacity, nil, ttl),
		rdb:     rdb,
		ttl:     ttl,
		metrics: metrics,
	}
}

// Get returns the cached result for key, flagged as a cache hit.
func (c *Cache) Get(ctx context.Context, key string) (types.TranslationResult, bool) {
	if res, ok := c.local.Get(key); ok {
		c.record("hit")
		return res.WithCacheHit(), true
	}

	if c.rdb != nil {
		data, err := c.rdb.Get(ctx, redisKeyPrefix+key).Bytes()
		if err == nil {
			var res types.TranslationResult
			if err := json.Unmarshal(data, &res); err == nil {
				c.local.Add(key, res)
				c.record("hit")
				return res.WithCacheHit(), true
			}
		} else if err != redis.Nil {
			c.record("error")
		}
	}

	c.record("miss")
	return types.TranslationResult{}, false
}

// Put stores a fresh result under key in both tiers. Redis write failures
// are ignored; the entry still lives in the local tier.
func (c *Cache) Put(ctx context.Context, key string, res types.TranslationResult) {
	res.CacheHit = false
	c.local.Add(key, res)

	if c.rdb != nil {
		if data, err := json.Marshal(res); err == nil {
			c.rdb.Set(ctx, redisKeyPrefix+key, data, c.ttl)
		}
	}
	c.record("store")
}

// Fetch returns the cached result for key or fills it via fill, coalescing
// concurrent misses for the same key into one fill call. The fill runs on a
// context detached from the caller, so cancelling one waiter abandons only
// that waiter; the in-flight fill and its other waiters are unaffected.
// The returned bool reports whether the result came from cache.
func (c *Cache) Fetch(ctx context.Context, key string, fill func(context.Context) (*types.TranslationResult, error)) (*types.TranslationResult, bool, error) {
	if res, ok := c.Get(ctx, key); ok {
		return &res, true, nil
	}

	fillCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		res, err := fill(fillCtx)
		if err != nil {
			return nil, err
		}
		c.Put(fillCtx, key, *res)
		return res, nil
	})

	select {
	case out := <-ch:
		if out.Err != nil {
			return nil, false, out.Err
		}
		if out.Shared {
			c.record("coalesced")
		}
		res := *out.Val.(*types.TranslationResult)
		res.CacheHit = false
		return &res, false, nil
	case <-ctx.Done():
		// Abandon our wait; the flight keeps running for other waiters.
		return nil, false, ctx.Err()
	}
}

func (c *Cache) record(result string) {
	if c.metrics != nil {
		c.metrics.RecordCacheOp(result)
	}
}
