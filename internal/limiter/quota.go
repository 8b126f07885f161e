package limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// QuotaResult is the outcome of a character quota check.
type QuotaResult struct {
	Allowed    bool
	SpentChars int64
	LimitChars int64
}

// QuotaTracker tracks translated characters per client per UTC day via
// Redis. With a nil client every check passes.
type QuotaTracker struct {
	rdb *redis.Client
}

func NewQuotaTracker(rdb *redis.Client) *QuotaTracker {
	return &QuotaTracker{rdb: rdb}
}

func dailyQuotaKey(clientID string) string {
	day := time.Now().UTC().Format("2006-01-02")
	return fmt.Sprintf("lingo:quota:daily:%s:%s", clientID, day)
}

// CheckDailyChars checks whether the client is under its daily character quota.
func (q *QuotaTracker) CheckDailyChars(ctx context.Context, clientID string, limitChars int64) (QuotaResult, error) {
	if q.rdb == nil {
		return QuotaResult{Allowed: true, LimitChars: limitChars}, nil
	}

	key := dailyQuotaKey(clientID)
	spent, err := q.rdb.Get(ctx, key).Int64()
	if err != nil && err != redis.Nil {
		// Fail open on Redis errors
		return QuotaResult{Allowed: true, LimitChars: limitChars}, nil
	}

	return QuotaResult{
		Allowed:    spent < limitChars,
		SpentChars: spent,
		LimitChars: limitChars,
	}, nil
}

// RecordChars adds translated characters to the client's daily counter.
func (q *QuotaTracker) RecordChars(ctx context.Context, clientID string, chars int64) error {
	if q.rdb == nil || chars <= 0 {
		return nil
	}

	key := dailyQuotaKey(clientID)
	pipe := q.rdb.Pipeline()
	pipe.IncrBy(ctx, key, chars)
	// Expire at end of day UTC + 1 hour buffer
	now := time.Now().UTC()
	endOfDay := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	ttl := endOfDay.Sub(now) + time.Hour
	pipe.Expire(ctx, key, ttl)
	_, err := pipe.Exec(ctx)
	return err
}
