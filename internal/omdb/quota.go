package omdb

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"movie-catalog-service/internal/metrics"
)

// RedisQuota is a fixed-window request budget shared by every replica
// through a Redis counter. When Redis fails the request is allowed.
type RedisQuota struct {
	rdb    *redis.Client
	max    int64
	window time.Duration
	now    func() time.Time
	log    *slog.Logger
}

// NewRedisQuota creates a quota of maxReqs per window.
func NewRedisQuota(rdb *redis.Client, maxReqs int, window time.Duration, log *slog.Logger) *RedisQuota {
	if log == nil {
		log = slog.Default()
	}
	return &RedisQuota{
		rdb:    rdb,
		max:    int64(maxReqs),
		window: window,
		now:    time.Now,
		log:    log,
	}
}

func (q *RedisQuota) key() string {
	bucket := q.now().UTC().Truncate(q.window).Unix()
	return fmt.Sprintf("omdb:quota:%d", bucket)
}

// quotaTimeout bounds the counter round trips; past it the request is allowed.
const quotaTimeout = 250 * time.Millisecond

// Take consumes one request from the current window.
func (q *RedisQuota) Take(ctx context.Context) error {
	key := q.key()
	ctx, cancel := context.WithTimeout(ctx, quotaTimeout)
	defer cancel()

	count, err := q.rdb.Incr(ctx, key).Result()
	if err != nil {
		q.log.WarnContext(ctx, "quota counter unavailable, allowing request", "error", err)
		return nil
	}

	// Set expiry on first request in the window
	if count == 1 {
		q.rdb.Expire(ctx, key, q.window)
	}

	metrics.ProviderQuotaRemaining.Set(float64(max(0, q.max-count)))

	if count > q.max {
		return fmt.Errorf("%w: provider quota of %d requests exhausted", ErrUnavailable, q.max)
	}
	return nil
}
