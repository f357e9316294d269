// internal/common/gbif/cache.go
package gbif

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"gbif-workers/internal/common/metrics"
)

const cacheKeyPrefix = "gbif:response:"

// CachedExecutor serves repeated GETs from Redis. Only successful bodies are
// stored, and a Redis failure falls through to the wrapped executor.
type CachedExecutor struct {
	next   Executor
	redis  redis.Cmdable
	ttl    time.Duration
	logger Logger
}

func NewCachedExecutor(next Executor, rdb redis.Cmdable, ttl time.Duration, log Logger) *CachedExecutor {
	return &CachedExecutor{
		next:   next,
		redis:  rdb,
		ttl:    ttl,
		logger: log.With(map[string]interface{}{"component": "gbif-cache"}),
	}
}

func CacheKey(url string) string {
	return cacheKeyPrefix + url
}

func (e *CachedExecutor) Get(ctx context.Context, url string) ([]byte, error) {
	key := CacheKey(url)

	cached, err := e.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		metrics.ResponseCacheRequests.WithLabelValues("hit").Inc()
		return cached, nil
	case errors.Is(err, redis.Nil):
		metrics.ResponseCacheRequests.WithLabelValues("miss").Inc()
	default:
		metrics.ResponseCacheRequests.WithLabelValues("error").Inc()
		e.logger.Warn("response cache read failed", map[string]interface{}{"error": err.Error()})
	}

	body, err := e.next.Get(ctx, url)
	if err != nil {
		return nil, err
	}

	if err := e.redis.Set(ctx, key, body, e.ttl).Err(); err != nil {
		e.logger.Warn("response cache write failed", map[string]interface{}{"error": err.Error()})
	}
	return body, nil
}
