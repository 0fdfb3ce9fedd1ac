package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/warden-iam/warden/internal/observability"
)

const cacheGenerationKey = "rbac:check:gen"

// DecisionCache memoises permission check decisions in Redis. Keys carry a
// generation counter; any relation mutation bumps the generation so stale
// decisions expire immediately instead of waiting out their TTL.
//
// The cache is strictly best effort: a Redis failure degrades to the direct
// lookup, never to a request failure.
type DecisionCache struct {
	client  *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
	metrics *observability.Metrics
	group   singleflight.Group
}

// NewDecisionCache constructs the cache. A nil client disables caching and
// every lookup falls through to the loader.
func NewDecisionCache(client *redis.Client, ttl time.Duration, logger *slog.Logger, metrics *observability.Metrics) *DecisionCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &DecisionCache{client: client, ttl: ttl, logger: logger, metrics: metrics}
}

// Allowed returns the cached decision for (userID, permission), computing and
// storing it via load on a miss. Concurrent misses for the same key collapse
// into a single load.
func (c *DecisionCache) Allowed(ctx context.Context, userID, permission string, load func(context.Context) (bool, error)) (bool, error) {
	if c == nil || c.client == nil {
		return load(ctx)
	}

	gen, err := c.generation(ctx)
	if err != nil {
		c.logger.Warn("decision cache generation lookup failed", slog.Any("error", err))
		return load(ctx)
	}

	key := decisionKey(gen, userID, permission)
	val, err := c.client.Get(ctx, key).Result()
	if err == nil {
		c.metrics.ObserveCheckCache(true)
		return val == "1", nil
	}
	if !errors.Is(err, redis.Nil) {
		c.logger.Warn("decision cache lookup failed", slog.Any("error", err))
		return load(ctx)
	}
	c.metrics.ObserveCheckCache(false)

	result, err, _ := c.group.Do(key, func() (any, error) {
		allowed, err := load(ctx)
		if err != nil {
			return false, err
		}
		if err := c.client.Set(ctx, key, boolValue(allowed), c.ttl).Err(); err != nil {
			c.logger.Warn("decision cache store failed", slog.Any("error", err))
		}
		return allowed, nil
	})
	if err != nil {
		return false, err
	}
	return result.(bool), nil
}

// Prime stores positive decisions for every permission the user holds, used
// by the warm job.
func (c *DecisionCache) Prime(ctx context.Context, userID string, permissions []string) error {
	if c == nil || c.client == nil {
		return nil
	}
	gen, err := c.generation(ctx)
	if err != nil {
		return err
	}
	pipe := c.client.Pipeline()
	for _, perm := range permissions {
		pipe.Set(ctx, decisionKey(gen, userID, perm), "1", c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("decision cache prime: %w", err)
	}
	return nil
}

// Invalidate bumps the generation, orphaning every cached decision.
func (c *DecisionCache) Invalidate(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Incr(ctx, cacheGenerationKey).Err(); err != nil {
		c.logger.Warn("decision cache invalidate failed", slog.Any("error", err))
	}
}

func (c *DecisionCache) generation(ctx context.Context) (string, error) {
	gen, err := c.client.Get(ctx, cacheGenerationKey).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	if err != nil {
		return "", err
	}
	return gen, nil
}

func decisionKey(gen, userID, permission string) string {
	return fmt.Sprintf("rbac:check:%s:%s:%s", gen, userID, permission)
}

func boolValue(allowed bool) string {
	if allowed {
		return "1"
	}
	return "0"
}
