package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"service-finder/pkg/httpx"
	"service-finder/pkg/logger"
)

const (
	connectAttempts = 20
	rateLimitPrefix = "servicefinder:ratelimit:"
	revokedPrefix   = "servicefinder:revoked:"
)

// Client wraps the Redis connection. It backs the login rate limiter and the
// token revocation list when REDIS_ADDR is configured.
type Client struct {
	rdb *goredis.Client
}

// NewClient connects to Redis with retry.
func NewClient(ctx context.Context, addr, password string, db int) (*Client, error) {
	log := logger.Component("redis")
	rdb := goredis.NewClient(&goredis.Options{Addr: addr, Password: password, DB: db})
	var err error
	for i := 1; i <= connectAttempts; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err = rdb.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			log.Info().Str("addr", addr).Msg("connected to redis")
			return &Client{rdb: rdb}, nil
		}
		log.Warn().Err(err).Int("attempt", i).Msg("waiting for redis")
		select {
		case <-ctx.Done():
			_ = rdb.Close()
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	_ = rdb.Close()
	return nil, fmt.Errorf("redis: failed to connect after %d attempts: %w", connectAttempts, err)
}

// Allow implements httpx.RateLimiter with a fixed window counter per key.
func (c *Client) Allow(ctx context.Context, key string, limit int, window time.Duration) (httpx.Decision, error) {
	if limit <= 0 {
		return httpx.Decision{Allowed: true}, nil
	}
	if window <= 0 {
		window = time.Minute
	}
	redisKey := rateLimitPrefix + key
	pipe := c.rdb.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	ttlCmd := pipe.TTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return httpx.Decision{}, fmt.Errorf("redis incr: %w", err)
	}
	count, ttl := incr.Val(), ttlCmd.Val()
	if needsExpiry(ttl) {
		// A counter without a TTL would lock the key out forever.
		if err := c.rdb.Expire(ctx, redisKey, window).Err(); err != nil {
			return httpx.Decision{}, fmt.Errorf("redis expire: %w", err)
		}
		ttl = window
	}
	return httpx.Decision{
		Allowed:   int(count) <= limit,
		Count:     int(count),
		WindowEnd: time.Now().Add(ttl),
	}, nil
}

// needsExpiry reports whether a TTL reply means the key has no expiry. Redis
// answers -1 for a key without one.
func needsExpiry(ttl time.Duration) bool {
	return ttl < 0
}

// Revoke denylists a token id until it would have expired anyway.
func (c *Client) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.rdb.Set(ctx, revokedPrefix+tokenID, 1, ttl).Err()
}

// IsRevoked reports whether tokenID has been revoked.
func (c *Client) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := c.rdb.Exists(ctx, revokedPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close tears down the Redis connection.
func (c *Client) Close() error { return c.rdb.Close() }
