package auth

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDecodedPayloadCache stores resolved contexts in Redis so
// several service instances share one decoded-payload view. Every
// Redis or codec failure degrades to a miss; validation then simply
// re-runs the resolver.
type RedisDecodedPayloadCache struct {
	client redis.UniversalClient
	prefix string
	logger Logger
}

var _ DecodedPayloadCache = (*RedisDecodedPayloadCache)(nil)

func NewRedisDecodedPayloadCache(client redis.UniversalClient) *RedisDecodedPayloadCache {
	return &RedisDecodedPayloadCache{
		client: client,
		prefix: "auth:payload:",
		logger: defLogger{},
	}
}

func (c *RedisDecodedPayloadCache) WithLogger(logger Logger) *RedisDecodedPayloadCache {
	if logger != nil {
		c.logger = logger
	}
	return c
}

func (c *RedisDecodedPayloadCache) Get(ctx context.Context, key string) (*TokenPayload, bool) {
	blob, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("payload cache get degraded to miss", "key", key, "error", err)
		}
		return nil, false
	}

	payload := &TokenPayload{}
	if err := json.Unmarshal(blob, payload); err != nil {
		c.logger.Warn("payload cache entry corrupt, treating as miss", "key", key, "error", err)
		return nil, false
	}

	return payload, true
}

func (c *RedisDecodedPayloadCache) Save(ctx context.Context, key string, payload *TokenPayload, expiredAt time.Time) error {
	if payload == nil {
		return nil
	}

	ttl := time.Until(expiredAt)
	if ttl <= 0 {
		return nil
	}

	blob, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, c.prefix+key, blob, ttl).Err()
}
