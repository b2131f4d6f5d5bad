package service

import (
	"context"
	"encoding/json"
	"time"

	"maaztelecom/internal/dto"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// VerifyCache holds rendered public verification views. Misses and cache
// errors both fall through to the store.
type VerifyCache interface {
	Get(ctx context.Context, id string) (*dto.VerifyResponse, bool)
	Set(ctx context.Context, id string, v *dto.VerifyResponse)
	Invalidate(ctx context.Context, id string)
}

type redisVerifyCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisVerifyCache(rdb *redis.Client, ttl time.Duration) VerifyCache {
	return &redisVerifyCache{rdb: rdb, ttl: ttl}
}

func verifyKey(id string) string { return "verify:" + id }

func (c *redisVerifyCache) Get(ctx context.Context, id string) (*dto.VerifyResponse, bool) {
	cached, err := c.rdb.Get(ctx, verifyKey(id)).Bytes()
	if err != nil {
		return nil, false
	}
	var resp dto.VerifyResponse
	if err := json.Unmarshal(cached, &resp); err != nil {
		return nil, false
	}
	return &resp, true
}

// Set populates the cache; best effort, errors are only logged.
func (c *redisVerifyCache) Set(ctx context.Context, id string, v *dto.VerifyResponse) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, verifyKey(id), b, c.ttl).Err(); err != nil {
		log.Debug().Err(err).Str("sale_id", id).Msg("verify cache: set failed")
	}
}

func (c *redisVerifyCache) Invalidate(ctx context.Context, id string) {
	if err := c.rdb.Del(ctx, verifyKey(id)).Err(); err != nil {
		log.Warn().Err(err).Str("sale_id", id).Msg("verify cache: invalidate failed")
	}
}
