package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	sharedcache "github.com/radieske/fade-sync-platform/internal/shared/cache"
	"github.com/radieske/fade-sync-platform/pkg/contracts/events"
)

// RedisCache grava o último score e o estado da assinatura por usuário
type RedisCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisCache(c *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{Client: c, TTL: ttl}
}

// SetConfidence grava o score e derruba a resposta pública em cache, numa única ida ao Redis
func (r *RedisCache) SetConfidence(ctx context.Context, userID string, c events.Confidence) error {
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	pipe := r.Client.TxPipeline()
	pipe.Set(ctx, sharedcache.ConfidenceKey(userID), b, r.TTL)
	pipe.Del(ctx, sharedcache.PublicDataKey(userID))
	_, err = pipe.Exec(ctx)
	return err
}

// SetSubscription guarda o status vindo do Stripe (sem TTL: muda só por evento)
func (r *RedisCache) SetSubscription(ctx context.Context, userID, status string) error {
	return r.Client.Set(ctx, sharedcache.SubscriptionKey(userID), status, 0).Err()
}
