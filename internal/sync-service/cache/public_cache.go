package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	sharedcache "github.com/radieske/fade-sync-platform/internal/shared/cache"
	"github.com/radieske/fade-sync-platform/pkg/contracts/events"
)

// Cache guarda a resposta de get-public-betting-data e lê o score publicado pelo stats-worker
type Cache struct {
	R   *redis.Client
	TTL time.Duration
}

func New(r *redis.Client, ttl time.Duration) *Cache { return &Cache{R: r, TTL: ttl} }

// GetPublic devolve (true, nil) quando encontrou e decodificou em dst
func (c *Cache) GetPublic(ctx context.Context, userID string, dst any) (bool, error) {
	return c.getJSON(ctx, sharedcache.PublicDataKey(userID), dst)
}

func (c *Cache) SetPublic(ctx context.Context, userID string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, sharedcache.PublicDataKey(userID), b, c.TTL).Err()
}

// Invalidate remove a resposta pública após um sync do próprio usuário
func (c *Cache) Invalidate(ctx context.Context, userID string) error {
	return c.R.Del(ctx, sharedcache.PublicDataKey(userID)).Err()
}

// GetConfidence lê o último score gravado pelo stats-worker
func (c *Cache) GetConfidence(ctx context.Context, userID string) (events.Confidence, bool, error) {
	var conf events.Confidence
	ok, err := c.getJSON(ctx, sharedcache.ConfidenceKey(userID), &conf)
	return conf, ok, err
}

func (c *Cache) getJSON(ctx context.Context, key string, dst any) (bool, error) {
	b, err := c.R.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(b, dst)
}
