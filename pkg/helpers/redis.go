package helpers

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-identity-service/internal/domain/entity"
)

// NewRedisClient initializes a redis client
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func keyConfirmed(email string) string { return "user:confirmed:" + entity.NormalizeEmail(email) }

// ConfirmedEmailCache remembers addresses whose email is confirmed.
// Confirmation never reverts, so a cached "1" stays true for the key's lifetime.
type ConfirmedEmailCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewConfirmedEmailCache returns a cache; ttl 0 keeps keys forever.
func NewConfirmedEmailCache(rdb *redis.Client, ttl time.Duration) *ConfirmedEmailCache {
	return &ConfirmedEmailCache{rdb: rdb, ttl: ttl}
}

func (c *ConfirmedEmailCache) IsConfirmed(ctx context.Context, email string) (bool, error) {
	v, err := c.rdb.Get(ctx, keyConfirmed(email)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v == "1", nil
}

func (c *ConfirmedEmailCache) MarkConfirmed(ctx context.Context, email string) error {
	return c.rdb.Set(ctx, keyConfirmed(email), "1", c.ttl).Err()
}
