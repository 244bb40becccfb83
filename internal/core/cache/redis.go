package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache 目前只承担 token 黑名单（登出后 jti 失效直到原本的过期时间）
type Cache struct {
	RDB    *redis.Client
	Prefix string
}

func New(addr, pass string, db int, prefix string) *Cache {
	return &Cache{
		RDB:    redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}),
		Prefix: prefix,
	}
}

func (c *Cache) key(id string) string { return c.Prefix + "revoked:" + id }

func (c *Cache) Ping(ctx context.Context) error { return c.RDB.Ping(ctx).Err() }

func (c *Cache) Close() error { return c.RDB.Close() }

// Revoke ttl<=0 说明 token 已过期，无需记录
func (c *Cache) Revoke(ctx context.Context, id string, ttl time.Duration) error {
	if id == "" || ttl <= 0 {
		return nil
	}
	return c.RDB.Set(ctx, c.key(id), 1, ttl).Err()
}

func (c *Cache) IsRevoked(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	n, err := c.RDB.Exists(ctx, c.key(id)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
