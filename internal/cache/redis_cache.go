package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"kadaipos/engine/internal/domain"
)

const productTTL = 10 * time.Minute

// RedisProductCache stores product snapshots keyed by barcode. Stale
// entries are bounded by the TTL and by explicit invalidation on every
// product write.
type RedisProductCache struct {
	client *redis.Client
}

// NewRedisProductCache pings the server once so a bad address is caught at
// startup rather than on the first sale.
func NewRedisProductCache(ctx context.Context, addr, password string, db int) (*RedisProductCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &RedisProductCache{client: client}, nil
}

func (c *RedisProductCache) Close() error {
	return c.client.Close()
}

func productKey(barcode string) string {
	return "product:barcode:" + barcode
}

func (c *RedisProductCache) Get(ctx context.Context, barcode string) (*domain.Product, bool) {
	raw, err := c.client.Get(ctx, productKey(barcode)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		log.Printf("[cache] WARN: redis get failed: %v", err)
		return nil, false
	}
	var p domain.Product
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Printf("[cache] WARN: dropping undecodable entry for %s: %v", barcode, err)
		c.client.Del(ctx, productKey(barcode))
		return nil, false
	}
	return &p, true
}

func (c *RedisProductCache) Set(ctx context.Context, barcode string, product domain.Product) {
	raw, err := json.Marshal(product)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, productKey(barcode), raw, productTTL).Err(); err != nil {
		log.Printf("[cache] WARN: redis set failed: %v", err)
	}
}

func (c *RedisProductCache) Invalidate(ctx context.Context, barcode string) {
	if barcode == "" {
		return
	}
	if err := c.client.Del(ctx, productKey(barcode)).Err(); err != nil {
		log.Printf("[cache] WARN: redis del failed: %v", err)
	}
}
