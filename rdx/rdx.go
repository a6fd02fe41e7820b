package rdx

import (
	"context"
	"log"
	"time"

	"mandi/config"

	"github.com/redis/go-redis/v9"
)

var Conn *redis.Client

// Init opens the shared Redis connection used for pub/sub and caching.
func Init(cfg config.Config) {
	Conn = redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Conn.Ping(ctx).Err(); err != nil {
		log.Printf("Redis not reachable at %s: %v", cfg.RedisAddr, err)
	}
}

// CacheSet stores a value with a TTL; errors are logged, not returned,
// since cache misses are always tolerable.
func CacheSet(ctx context.Context, key, value string, ttl time.Duration) {
	if Conn == nil {
		return
	}
	if err := Conn.Set(ctx, key, value, ttl).Err(); err != nil {
		log.Printf("Redis SET %s failed: %v", key, err)
	}
}

// CacheGet returns the cached value and whether it was present.
func CacheGet(ctx context.Context, key string) (string, bool) {
	if Conn == nil {
		return "", false
	}
	val, err := Conn.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}
