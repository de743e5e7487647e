// Package replay records redeemed verification tokens so each one is
// accepted at most once inside its validity window.
package replay

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Guard claims a token for single use.
type Guard interface {
	// Claim returns true the first time tok is seen within ttl.
	Claim(ctx context.Context, tok string, ttl time.Duration) (bool, error)
}

const keyPrefix = "gridcaptcha:redeemed:"

// RedisGuard stores token hashes in Redis with SET NX and an expiry.
type RedisGuard struct {
	client redis.Cmdable
}

// NewRedisGuard wraps an existing client.
func NewRedisGuard(client redis.Cmdable) *RedisGuard {
	return &RedisGuard{client: client}
}

// Claim implements Guard.
func (g *RedisGuard) Claim(ctx context.Context, tok string, ttl time.Duration) (bool, error) {
	ok, err := g.client.SetNX(ctx, Key(tok), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim token: %w", err)
	}
	return ok, nil
}

// Key is the Redis key under which tok is recorded.
func Key(tok string) string {
	sum := sha256.Sum256([]byte(tok))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// Connect opens a Redis client and pings it.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: 100,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
