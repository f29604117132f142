package token

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Blacklist records revoked token IDs. Entries only need to outlive the
// token they revoke, so implementations may expire them once the ttl given
// to Add has passed.
type Blacklist interface {
	Add(ctx context.Context, jti string, ttl time.Duration) error
	Contains(ctx context.Context, jti string) (bool, error)
}

// MemoryBlacklist is the in-process Blacklist implementation. Expired
// entries are pruned opportunistically on writes.
type MemoryBlacklist struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryBlacklist creates a blacklist. The now func is injectable for
// tests; pass nil for the wall clock.
func NewMemoryBlacklist(now func() time.Time) *MemoryBlacklist {
	if now == nil {
		now = time.Now
	}
	return &MemoryBlacklist{
		entries: make(map[string]time.Time),
		now:     now,
	}
}

func (b *MemoryBlacklist) Add(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	for id, expiry := range b.entries {
		if now.After(expiry) {
			delete(b.entries, id)
		}
	}

	if ttl <= 0 {
		// Already expired tokens are still revoked for a grace interval to
		// cover clock leeway at validation.
		ttl = time.Minute
	}
	b.entries[jti] = now.Add(ttl)
	return nil
}

func (b *MemoryBlacklist) Contains(_ context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	expiry, ok := b.entries[jti]
	if !ok {
		return false, nil
	}
	return !b.now().After(expiry), nil
}

// Len reports the number of entries, expired ones included.
func (b *MemoryBlacklist) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// RedisBlacklist is the Redis-backed Blacklist implementation for
// multi-process deployments. Redis expires entries on its own clock.
type RedisBlacklist struct {
	redis  redis.UniversalClient
	prefix string
}

func NewRedisBlacklist(redisClient redis.UniversalClient, prefix string) *RedisBlacklist {
	if prefix == "" {
		prefix = "abl"
	}
	return &RedisBlacklist{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (b *RedisBlacklist) key(jti string) string {
	return b.prefix + ":" + jti
}

func (b *RedisBlacklist) Add(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	if err := b.redis.Set(ctx, b.key(jti), 1, ttl).Err(); err != nil {
		return fmt.Errorf("blacklist backend unavailable: %w", err)
	}
	return nil
}

func (b *RedisBlacklist) Contains(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	n, err := b.redis.Exists(ctx, b.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("blacklist backend unavailable: %w", err)
	}
	return n > 0, nil
}
