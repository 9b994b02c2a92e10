package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ruteri/ork-registry/interfaces"
)

// ReplayGuard remembers request nonces so a signed request is accepted once.
type ReplayGuard interface {
	// Claim records nonce for signer and reports whether it was unused.
	Claim(ctx context.Context, signer interfaces.Identity, nonce string, ttl time.Duration) (bool, error)
}

// MemoryReplayGuard keeps nonces in process memory. Suitable for a single instance.
type MemoryReplayGuard struct {
	mu   sync.Mutex
	seen map[string]time.Time
	now  func() time.Time
}

func NewMemoryReplayGuard() *MemoryReplayGuard {
	return &MemoryReplayGuard{
		seen: make(map[string]time.Time),
		now:  time.Now,
	}
}

func (g *MemoryReplayGuard) Claim(ctx context.Context, signer interfaces.Identity, nonce string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for key, expiry := range g.seen {
		if now.After(expiry) {
			delete(g.seen, key)
		}
	}

	key := nonceKey(signer, nonce)
	if _, used := g.seen[key]; used {
		return false, nil
	}
	g.seen[key] = now.Add(ttl)
	return true, nil
}

const replayKeyPrefix = "ork:nonce:"

// RedisReplayGuard shares nonces between registry instances through Redis.
type RedisReplayGuard struct {
	client *redis.Client
}

// ConnectRedis parses a redis:// URL and checks the connection.
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func NewRedisReplayGuard(client *redis.Client) *RedisReplayGuard {
	return &RedisReplayGuard{client: client}
}

// Claim uses SET NX with expiry so concurrent claims of one nonce have a single winner.
func (g *RedisReplayGuard) Claim(ctx context.Context, signer interfaces.Identity, nonce string, ttl time.Duration) (bool, error) {
	return g.client.SetNX(ctx, replayKeyPrefix+nonceKey(signer, nonce), "1", ttl).Result()
}

func nonceKey(signer interfaces.Identity, nonce string) string {
	return signer.String() + ":" + nonce
}
