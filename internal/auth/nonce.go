package auth

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// NonceStore remembers request nonces until they expire.
type NonceStore interface {
	// Claim records nonce for ttl and reports false if it was already seen.
	Claim(ctx context.Context, nonce string, ttl time.Duration) (bool, error)
}

const nonceKeyPrefix = "auth:nonce:"

type RedisNonces struct {
	rdb *redis.Client
}

func NewRedisNonces(rdb *redis.Client) *RedisNonces {
	return &RedisNonces{rdb: rdb}
}

func (n *RedisNonces) Claim(ctx context.Context, nonce string, ttl time.Duration) (bool, error) {
	return n.rdb.SetNX(ctx, nonceKeyPrefix+nonce, 1, ttl).Result()
}

// MemoryNonces serves single-process deployments without Redis.
type MemoryNonces struct {
	mu   sync.Mutex
	seen map[string]time.Time
	now  func() time.Time
}

func NewMemoryNonces() *MemoryNonces {
	return &MemoryNonces{seen: make(map[string]time.Time), now: time.Now}
}

func (n *MemoryNonces) Claim(_ context.Context, nonce string, ttl time.Duration) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	now := n.now()
	for k, exp := range n.seen {
		if !now.Before(exp) {
			delete(n.seen, k)
		}
	}
	if _, ok := n.seen[nonce]; ok {
		return false, nil
	}
	n.seen[nonce] = now.Add(ttl)
	return true, nil
}
