package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const defaultMutexTTL = 30 * time.Second

// Unlock deletes the key only when the stored token still matches, so a
// holder whose TTL expired cannot release a lock re-acquired elsewhere.
var unlockScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// Mutex is a best-effort distributed lock used to keep concurrent sweeper
// instances from scanning the same batch. Correctness does not depend on
// it: the per-row conditional claims are the real guard, the mutex only
// avoids wasted duplicate work.
type Mutex struct {
	client *goredis.Client
	key    string
	ttl    time.Duration
	token  string
}

func NewMutex(client *goredis.Client, key string, ttl time.Duration) (*Mutex, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if key == "" {
		return nil, fmt.Errorf("mutex key is required")
	}
	if ttl <= 0 {
		ttl = defaultMutexTTL
	}

	return &Mutex{
		client: client,
		key:    key,
		ttl:    ttl,
	}, nil
}

// TryLock attempts to acquire the lock without blocking. It returns false
// when another holder owns the key.
func (m *Mutex) TryLock(ctx context.Context) (bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	token := uuid.NewString()
	acquired, err := m.client.SetNX(ctx, m.key, token, m.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", m.key, err)
	}
	if acquired {
		m.token = token
	}
	return acquired, nil
}

func (m *Mutex) Unlock(ctx context.Context) error {
	if m.token == "" {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	token := m.token
	m.token = ""
	if err := unlockScript.Run(ctx, m.client, []string{m.key}, token).Err(); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", m.key, err)
	}
	return nil
}
