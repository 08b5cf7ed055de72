package cache

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned when another holder owns the lock.
var ErrLockHeld = errors.New("lock held by another owner")

// Locker hands out short-lived exclusive leases keyed by name.
type Locker interface {
	// Acquire returns a release func, or ErrLockHeld when the key is taken.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error)
}

// Only the holder that set the token may delete the key.
var releaseScript = redis.NewScript(`
-- KEYS[1] = lock key
-- ARGV[1] = owner token
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisLocker struct {
	client *redis.Client
}

func NewRedisLocker(client *redis.Client) Locker {
	return &redisLocker{client: client}
}

func (l *redisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "acquire lock %s", key)
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			return errors.Wrapf(err, "release lock %s", key)
		}
		return nil
	}, nil
}

// PreloadScripts loads the lock scripts so the first release uses EVALSHA.
func PreloadScripts(ctx context.Context, client *redis.Client) error {
	return releaseScript.Load(ctx, client).Err()
}

type memoryLocker struct {
	mu   sync.Mutex
	held map[string]time.Time
	now  func() time.Time
}

// NewMemoryLocker returns a process-local Locker.
func NewMemoryLocker() Locker {
	return &memoryLocker{held: make(map[string]time.Time), now: time.Now}
}

func (l *memoryLocker) Acquire(_ context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if until, ok := l.held[key]; ok && l.now().Before(until) {
		return nil, ErrLockHeld
	}
	until := l.now().Add(ttl)
	l.held[key] = until
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.held[key].Equal(until) {
			delete(l.held, key)
		}
		return nil
	}, nil
}
