package cache

import (
	"context"
	"encoding/json"
	"path"
	"sync"
	"time"

	"carequeue/pkg/logger"

	"github.com/cockroachdb/errors"
)

type memoryItem struct {
	data      []byte
	expiresAt time.Time
}

// Memory is a process-local Service, used when Redis is not configured and in tests.
type Memory struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
	log   *logger.Logger

	Hits   int
	Misses int
}

func NewMemory() *Memory {
	return &Memory{
		items: make(map[string]memoryItem),
		now:   time.Now,
		log:   logger.GetDefault(),
	}
}

func (m *Memory) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	item, ok := m.items[key]
	if ok && !item.expiresAt.IsZero() && !m.now().Before(item.expiresAt) {
		delete(m.items, key)
		ok = false
	}
	if !ok {
		m.Misses++
		m.mu.Unlock()
		return ErrCacheMiss
	}
	m.Hits++
	m.mu.Unlock()
	return json.Unmarshal(item.data, dest)
}

func (m *Memory) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "cache marshal")
	}
	item := memoryItem{data: data}
	if ttl > 0 {
		item.expiresAt = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.items[key] = item
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.items, k)
	}
	return nil
}

// DeletePattern supports the glob syntax of path.Match, which covers the Redis patterns used here.
func (m *Memory) DeletePattern(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.items {
		if ok, _ := path.Match(pattern, k); ok {
			delete(m.items, k)
		}
	}
	return nil
}

func (m *Memory) GetOrSet(ctx context.Context, key string, ttl time.Duration, fetcher func() (interface{}, error), dest interface{}) error {
	return getOrSet(ctx, m, m.log, key, ttl, fetcher, dest)
}

func (m *Memory) Ping(context.Context) error { return nil }

// Len reports the number of live keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
