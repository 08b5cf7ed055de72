package cache

import (
	"context"
	"encoding/json"
	"time"

	"carequeue/pkg/logger"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

type Service interface {
	// Generic cache operations
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePattern(ctx context.Context, pattern string) error

	// Cache-aside pattern helper
	GetOrSet(ctx context.Context, key string, ttl time.Duration, fetcher func() (interface{}, error), dest interface{}) error

	// Health check
	Ping(ctx context.Context) error
}

type service struct {
	client *redis.Client
	log    *logger.Logger
}

func NewService(client *redis.Client, log *logger.Logger) Service {
	if log == nil {
		log = logger.GetDefault()
	}
	return &service{client: client, log: log}
}

func (s *service) Get(ctx context.Context, key string, dest interface{}) error {
	val, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return errors.Wrap(err, "cache get")
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return errors.Wrap(err, "cache unmarshal")
	}
	return nil
}

func (s *service) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "cache marshal")
	}
	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return errors.Wrap(err, "cache set")
	}
	return nil
}

func (s *service) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return errors.Wrap(err, "cache delete")
	}
	return nil
}

// DeletePattern walks the keyspace with SCAN so large databases are not blocked.
func (s *service) DeletePattern(ctx context.Context, pattern string) error {
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := s.Delete(ctx, batch...); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return errors.Wrap(err, "cache scan")
	}
	return s.Delete(ctx, batch...)
}

func (s *service) GetOrSet(ctx context.Context, key string, ttl time.Duration, fetcher func() (interface{}, error), dest interface{}) error {
	return getOrSet(ctx, s, s.log, key, ttl, fetcher, dest)
}

func (s *service) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// getOrSet is the cache-aside flow shared by every Service implementation.
// Cache failures degrade to the fetcher; only fetcher errors are returned.
func getOrSet(ctx context.Context, s Service, log *logger.Logger, key string, ttl time.Duration, fetcher func() (interface{}, error), dest interface{}) error {
	err := s.Get(ctx, key, dest)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		log.WarnContext(ctx, "cache read failed, falling back to source", "key", key, "error", err)
	}

	data, err := fetcher()
	if err != nil {
		return err
	}

	if setErr := s.Set(ctx, key, data, ttl); setErr != nil {
		log.WarnContext(ctx, "cache write failed", "key", key, "error", setErr)
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return errors.Wrap(err, "marshal fetched data")
	}
	return json.Unmarshal(jsonData, dest)
}
