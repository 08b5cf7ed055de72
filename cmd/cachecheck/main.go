// Command cachecheck exercises the Redis-backed pieces against a live Redis:
// the job lock, the rule cache and the rate limiter.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"carequeue/internal/shared/config"
	"carequeue/internal/shared/constants"
	"carequeue/pkg/cache"
	"carequeue/pkg/logger"
	"carequeue/pkg/ratelimit"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

type CheckResult struct {
	Name     string
	Duration time.Duration
	Err      error
}

type CheckSuite struct {
	client  *redis.Client
	results []CheckResult
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("Redis connection failed: %v", err)
	}
	fmt.Println("Redis connection: OK")

	suite := &CheckSuite{client: client}
	suite.run(ctx, "preload lock scripts", func(ctx context.Context) error {
		return cache.PreloadScripts(ctx, client)
	})
	suite.run(ctx, "job lock is exclusive", suite.checkLock)
	suite.run(ctx, "cache get or set", suite.checkCache)
	suite.run(ctx, "rate limiter window", suite.checkRateLimit)

	suite.printSummary()
}

func (s *CheckSuite) run(ctx context.Context, name string, fn func(ctx context.Context) error) {
	start := time.Now()
	err := fn(ctx)
	s.results = append(s.results, CheckResult{Name: name, Duration: time.Since(start), Err: err})
}

func (s *CheckSuite) checkLock(ctx context.Context) error {
	locker := cache.NewRedisLocker(s.client)
	key := constants.BuildJobLockKey("cachecheck-" + uuid.NewString())

	release, err := locker.Acquire(ctx, key, time.Minute)
	if err != nil {
		return err
	}
	if _, err := locker.Acquire(ctx, key, time.Minute); !errors.Is(err, cache.ErrLockHeld) {
		return errors.Newf("second acquire returned %v, want ErrLockHeld", err)
	}
	if err := release(ctx); err != nil {
		return err
	}
	again, err := locker.Acquire(ctx, key, time.Minute)
	if err != nil {
		return errors.Wrap(err, "acquire after release")
	}
	return again(ctx)
}

func (s *CheckSuite) checkCache(ctx context.Context) error {
	svc := cache.NewService(s.client, logger.GetDefault())
	key := "carequeue:cachecheck:" + uuid.NewString()
	defer svc.Delete(ctx, key)

	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return map[string]int{"points": 40}, nil
	}
	for i := 0; i < 2; i++ {
		var got map[string]int
		if err := svc.GetOrSet(ctx, key, time.Minute, fetch, &got); err != nil {
			return err
		}
		if got["points"] != 40 {
			return errors.Newf("unexpected cached value %v", got)
		}
	}
	if calls != 1 {
		return errors.Newf("fetcher ran %d times, want 1", calls)
	}
	return nil
}

func (s *CheckSuite) checkRateLimit(ctx context.Context) error {
	limiter := ratelimit.NewRateLimiter(s.client, &ratelimit.Config{
		Enabled:         true,
		KeyPrefix:       "carequeue:cachecheck:" + uuid.NewString() + ":",
		WindowDuration:  10 * time.Second,
		DefaultRequests: 3,
	})
	for i := 0; i < 3; i++ {
		res, err := limiter.IsAllowed(ctx, "203.0.113.7", ratelimit.RateLimitTypeDefault)
		if err != nil {
			return err
		}
		if !res.Allowed {
			return errors.Newf("request %d rejected early", i+1)
		}
	}
	res, err := limiter.IsAllowed(ctx, "203.0.113.7", ratelimit.RateLimitTypeDefault)
	if err != nil {
		return err
	}
	if res.Allowed {
		return errors.New("fourth request was allowed")
	}
	return nil
}

func (s *CheckSuite) printSummary() {
	fmt.Println("\nResults")
	fmt.Println("=======")
	failed := 0
	for _, r := range s.results {
		status := "PASS"
		if r.Err != nil {
			status = "FAIL"
			failed++
		}
		fmt.Printf("%-28s %s  %v\n", r.Name, status, r.Duration.Round(time.Millisecond))
		if r.Err != nil {
			fmt.Printf("    %v\n", r.Err)
		}
	}
	if failed > 0 {
		log.Fatalf("%d of %d checks failed", failed, len(s.results))
	}
}
