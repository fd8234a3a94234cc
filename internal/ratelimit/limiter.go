package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/feral-file/ff-stacks-mint/internal/adapter"
	"github.com/feral-file/ff-stacks-mint/internal/logger"
)

// Limiter paces outbound requests
//
//go:generate mockgen -source=limiter.go -destination=../mocks/ratelimit_limiter.go -package=mocks -mock_names=Limiter=MockLimiter
type Limiter interface {
	// Wait blocks until a request may proceed or ctx is done
	Wait(ctx context.Context) error
}

// Config holds the pacing settings for one upstream
type Config struct {
	Name              string
	RequestsPerSecond int
	Burst             int
	KeyPrefix         string
	// FallbackCooldown is how long Redis is skipped after an error
	FallbackCooldown time.Duration
}

func (c *Config) applyDefaults() {
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 10
	}
	if c.Burst <= 0 {
		c.Burst = c.RequestsPerSecond
	}
	if c.FallbackCooldown <= 0 {
		c.FallbackCooldown = 30 * time.Second
	}
}

// NewLocal creates an in-process limiter
func NewLocal(cfg Config) Limiter {
	cfg.applyDefaults()
	return rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
}

// distributed shares one budget across replicas through Redis and falls back to a local
// limiter while Redis is failing
type distributed struct {
	cfg     Config
	key     string
	remote  adapter.RedisRateLimiter
	local   *rate.Limiter
	clock   adapter.Clock
	mu      sync.Mutex
	skipTil time.Time
}

// NewDistributed creates a limiter backed by redis_rate
func NewDistributed(cfg Config, rc adapter.RedisClient, clock adapter.Clock) Limiter {
	cfg.applyDefaults()
	return &distributed{
		cfg:    cfg,
		key:    fmt.Sprintf("%slimiter:%s", cfg.KeyPrefix, cfg.Name),
		remote: rc.NewRateLimiter(),
		local:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		clock:  clock,
	}
}

func (d *distributed) redisSkipped() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clock.Now().Before(d.skipTil)
}

func (d *distributed) skipRedis() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.skipTil = d.clock.Now().Add(d.cfg.FallbackCooldown)
}

// Wait acquires a token from Redis, or from the local limiter while Redis is skipped
func (d *distributed) Wait(ctx context.Context) error {
	limit := redis_rate.Limit{
		Rate:   d.cfg.RequestsPerSecond,
		Burst:  d.cfg.Burst,
		Period: time.Second,
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if d.redisSkipped() {
			return d.local.Wait(ctx)
		}

		res, err := d.remote.Allow(ctx, d.key, limit)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.WarnCtx(ctx, "Redis rate limiter error, falling back to local",
				zap.String("limiter", d.cfg.Name),
				zap.Error(err))
			d.skipRedis()
			return d.local.Wait(ctx)
		}

		if res.Allowed > 0 {
			return nil
		}

		logger.DebugCtx(ctx, "Rate limit token unavailable, waiting",
			zap.String("limiter", d.cfg.Name),
			zap.Duration("retry_after", res.RetryAfter))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.clock.After(res.RetryAfter):
		}
	}
}
