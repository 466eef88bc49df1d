package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Limiter throttles outbound provider calls ahead of time, shared across
// every process hitting the same key when Redis is configured (SPEC_FULL.md
// §5.2), or local-process-only otherwise.
type Limiter interface {
	Wait(ctx context.Context, estimatedTokens int64) error
	Close() error
}

// Provider tier defaults, conservative enough to suit either backend's
// free tier. They are fixed here; no configuration key overrides them.
const (
	defaultRPM = 500
	defaultTPM = 500_000
)

// NewLimiter returns a Redis-backed limiter when redisURL is set, else a
// local token-bucket limiter. An unreachable Redis makes this return an
// error once a ping of at most 5 seconds fails; it does not fall back to
// the local limiter (llm.New reports it as a Configuration error).
func NewLimiter(redisURL string) (Limiter, error) {
	if redisURL == "" {
		return newLocalLimiter(), nil
	}
	return newRedisLimiter(redisURL)
}

// localLimiter wraps golang.org/x/time/rate for single-process deployments.
type localLimiter struct {
	requests *rate.Limiter
}

func newLocalLimiter() *localLimiter {
	return &localLimiter{
		requests: rate.NewLimiter(rate.Limit(defaultRPM)/60, defaultRPM/10+1),
	}
}

func (l *localLimiter) Wait(ctx context.Context, _ int64) error {
	return l.requests.Wait(ctx)
}

func (l *localLimiter) Close() error { return nil }

// redisLimiter enforces a shared per-minute request and token budget via an
// atomic Lua script, so concurrent processes against one Redis instance
// never jointly exceed the provider's limits.
type redisLimiter struct {
	redis    *redis.Client
	rpmLimit int64
	tpmLimit int64
}

func newRedisLimiter(redisURL string) (*redisLimiter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}

	return &redisLimiter{redis: client, rpmLimit: defaultRPM, tpmLimit: defaultTPM}, nil
}

var limiterScript = redis.NewScript(`
	local rpm_key = KEYS[1]
	local tpm_key = KEYS[2]
	local rpm_limit = tonumber(ARGV[1])
	local tpm_limit = tonumber(ARGV[2])
	local tokens = tonumber(ARGV[3])

	local rpm = redis.call('INCR', rpm_key)
	local tpm = redis.call('INCRBY', tpm_key, tokens)

	if rpm == 1 then redis.call('EXPIRE', rpm_key, 70) end
	if tpm == tokens then redis.call('EXPIRE', tpm_key, 70) end

	if rpm >= rpm_limit then
		return {-1, rpm, rpm_limit}
	end
	if tpm >= tpm_limit then
		return {-2, tpm, tpm_limit}
	end
	return {0, rpm, tpm}
`)

// Wait blocks (respecting ctx) until the shared per-minute budget has room;
// when throttled it sleeps until the next minute window and tries again.
func (l *redisLimiter) Wait(ctx context.Context, estimatedTokens int64) error {
	for {
		now := time.Now()
		rpmKey := fmt.Sprintf("llm:rpm:%s", now.Format("2006-01-02T15:04"))
		tpmKey := fmt.Sprintf("llm:tpm:%s", now.Format("2006-01-02T15:04"))

		result, err := limiterScript.Run(ctx, l.redis, []string{rpmKey, tpmKey}, l.rpmLimit, l.tpmLimit, estimatedTokens).Result()
		if err != nil {
			return fmt.Errorf("rate limiter redis operation failed: %w", err)
		}

		resultSlice, ok := result.([]interface{})
		if !ok || len(resultSlice) < 1 {
			return fmt.Errorf("invalid rate limiter response")
		}
		code, _ := resultSlice[0].(int64)
		if code == 0 {
			return nil
		}

		waitTime := 60 - now.Second()
		if waitTime <= 0 {
			waitTime = 1
		}
		select {
		case <-time.After(time.Duration(waitTime) * time.Second):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *redisLimiter) Close() error {
	if l.redis != nil {
		return l.redis.Close()
	}
	return nil
}
