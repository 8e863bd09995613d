package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter tracks failed authentication attempts per identifier in
// a sliding window. Each failure refreshes the key TTL, so the window
// is anchored at the most recent failure; once no failures arrive for
// a full window the counter expires and the identifier starts fresh.
//
// Counters live in Redis so the limit holds across processes.
type RateLimiter struct {
	Redis     *redis.Client
	Threshold int
	Window    time.Duration
}

func NewRateLimiter(client *redis.Client, threshold int, window time.Duration) *RateLimiter {
	return &RateLimiter{Redis: client, Threshold: threshold, Window: window}
}

func failureKey(identifier string) string {
	return "auth_failures:" + strings.ToLower(identifier)
}

// Allow reports whether the identifier is still under the failure
// threshold. Redis being unreachable surfaces as an error rather than
// silently opening the gate.
func (r *RateLimiter) Allow(ctx context.Context, identifier string) (bool, error) {
	count, err := r.Redis.Get(ctx, failureKey(identifier)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return true, nil
		}
		return false, err
	}
	return count < int64(r.Threshold), nil
}

// RecordFailure increments the counter and re-anchors the window at
// now. Wrong password and unknown user both land here so the two are
// indistinguishable from outside.
func (r *RateLimiter) RecordFailure(ctx context.Context, identifier string) error {
	key := failureKey(identifier)
	pipe := r.Redis.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, r.Window)
	_, err := pipe.Exec(ctx)
	return err
}

// Clear removes the counter entirely after a successful authentication.
func (r *RateLimiter) Clear(ctx context.Context, identifier string) error {
	return r.Redis.Del(ctx, failureKey(identifier)).Err()
}

// CooldownTTL reports the time left on a named cooldown, zero if none.
func (r *RateLimiter) CooldownTTL(ctx context.Context, key string) time.Duration {
	ttl, err := r.Redis.TTL(ctx, "cooldown:"+key).Result()
	if err != nil || ttl < 0 {
		return 0
	}
	return ttl
}

// SetCooldown arms a named cooldown, used to throttle email re-sends.
func (r *RateLimiter) SetCooldown(ctx context.Context, key string, ttl time.Duration) {
	r.Redis.Set(ctx, "cooldown:"+key, "1", ttl)
}
