package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"bookstore-api/internal/shared/cache"
)

// Allow 固定窗口限流
//
// key 形如 ratelimit:<key>:<窗口序号>，INCR 与 PEXPIRE 在同一事务中执行，
// 窗口结束后 key 自然过期。
func (s *Store) Allow(ctx context.Context, key string, rule cache.Rule) (cache.Result, error) {
	if !rule.Enabled() {
		return cache.Result{Allowed: true}, nil
	}

	nowMs := s.now().UnixMilli()
	windowMs := rule.Window.Milliseconds()
	window := nowMs / windowMs
	fullKey := fmt.Sprintf("%s%s:%d", cache.KeyRateLimit, key, window)

	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, fullKey)
		pipe.PExpire(ctx, fullKey, rule.Window)
		return nil
	})
	if err != nil {
		return cache.Result{}, fmt.Errorf("rate limit %s: %w", key, err)
	}
	count := incr.Val()

	res := cache.Result{
		Allowed:   count <= int64(rule.Limit),
		Remaining: max(rule.Limit-int(count), 0),
	}
	if !res.Allowed {
		res.RetryAfter = time.Duration((window+1)*windowMs-nowMs) * time.Millisecond
	}
	return res, nil
}

var _ cache.RateLimiter = (*Store)(nil)
