// Package cache 缓存层抽象接口
//
// 提供请求限流等临时状态的存取能力，当前由 Redis 实现；
// 未配置 Redis 时使用 NoOpLimiter。
package cache

import (
	"context"
)

// RateLimiter 固定窗口限流接口
//
// key 由调用方组合（如 "login:<ip>"），实现负责加前缀与过期。
type RateLimiter interface {
	Allow(ctx context.Context, key string, rule Rule) (Result, error)
}
