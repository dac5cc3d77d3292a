// Package cache 缓存层 mock 实现
package cache

import (
	"context"
)

// NoOpLimiter 不做限流的 RateLimiter 实现（未配置 Redis 或测试时使用）
type NoOpLimiter struct{}

// NewNoOpLimiter 创建 NoOpLimiter 实例
func NewNoOpLimiter() *NoOpLimiter {
	return &NoOpLimiter{}
}

// Allow 总是放行
func (NoOpLimiter) Allow(_ context.Context, _ string, rule Rule) (Result, error) {
	return Result{Allowed: true, Remaining: rule.Limit}, nil
}

// 确保 NoOpLimiter 实现了 RateLimiter 接口
var _ RateLimiter = (*NoOpLimiter)(nil)
