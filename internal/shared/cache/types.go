// Package cache 缓存层类型定义
package cache

import (
	"time"
)

// Rule 限流规则：每个窗口内最多 Limit 次
type Rule struct {
	Limit  int
	Window time.Duration
}

// Enabled Limit 或 Window 为 0 时不限流
func (r Rule) Enabled() bool {
	return r.Limit > 0 && r.Window > 0
}

// Result 限流判定结果
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration // 仅在拒绝时有意义
}

// KeyRateLimit 限流计数 key 前缀
const KeyRateLimit = "ratelimit:"
