// Package auth 用户认证：JWT 令牌、密码哈希、注册登录与访问守卫
package auth

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// contextKey context 键类型
type contextKey string

const ctxKeyClaims contextKey = "auth_claims"

// Config 认证配置
type Config struct {
	JWTSecret   string        `yaml:"-"` // 只从 JWT_SECRET 环境变量读取
	SessionTTL  time.Duration `yaml:"session_ttl"`
	ResetTTL    time.Duration `yaml:"reset_ttl"`
	TokenHeader string        `yaml:"token_header"`
	BcryptCost  int           `yaml:"bcrypt_cost"`
}

// DefaultConfig 返回默认认证配置
func DefaultConfig() Config {
	return Config{
		SessionTTL:  30 * 24 * time.Hour,
		ResetTTL:    10 * time.Minute,
		TokenHeader: "token",
		BcryptCost:  bcrypt.DefaultCost,
	}
}

// Enabled 是否配置了签名密钥
func (c Config) Enabled() bool {
	return c.JWTSecret != ""
}

// ============================================================================
// 密码哈希
// ============================================================================

// HashPassword 使用 bcrypt 哈希密码，cost 低于 10 时按 10 处理
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.DefaultCost {
		cost = bcrypt.DefaultCost
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", &ValidationError{Field: "password", Message: "password must be at most 72 bytes"}
	}
	return string(bytes), err
}

// CheckPassword 验证密码
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ============================================================================
// Context 辅助函数
// ============================================================================

// WithClaims 将已验证的令牌声明注入 context
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, ctxKeyClaims, claims)
}

// ClaimsFrom 从 context 获取令牌声明，未认证时返回 nil
func ClaimsFrom(ctx context.Context) *Claims {
	claims, _ := ctx.Value(ctxKeyClaims).(*Claims)
	return claims
}
