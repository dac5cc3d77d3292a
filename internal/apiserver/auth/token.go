package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

// 令牌用途，写入 aud 声明；会话令牌不能当作重置令牌使用，反之亦然
const (
	AudienceSession       = "session"
	AudiencePasswordReset = "password-reset"
)

// ErrInvalidToken 令牌格式错误、签名不符、受众不符或已过期
var ErrInvalidToken = errors.New("invalid token")

// Claims JWT 声明
type Claims struct {
	jwt.RegisteredClaims
	IsAdmin bool   `json:"isAdmin"`
	Email   string `json:"email,omitempty"` // 仅重置令牌
	Version int64  `json:"ver,omitempty"`   // 仅重置令牌：签发时的 token_version
}

// Tokens 令牌签发与校验
type Tokens struct {
	now func() time.Time
}

// NewTokens 创建令牌签发器，now 为 nil 时使用 time.Now
func NewTokens(now func() time.Time) *Tokens {
	if now == nil {
		now = time.Now
	}
	return &Tokens{now: now}
}

// Issue 签发 HS256 令牌，iat/exp/aud 由此处填充
func (t *Tokens) Issue(claims Claims, secret []byte, audience string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", ErrConfiguration
	}
	now := t.now()
	claims.Audience = jwt.ClaimStrings{audience}
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Verify 校验令牌并返回声明
//
// 必须满足：HS256、签名正确、aud 匹配、exp/iat 存在且未过期、sub 非空。
// 任何失败都返回 ErrInvalidToken，具体原因包装在错误链中仅供日志使用。
func (t *Tokens) Verify(token string, secret []byte, audience string) (*Claims, error) {
	if len(secret) == 0 {
		return nil, ErrConfiguration
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (interface{}, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" || claims.IssuedAt == nil {
		return nil, fmt.Errorf("%w: missing required claims", ErrInvalidToken)
	}
	return claims, nil
}

// DeriveKey 从主密钥派生指定用途的签名密钥（HKDF-SHA256）
func DeriveKey(secret, purpose string) ([]byte, error) {
	if secret == "" {
		return nil, ErrConfiguration
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(purpose)), key); err != nil {
		return nil, fmt.Errorf("derive %s key: %w", purpose, err)
	}
	return key, nil
}
