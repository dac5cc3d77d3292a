package auth

import (
	"net/http"
	"strings"

	"bookstore-api/internal/apiserver/httputil"
	"bookstore-api/pkg/logging"
)

// 守卫拒绝消息
const (
	msgNoToken      = "no token provided"
	msgInvalidToken = "invalid token"
	msgOwnerOnly    = "You are not allowed, you can only update your profile"
	msgAdminOnly    = "only admin allowed"
)

// Guard 访问守卫
//
// 每个请求只产生一种结果：
//  1. 未携带令牌或格式错误 → 401
//  2. 服务端未配置密钥 → 500
//  3. 令牌校验失败 → 403
//  4. 通过 → 声明注入 context 后交给下一个处理器
type Guard struct {
	cfg    Config
	tokens *Tokens
	logger *logging.Logger
}

// NewGuard 创建访问守卫
func NewGuard(cfg Config, tokens *Tokens, logger *logging.Logger) *Guard {
	if cfg.TokenHeader == "" {
		cfg.TokenHeader = DefaultConfig().TokenHeader
	}
	return &Guard{cfg: cfg, tokens: tokens, logger: logger}
}

// Verify 校验会话令牌
func (g *Guard) Verify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := extractToken(r, g.cfg.TokenHeader)
		if !ok {
			httputil.WriteError(w, http.StatusUnauthorized, msgNoToken)
			return
		}

		if !g.cfg.Enabled() {
			g.logger.Error("JWT secret is not configured")
			httputil.WriteError(w, http.StatusInternalServerError, "internal error")
			return
		}

		claims, err := g.tokens.Verify(raw, []byte(g.cfg.JWTSecret), AudienceSession)
		if err != nil {
			g.logger.WithError(err).Warn("Token rejected", "path", r.URL.Path)
			httputil.WriteError(w, http.StatusForbidden, msgInvalidToken)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// OwnerOrAdmin 令牌主体与路径参数 {id} 一致，或为管理员
func (g *Guard) OwnerOrAdmin(next http.Handler) http.Handler {
	return g.Verify(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFrom(r.Context())
		if claims.IsAdmin || claims.Subject == r.PathValue("id") {
			next.ServeHTTP(w, r)
			return
		}
		httputil.WriteError(w, http.StatusForbidden, msgOwnerOnly)
	}))
}

// AdminOnly 仅管理员
func (g *Guard) AdminOnly(next http.Handler) http.Handler {
	return g.Verify(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ClaimsFrom(r.Context()).IsAdmin {
			httputil.WriteError(w, http.StatusForbidden, msgAdminOnly)
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// extractToken 读取令牌头；缺失、重复、空白或包含空白字符均视为未携带
func extractToken(r *http.Request, header string) (string, bool) {
	values := r.Header.Values(header)
	if len(values) != 1 {
		return "", false
	}
	v := values[0]
	if v == "" || strings.ContainsAny(v, " \t\r\n") {
		return "", false
	}
	return v, true
}
