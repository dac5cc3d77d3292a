// Package server 路由配置与核心基础设施
//
// 文件组织：
//   - common.go: Handler 定义与健康检查
//   - handler.go: 路由表
//   - middleware.go: 恢复、日志、CORS、限流、404
//   - metrics.go: Prometheus 指标
package server

import (
	"net/http"
	"time"

	"bookstore-api/internal/apiserver/auth"
	"bookstore-api/internal/apiserver/httputil"
	"bookstore-api/internal/apiserver/password"
	"bookstore-api/internal/apiserver/upload"
	"bookstore-api/internal/shared/cache"
	"bookstore-api/internal/shared/storage"
	"bookstore-api/pkg/logging"

	"github.com/prometheus/client_golang/prometheus"
)

// Options 服务依赖与可调参数
type Options struct {
	Auth           auth.Config
	BaseURL        string // 重置链接前缀
	BooksPerPage   int
	AuthorsPerPage int

	// 限流：Limiter 为 nil 或规则未启用时不限流
	Limiter    cache.RateLimiter
	LoginRule  cache.Rule
	ForgotRule cache.Rule

	// TrustedProxies 为空时忽略 X-Forwarded-For，按直连地址识别客户端
	TrustedProxies httputil.TrustedProxies

	// Uploader 为 nil 时上传接口返回 503
	Uploader upload.Uploader

	// Registry 为 nil 时使用独立的新 Registry
	Registry *prometheus.Registry
	Logger   *logging.Logger
}

// Handler API 处理器
//
// Handler 是所有 HTTP API 的入口，负责：
//   - 构建认证与密码找回服务
//   - 路由请求到各领域包
//   - 挂载公共中间件
type Handler struct {
	store storage.PersistentStore
	opts  Options

	tokens      *auth.Tokens
	authSvc     *auth.Service
	passwordSvc *password.Service
	guard       *auth.Guard

	metrics *Metrics
	logger  *logging.Logger
	started time.Time
}

// NewHandler 创建 API 处理器
func NewHandler(store storage.PersistentStore, opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	if opts.Limiter == nil {
		opts.Limiter = cache.NewNoOpLimiter()
	}

	tokens := auth.NewTokens(nil)
	metrics := NewMetrics("bookstore", opts.Registry)

	authSvc := auth.NewService(store, opts.Auth, tokens, logger.Component("auth"))
	authSvc.SetEventRecorder(metrics)
	passwordSvc := password.NewService(store, opts.Auth, tokens, opts.BaseURL, logger.Component("password"))
	passwordSvc.SetEventRecorder(metrics)

	return &Handler{
		store:       store,
		opts:        opts,
		tokens:      tokens,
		authSvc:     authSvc,
		passwordSvc: passwordSvc,
		guard:       auth.NewGuard(opts.Auth, tokens, logger.Component("guard")),
		metrics:     metrics,
		logger:      logger,
		started:     time.Now(),
	}
}

// AuthService 返回认证服务（启动时创建管理员账号用）
func (h *Handler) AuthService() *auth.Service {
	return h.authSvc
}

// Health 健康检查
// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"uptime": time.Since(h.started).Round(time.Second).String(),
	})
}
