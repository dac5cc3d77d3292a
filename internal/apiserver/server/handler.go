package server

import (
	"net/http"

	"bookstore-api/internal/apiserver/auth"
	"bookstore-api/internal/apiserver/author"
	"bookstore-api/internal/apiserver/book"
	"bookstore-api/internal/apiserver/password"
	"bookstore-api/internal/apiserver/upload"
	"bookstore-api/internal/apiserver/user"
)

// Router 返回配置好的 HTTP 路由
//
// 路由规则：
//
// 健康检查与指标:
//   - GET /health
//   - GET /metrics
//
// 认证 (Auth):
//   - POST /api/auth/register
//   - POST /api/auth/login              - 限流
//
// 密码找回 (Password):
//   - GET  /password/forgot-password
//   - POST /password/forgot-password    - 限流
//   - GET  /password/reset-password/{userId}/{token}
//   - POST /password/reset-password/{userId}/{token}
//
// 用户 (User):
//   - GET    /api/users                 - 仅管理员
//   - GET    /api/users/{id}            - 本人或管理员
//   - PUT    /api/users/{id}            - 本人或管理员
//   - DELETE /api/users/{id}            - 本人或管理员
//
// 图书 / 作者 (Book / Author):
//   - GET    /api/books, /api/authors           - 公开，分页
//   - GET    /api/books/{id}, /api/authors/{id} - 公开
//   - POST/PUT/DELETE                          - 仅管理员
//
// 上传:
//   - POST /api/upload
func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)
	mux.Handle("GET /metrics", h.metrics.Handler())

	auth.NewHandler(h.authSvc, h.logger.Component("auth")).
		RegisterRoutes(mux, h.throttle("login", h.opts.LoginRule))

	password.NewHandler(h.passwordSvc, h.logger.Component("password")).
		RegisterRoutes(mux, h.throttle("forgot", h.opts.ForgotRule))

	user.NewHandler(h.store, h.opts.Auth, h.logger.Component("user")).
		RegisterRoutes(mux, h.guard)

	author.NewHandler(h.store, h.opts.AuthorsPerPage, h.logger.Component("author")).
		RegisterRoutes(mux, h.guard)

	book.NewHandler(h.store, h.store, h.opts.BooksPerPage, h.logger.Component("book")).
		RegisterRoutes(mux, h.guard)

	upload.NewHandler(h.opts.Uploader, h.logger.Component("upload")).
		RegisterRoutes(mux)

	mux.HandleFunc("/", notFound)

	// 中间件链（外→内）：recover → 日志 → 指标 → CORS → 路由
	var handler http.Handler = mux
	handler = h.corsMiddleware(handler)
	handler = h.metrics.MetricsMiddleware(handler)
	handler = h.loggingMiddleware(handler)
	handler = h.recoverMiddleware(handler)
	return handler
}
