package server

import (
	"fmt"
	"math"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"bookstore-api/internal/apiserver/httputil"
	"bookstore-api/internal/shared/cache"
)

const msgTooManyRequests = "too many requests, please try again later"

// recoverMiddleware 捕获 panic 并返回 500
func (h *Handler) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				h.logger.Error("Panic recovered",
					"method", r.Method,
					"path", r.URL.Path,
					"panic", fmt.Sprint(rec),
					"stack", string(debug.Stack()),
				)
				httputil.WriteError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware 记录请求日志
func (h *Handler) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := wrapResponseWriter(w)
		next.ServeHTTP(wrapped, r)
		h.logger.HTTPRequestLog(r.Method, r.URL.Path, wrapped.statusCode, time.Since(start), httputil.ClientIP(r, h.opts.TrustedProxies))
	})
}

// corsMiddleware 添加 CORS 头支持跨域请求
func (h *Handler) corsMiddleware(next http.Handler) http.Handler {
	allowHeaders := "Content-Type, Authorization"
	if th := h.opts.Auth.TokenHeader; th != "" {
		allowHeaders += ", " + th
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", allowHeaders)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// throttle 按 route + 客户端 IP 限流
// 限流后端故障时放行请求
func (h *Handler) throttle(route string, rule cache.Rule) func(http.Handler) http.Handler {
	if !rule.Enabled() {
		return nil
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := route + ":" + httputil.ClientIP(r, h.opts.TrustedProxies)
			res, err := h.opts.Limiter.Allow(r.Context(), key, rule)
			if err != nil {
				h.metrics.LimiterErrorsTotal.Inc()
				h.logger.WithError(err).Warn("Rate limiter unavailable", "route", route)
				next.ServeHTTP(w, r)
				return
			}
			if !res.Allowed {
				h.metrics.RecordRateLimited(route)
				secs := int(math.Ceil(res.RetryAfter.Seconds()))
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				httputil.WriteError(w, http.StatusTooManyRequests, msgTooManyRequests)
				return
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			next.ServeHTTP(w, r)
		})
	}
}

// notFound 未匹配路由
func notFound(w http.ResponseWriter, r *http.Request) {
	httputil.WriteError(w, http.StatusNotFound, "Not Found - "+r.URL.Path)
}
