package auth

import (
	"net/http"

	"bookstore-api/internal/apiserver/httputil"
	"bookstore-api/internal/shared/model"
	"bookstore-api/pkg/logging"
)

// Handler 认证 HTTP 处理器
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

// NewHandler 创建认证处理器
func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes 注册认证相关路由
// throttle 非 nil 时包裹登录接口（限流）
func (h *Handler) RegisterRoutes(mux *http.ServeMux, throttle func(http.Handler) http.Handler) {
	mux.HandleFunc("POST /api/auth/register", h.Register)

	login := http.Handler(http.HandlerFunc(h.Login))
	if throttle != nil {
		login = throttle(login)
	}
	mux.Handle("POST /api/auth/login", login)
}

// sessionResponse 用户公开字段与令牌平铺在同一层
type sessionResponse struct {
	*model.User
	Token string `json:"token"`
}

// Register 用户注册
// POST /api/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in RegisterInput
	if err := httputil.DecodeJSON(w, r, &in); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := h.svc.Register(r.Context(), in)
	if err != nil {
		h.fail(w, "register", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, sessionResponse{User: sess.User, Token: sess.Token})
}

// Login 用户登录
// POST /api/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in LoginInput
	if err := httputil.DecodeJSON(w, r, &in); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := h.svc.Login(r.Context(), in)
	if err != nil {
		h.fail(w, "login", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sessionResponse{User: sess.User, Token: sess.Token})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		h.logger.WithError(err).Error("Auth request failed", "op", op)
	}
	httputil.WriteError(w, status, PublicMessage(err))
}
