package password

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"bookstore-api/internal/apiserver/auth"
	"bookstore-api/internal/apiserver/httputil"
	"bookstore-api/pkg/logging"
)

//go:embed views/*.html
var viewsFS embed.FS

var views = template.Must(template.ParseFS(viewsFS, "views/*.html"))

// Handler 密码找回 HTTP 处理器
//
// 浏览器访问返回 HTML 页面；Accept 或 Content-Type 为 JSON 时返回 JSON。
// 错误响应始终为 JSON。
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

// NewHandler 创建密码找回处理器
func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes 注册密码找回路由
// throttle 非 nil 时包裹申请重置链接接口
func (h *Handler) RegisterRoutes(mux *http.ServeMux, throttle func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /password/forgot-password", h.ForgotView)

	forgot := http.Handler(http.HandlerFunc(h.Forgot))
	if throttle != nil {
		forgot = throttle(forgot)
	}
	mux.Handle("POST /password/forgot-password", forgot)

	mux.HandleFunc("GET /password/reset-password/{userId}/{token}", h.ResetView)
	mux.HandleFunc("POST /password/reset-password/{userId}/{token}", h.Reset)
	// 令牌段为空
	mux.HandleFunc("GET /password/reset-password/{userId}/{$}", h.ResetView)
	mux.HandleFunc("POST /password/reset-password/{userId}/{$}", h.Reset)
}

// ForgotView 找回密码页面
// GET /password/forgot-password
func (h *Handler) ForgotView(w http.ResponseWriter, r *http.Request) {
	h.render(w, "forgot-password.html", nil)
}

// Forgot 申请重置链接
// POST /password/forgot-password
func (h *Handler) Forgot(w http.ResponseWriter, r *http.Request) {
	var in ForgotInput
	if err := decodeBody(w, r, &in, func(form url.Values) { in.Email = form.Get("email") }); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	link, err := h.svc.RequestReset(r.Context(), in)
	if err != nil {
		h.fail(w, "forgot", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message":           "Click on the link",
		"resetPasswordLink": link,
	})
}

// ResetView 重置密码页面
// GET /password/reset-password/{userId}/{token}
func (h *Handler) ResetView(w http.ResponseWriter, r *http.Request) {
	email, err := h.svc.VerifyResetToken(r.Context(), r.PathValue("userId"), r.PathValue("token"))
	if err != nil {
		h.fail(w, "reset_view", err)
		return
	}
	if httputil.WantsJSON(r) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"email": email})
		return
	}
	h.render(w, "reset-password.html", struct{ Email string }{Email: email})
}

// Reset 提交新密码
// POST /password/reset-password/{userId}/{token}
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	var in ResetInput
	if err := decodeBody(w, r, &in, func(form url.Values) { in.Password = form.Get("password") }); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.ResetPassword(r.Context(), r.PathValue("userId"), r.PathValue("token"), in); err != nil {
		h.fail(w, "reset", err)
		return
	}
	if httputil.WantsJSON(r) {
		httputil.WriteMessage(w, http.StatusOK, "password has been reset")
		return
	}
	h.render(w, "success-password.html", nil)
}

// render 先渲染到缓冲区，模板出错时不会写出半个页面
func (h *Handler) render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := views.ExecuteTemplate(&buf, name, data); err != nil {
		h.logger.WithError(err).Error("Render view failed", "view", name)
		httputil.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	status := auth.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		h.logger.WithError(err).Error("Password request failed", "op", op)
	}
	httputil.WriteError(w, status, auth.PublicMessage(err))
}

// decodeBody 解析 JSON 或表单请求体
func decodeBody(w http.ResponseWriter, r *http.Request, v any, fromForm func(url.Values)) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return httputil.DecodeJSON(w, r, v)
	}
	r.Body = http.MaxBytesReader(w, r.Body, httputil.MaxBodyBytes)
	if err := r.ParseForm(); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errors.New("request body too large")
		}
		return errors.New("invalid request body")
	}
	fromForm(r.PostForm)
	return nil
}
