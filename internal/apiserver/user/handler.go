// Package user 用户资料管理 - HTTP 处理
package user

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"bookstore-api/internal/apiserver/auth"
	"bookstore-api/internal/apiserver/httputil"
	"bookstore-api/internal/apiserver/validation"
	"bookstore-api/internal/shared/model"
	"bookstore-api/internal/shared/storage"
	"bookstore-api/pkg/logging"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Handler 用户 HTTP 处理器
type Handler struct {
	store  storage.UserStore
	cfg    auth.Config
	logger *logging.Logger
}

// NewHandler 创建用户处理器
func NewHandler(store storage.UserStore, cfg auth.Config, logger *logging.Logger) *Handler {
	return &Handler{store: store, cfg: cfg, logger: logger}
}

// RegisterRoutes 注册用户路由，全部需要认证
func (h *Handler) RegisterRoutes(mux *http.ServeMux, guard *auth.Guard) {
	mux.Handle("GET /api/users", guard.AdminOnly(http.HandlerFunc(h.List)))
	mux.Handle("GET /api/users/{id}", guard.OwnerOrAdmin(http.HandlerFunc(h.Get)))
	mux.Handle("PUT /api/users/{id}", guard.OwnerOrAdmin(http.HandlerFunc(h.Update)))
	mux.Handle("DELETE /api/users/{id}", guard.OwnerOrAdmin(http.HandlerFunc(h.Delete)))
}

// UpdateInput 资料更新请求，未出现的字段保持不变
type UpdateInput struct {
	UserName *string `json:"userName" validate:"omitnil,min=3,max=21"`
	Email    *string `json:"email" validate:"omitnil,looseemail"`
	Password *string `json:"password" validate:"omitnil,min=8"`
}

// List 用户列表（新注册在前）
// GET /api/users
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		h.fail(w, "list", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, users)
}

// Get 获取用户
// GET /api/users/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		h.fail(w, "get", auth.ErrUserNotFound)
		return
	}
	u, err := h.store.GetUserByID(r.Context(), id)
	if err != nil {
		h.fail(w, "get", err)
		return
	}
	if u == nil {
		h.fail(w, "get", auth.ErrUserNotFound)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}

// Update 更新用户资料
// PUT /api/users/{id}
//
// 修改密码会递增 token_version，已发出的重置链接随之失效。
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var in UpdateInput
	if err := httputil.DecodeJSON(w, r, &in); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	trim(in.UserName)
	trim(in.Email)
	if err := validation.Struct(in); err != nil {
		h.fail(w, "update", err)
		return
	}

	id, ok := parseID(r)
	if !ok {
		h.fail(w, "update", auth.ErrUserNotFound)
		return
	}

	update := model.UserUpdate{UserName: in.UserName, Email: in.Email}
	if in.Password != nil {
		hash, err := auth.HashPassword(*in.Password, h.cfg.BcryptCost)
		if err != nil {
			h.fail(w, "update", err)
			return
		}
		update.PasswordHash = &hash
	}

	if update.Empty() {
		h.Get(w, r)
		return
	}

	u, err := h.store.UpdateUser(r.Context(), id, update)
	if err != nil {
		h.fail(w, "update", err)
		return
	}
	if in.Password != nil {
		h.logger.AuthEventLog("password_change", "success", "user_id", u.ID.Hex())
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}

// Delete 删除用户
// DELETE /api/users/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		h.fail(w, "delete", auth.ErrUserNotFound)
		return
	}
	if err := h.store.DeleteUser(r.Context(), id); err != nil {
		h.fail(w, "delete", err)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, "User has been deleted successfully")
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		err = auth.ErrUserNotFound
	case errors.Is(err, storage.ErrDuplicate):
		err = auth.ErrDuplicateUser
	}
	status := auth.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		h.logger.WithError(err).Error(fmt.Sprintf("User %s failed", op))
	}
	httputil.WriteError(w, status, auth.PublicMessage(err))
}

func parseID(r *http.Request) (bson.ObjectID, bool) {
	id, err := bson.ObjectIDFromHex(r.PathValue("id"))
	return id, err == nil
}

func trim(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}
