// Package author 作者领域 - HTTP 处理
package author

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"bookstore-api/internal/apiserver/auth"
	"bookstore-api/internal/apiserver/httputil"
	"bookstore-api/internal/apiserver/validation"
	"bookstore-api/internal/shared/model"
	"bookstore-api/internal/shared/storage"
	"bookstore-api/pkg/logging"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// DefaultPerPage 作者列表默认每页条数
const DefaultPerPage = 2

const msgNotFound = "Author Not Found"

// Handler 作者 HTTP 处理器
type Handler struct {
	store   storage.AuthorStore
	perPage int
	logger  *logging.Logger
}

// NewHandler 创建作者处理器，perPage <= 0 时使用 DefaultPerPage
func NewHandler(store storage.AuthorStore, perPage int, logger *logging.Logger) *Handler {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	return &Handler{store: store, perPage: perPage, logger: logger}
}

// RegisterRoutes 注册作者路由：读接口公开，写接口仅管理员
func (h *Handler) RegisterRoutes(mux *http.ServeMux, guard *auth.Guard) {
	mux.HandleFunc("GET /api/authors", h.List)
	mux.HandleFunc("GET /api/authors/{id}", h.Get)
	mux.Handle("POST /api/authors", guard.AdminOnly(http.HandlerFunc(h.Create)))
	mux.Handle("PUT /api/authors/{id}", guard.AdminOnly(http.HandlerFunc(h.Update)))
	mux.Handle("DELETE /api/authors/{id}", guard.AdminOnly(http.HandlerFunc(h.Delete)))
}

// Input 创建/更新作者的请求体
type Input struct {
	FirstName   string `json:"firstName" validate:"required,min=3,max=200"`
	LastName    string `json:"lastName" validate:"required,min=3,max=200"`
	Nationality string `json:"nationality" validate:"required,min=3,max=200"`
	Image       string `json:"image" validate:"omitempty,min=3,max=200"`
}

func (in *Input) normalize() {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Nationality = strings.TrimSpace(in.Nationality)
	in.Image = strings.TrimSpace(in.Image)
}

// List 作者列表
// GET /api/authors?page=N
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	authors, err := h.store.ListAuthors(r.Context(), httputil.PageParam(r, h.perPage), h.perPage)
	if err != nil {
		h.fail(w, "list", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, authors)
}

// Get 获取作者
// GET /api/authors/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := bson.ObjectIDFromHex(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, msgNotFound)
		return
	}
	a, err := h.store.GetAuthor(r.Context(), id)
	if err != nil {
		h.fail(w, "get", err)
		return
	}
	if a == nil {
		httputil.WriteError(w, http.StatusNotFound, msgNotFound)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

// Create 创建作者
// POST /api/authors
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}

	now := time.Now()
	a := &model.Author{
		ID:          bson.NewObjectID(),
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Nationality: in.Nationality,
		Image:       imageOrDefault(in.Image),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.store.CreateAuthor(r.Context(), a); err != nil {
		h.fail(w, "create", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, a)
}

// Update 更新作者
// PUT /api/authors/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	id, err := bson.ObjectIDFromHex(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, msgNotFound)
		return
	}

	a := &model.Author{
		ID:          id,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Nationality: in.Nationality,
		Image:       imageOrDefault(in.Image),
	}
	if err := h.store.UpdateAuthor(r.Context(), a); err != nil {
		h.fail(w, "update", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

// Delete 删除作者
// DELETE /api/authors/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := bson.ObjectIDFromHex(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, msgNotFound)
		return
	}
	if err := h.store.DeleteAuthor(r.Context(), id); err != nil {
		h.fail(w, "delete", err)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, "Author has been deleted")
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (Input, bool) {
	var in Input
	if err := httputil.DecodeJSON(w, r, &in); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return in, false
	}
	in.normalize()
	if err := validation.Struct(in); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return in, false
	}
	return in, true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteError(w, http.StatusNotFound, msgNotFound)
		return
	}
	h.logger.WithError(err).Error("Author request failed", "op", op)
	httputil.WriteError(w, http.StatusInternalServerError, "internal error")
}

func imageOrDefault(image string) string {
	if image == "" {
		return model.DefaultAuthorImage
	}
	return image
}
