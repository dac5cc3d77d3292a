// Package book 图书领域 - HTTP 处理
package book

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

// DefaultPerPage 图书列表默认每页条数
const DefaultPerPage = 10

const msgNotFound = "Book Not Found"

// Handler 图书 HTTP 处理器
type Handler struct {
	books   storage.BookStore
	authors storage.AuthorStore
	perPage int
	logger  *logging.Logger
}

// NewHandler 创建图书处理器，perPage <= 0 时使用 DefaultPerPage
func NewHandler(books storage.BookStore, authors storage.AuthorStore, perPage int, logger *logging.Logger) *Handler {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	return &Handler{books: books, authors: authors, perPage: perPage, logger: logger}
}

// RegisterRoutes 注册图书路由：读接口公开，写接口仅管理员
func (h *Handler) RegisterRoutes(mux *http.ServeMux, guard *auth.Guard) {
	mux.HandleFunc("GET /api/books", h.List)
	mux.HandleFunc("GET /api/books/{id}", h.Get)
	mux.Handle("POST /api/books", guard.AdminOnly(http.HandlerFunc(h.Create)))
	mux.Handle("PUT /api/books/{id}", guard.AdminOnly(http.HandlerFunc(h.Update)))
	mux.Handle("DELETE /api/books/{id}", guard.AdminOnly(http.HandlerFunc(h.Delete)))
}

// Input 创建/更新图书的请求体
type Input struct {
	Title       string `json:"title" validate:"required,min=3,max=250"`
	Author      string `json:"author" validate:"required,objectid"`
	Description string `json:"description" validate:"required,min=3"`
	Price       *int64 `json:"price" validate:"required,min=0"`
	Cover       string `json:"cover" validate:"required,oneof='soft cover' 'hard cover'"`
}

// List 图书列表，支持 ?page=N&minPrice=&maxPrice=
// GET /api/books
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	minPrice, err := httputil.Int64Param(r, "minPrice")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	maxPrice, err := httputil.Int64Param(r, "maxPrice")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	books, err := h.books.ListBooks(r.Context(), model.BookFilter{
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		Offset:   httputil.PageParam(r, h.perPage),
		Limit:    h.perPage,
	})
	if err != nil {
		h.fail(w, "list", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, books)
}

// Get 获取图书（author 已展开）
// GET /api/books/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := bson.ObjectIDFromHex(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, msgNotFound)
		return
	}
	b, err := h.books.GetBook(r.Context(), id)
	if err != nil {
		h.fail(w, "get", err)
		return
	}
	if b == nil {
		httputil.WriteError(w, http.StatusNotFound, msgNotFound)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, b)
}

// Create 创建图书
// POST /api/books
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	b, ok := h.decode(w, r)
	if !ok {
		return
	}

	now := time.Now()
	b.ID = bson.NewObjectID()
	b.CreatedAt = now
	b.UpdatedAt = now
	if err := h.books.CreateBook(r.Context(), b); err != nil {
		h.fail(w, "create", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, b)
}

// Update 更新图书（整体替换可编辑字段）
// PUT /api/books/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	b, ok := h.decode(w, r)
	if !ok {
		return
	}
	id, err := bson.ObjectIDFromHex(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, msgNotFound)
		return
	}

	b.ID = id
	if err := h.books.UpdateBook(r.Context(), b); err != nil {
		h.fail(w, "update", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, b)
}

// Delete 删除图书
// DELETE /api/books/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := bson.ObjectIDFromHex(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, msgNotFound)
		return
	}
	if err := h.books.DeleteBook(r.Context(), id); err != nil {
		h.fail(w, "delete", err)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, "Book has been deleted")
}

// decode 解析并校验请求体，作者必须存在
func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (*model.Book, bool) {
	var in Input
	if err := httputil.DecodeJSON(w, r, &in); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if err := validation.Struct(in); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	authorID, _ := bson.ObjectIDFromHex(in.Author)
	a, err := h.authors.GetAuthor(r.Context(), authorID)
	if err != nil {
		h.fail(w, "lookup author", err)
		return nil, false
	}
	if a == nil {
		httputil.WriteError(w, http.StatusBadRequest, "author does not exist")
		return nil, false
	}

	return &model.Book{
		Title:       in.Title,
		AuthorID:    authorID,
		Description: in.Description,
		Price:       *in.Price,
		Cover:       model.Cover(in.Cover),
	}, true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteError(w, http.StatusNotFound, msgNotFound)
		return
	}
	h.logger.WithError(err).Error("Book request failed", "op", op)
	httputil.WriteError(w, http.StatusInternalServerError, "internal error")
}
