// Package upload 图片上传 - HTTP 处理
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"bookstore-api/internal/apiserver/httputil"
	"bookstore-api/pkg/logging"

	"github.com/google/uuid"
)

// MaxImageBytes 单张图片上限
const MaxImageBytes = 5 << 20

// Uploader 对象存储写入接口（objstore.Client 实现）
type Uploader interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
}

// Handler 上传处理器
type Handler struct {
	uploader Uploader
	now      func() time.Time
	logger   *logging.Logger
}

// NewHandler 创建上传处理器，uploader 为 nil 时接口返回 503
func NewHandler(uploader Uploader, logger *logging.Logger) *Handler {
	return &Handler{uploader: uploader, now: time.Now, logger: logger}
}

// RegisterRoutes 注册上传路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/upload", h.Upload)
}

// Upload 上传图片（multipart 字段 image）
// POST /api/upload
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.uploader == nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, "image storage is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxImageBytes+(64<<10))
	file, header, err := r.FormFile("image")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httputil.WriteError(w, http.StatusBadRequest, "image must be at most 5 MB")
			return
		}
		httputil.WriteError(w, http.StatusBadRequest, "no image provided")
		return
	}
	defer file.Close()

	if header.Size > MaxImageBytes {
		httputil.WriteError(w, http.StatusBadRequest, "image must be at most 5 MB")
		return
	}

	// 以文件内容判断类型，不信任客户端声明
	sniff := make([]byte, 512)
	n, _ := io.ReadFull(file, sniff)
	contentType := http.DetectContentType(sniff[:n])
	if !strings.HasPrefix(contentType, "image/") {
		httputil.WriteError(w, http.StatusBadRequest, "only image files are allowed")
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid upload")
		return
	}

	key := h.objectKey(header.Filename)
	if err := h.uploader.Upload(r.Context(), key, file, header.Size, contentType); err != nil {
		h.logger.WithError(err).Error("Image upload failed", "key", key)
		httputil.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message":  "Image Uploaded",
		"filename": key,
	})
}

// objectKey images/<时间戳>-<随机串>-<原文件名>
func (h *Handler) objectKey(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		if r == ' ' || r == '/' || r == ':' {
			return '-'
		}
		return r
	}, name)
	if name == "." || name == "" {
		name = "image"
	}
	stamp := h.now().UTC().Format("2006-01-02T15-04-05.000Z")
	return fmt.Sprintf("images/%s-%s-%s", stamp, uuid.NewString()[:8], name)
}
