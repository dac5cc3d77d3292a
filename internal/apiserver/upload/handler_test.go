package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"bookstore-api/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngHeader 足以让 DetectContentType 识别为 image/png
var pngHeader = []byte("\x89PNG\r\n\x1a\n0000IHDR")

type fakeUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	err     error
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeUploader) Upload(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	if f.err != nil {
		return f.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	f.types[key] = contentType
	return nil
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func post(h *Handler, body io.Reader, contentType string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	r := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	r.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	return w
}

func TestUpload_Success(t *testing.T) {
	up := newFakeUploader()
	h := NewHandler(up, logging.Nop())
	h.now = func() time.Time { return time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC) }

	body, ct := multipartBody(t, "image", "my cover.png", pngHeader)
	w := post(h, body, ct)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "Image Uploaded", resp["message"])
	assert.True(t, strings.HasPrefix(resp["filename"], "images/2025-03-01T12-30-00.000Z-"), resp["filename"])
	assert.True(t, strings.HasSuffix(resp["filename"], "-my-cover.png"), resp["filename"])

	assert.Equal(t, pngHeader, up.objects[resp["filename"]])
	assert.Equal(t, "image/png", up.types[resp["filename"]])
}

func TestUpload_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		content []byte
	}{
		{"wrong field", "file", pngHeader},
		{"not an image", "image", []byte("plain text pretending to be an image")},
		{"too large", "image", append(append([]byte{}, pngHeader...), make([]byte, MaxImageBytes+1)...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := newFakeUploader()
			body, ct := multipartBody(t, tt.field, "x.png", tt.content)
			w := post(NewHandler(up, logging.Nop()), body, ct)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Empty(t, up.objects)
		})
	}
}

func TestUpload_PathTraversalName(t *testing.T) {
	up := newFakeUploader()
	body, ct := multipartBody(t, "image", "../../etc/passwd.png", pngHeader)
	w := post(NewHandler(up, logging.Nop()), body, ct)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.NotContains(t, resp["filename"], "..")
	assert.Equal(t, 1, strings.Count(resp["filename"], "/"))
}

func TestUpload_NotConfigured(t *testing.T) {
	body, ct := multipartBody(t, "image", "x.png", pngHeader)
	w := post(NewHandler(nil, logging.Nop()), body, ct)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestUpload_StorageFailure(t *testing.T) {
	up := newFakeUploader()
	up.err = errors.New("bucket unavailable")
	body, ct := multipartBody(t, "image", "x.png", pngHeader)
	w := post(NewHandler(up, logging.Nop()), body, ct)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
