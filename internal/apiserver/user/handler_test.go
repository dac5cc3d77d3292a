package user

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bookstore-api/internal/apiserver/auth"
	"bookstore-api/internal/shared/model"
	"bookstore-api/internal/shared/storage/memstore"
	"bookstore-api/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type env struct {
	mux    *http.ServeMux
	store  *memstore.Store
	tokens *auth.Tokens
	cfg    auth.Config
	alice  *model.User
	bob    *model.User
	admin  *model.User
}

func newEnv(t *testing.T) *env {
	t.Helper()
	cfg := auth.DefaultConfig()
	cfg.JWTSecret = "test-secret"
	tokens := auth.NewTokens(nil)
	store := memstore.NewStore()

	e := &env{mux: http.NewServeMux(), store: store, tokens: tokens, cfg: cfg}
	e.alice = e.seed(t, "alice", "alice@example.com", false, time.Minute)
	e.bob = e.seed(t, "bob", "bob@example.com", false, 2*time.Minute)
	e.admin = e.seed(t, "admin", "admin@example.com", true, 3*time.Minute)

	NewHandler(store, cfg, logging.Nop()).RegisterRoutes(e.mux, auth.NewGuard(cfg, tokens, logging.Nop()))
	return e
}

func (e *env) seed(t *testing.T, name, email string, admin bool, age time.Duration) *model.User {
	t.Helper()
	hash, err := auth.HashPassword("password123", 0)
	require.NoError(t, err)
	u := &model.User{
		ID:           bson.NewObjectID(),
		UserName:     name,
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      admin,
		CreatedAt:    time.Now().Add(-age),
	}
	require.NoError(t, e.store.CreateUser(context.Background(), u))
	return u
}

func (e *env) token(t *testing.T, u *model.User) string {
	t.Helper()
	c := auth.Claims{IsAdmin: u.IsAdmin}
	c.Subject = u.ID.Hex()
	raw, err := e.tokens.Issue(c, []byte(e.cfg.JWTSecret), auth.AudienceSession, time.Hour)
	require.NoError(t, err)
	return raw
}

func (e *env) do(t *testing.T, method, path string, as *model.User, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	if as != nil {
		r.Header.Set("token", e.token(t, as))
	}
	w := httptest.NewRecorder()
	e.mux.ServeHTTP(w, r)
	return w
}

func message(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	msg, _ := body["message"].(string)
	return msg
}

func TestUpdate_Owner(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPut, "/api/users/"+e.alice.ID.Hex(), e.alice, `{"userName":"  alice2  "}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, "alice2", got["userName"])
	assert.Equal(t, "alice@example.com", got["email"])
	assert.NotContains(t, got, "passwordHash")
	assert.NotContains(t, got, "tokenVersion")

	stored, _ := e.store.GetUserByID(context.Background(), e.alice.ID)
	assert.Equal(t, int64(0), stored.TokenVersion, "name change keeps version")
}

func TestUpdate_PasswordBumpsVersion(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPut, "/api/users/"+e.alice.ID.Hex(), e.alice, `{"password":"another-password"}`)
	require.Equal(t, http.StatusOK, w.Code)

	stored, _ := e.store.GetUserByID(context.Background(), e.alice.ID)
	assert.Equal(t, int64(1), stored.TokenVersion)
	assert.True(t, auth.CheckPassword("another-password", stored.PasswordHash))
}

func TestUpdate_Errors(t *testing.T) {
	e := newEnv(t)
	aliceURL := "/api/users/" + e.alice.ID.Hex()

	tests := []struct {
		name       string
		path       string
		as         *model.User
		body       string
		wantStatus int
		wantMsg    string
	}{
		{"no token", aliceURL, nil, `{}`, http.StatusUnauthorized, "no token provided"},
		{"other user", aliceURL, e.bob, `{"userName":"hijack"}`, http.StatusForbidden, "You are not allowed, you can only update your profile"},
		{"short name", aliceURL, e.alice, `{"userName":"ab"}`, http.StatusBadRequest, "userName must be at least 3 characters"},
		{"blank name", aliceURL, e.alice, `{"userName":"   "}`, http.StatusBadRequest, "userName must be at least 3 characters"},
		{"bad email", aliceURL, e.alice, `{"email":"nope"}`, http.StatusBadRequest, "email must be a valid email"},
		{"short password", aliceURL, e.alice, `{"password":"short"}`, http.StatusBadRequest, "password must be at least 8 characters"},
		{"cannot promote", aliceURL, e.alice, `{"isAdmin":true}`, http.StatusBadRequest, `"isAdmin" is not allowed`},
		{"email taken", aliceURL, e.alice, `{"email":"bob@example.com"}`, http.StatusBadRequest, "this user already registered"},
		{"admin on missing user", "/api/users/" + bson.NewObjectID().Hex(), e.admin, `{"userName":"ghost"}`, http.StatusNotFound, "user not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.do(t, http.MethodPut, tt.path, tt.as, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantMsg, message(t, w))
		})
	}
}

func TestUpdate_AdminEditsOthers(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPut, "/api/users/"+e.bob.ID.Hex(), e.admin, `{"email":"bobby@example.com"}`)
	require.Equal(t, http.StatusOK, w.Code)

	stored, _ := e.store.GetUserByID(context.Background(), e.bob.ID)
	assert.Equal(t, "bobby@example.com", stored.Email)
	assert.False(t, stored.IsAdmin)
}

func TestUpdate_EmptyBody(t *testing.T) {
	e := newEnv(t)
	w := e.do(t, http.MethodPut, "/api/users/"+e.alice.ID.Hex(), e.alice, `{}`)
	require.Equal(t, http.StatusOK, w.Code)

	var got map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, "alice", got["userName"])
}

func TestList(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodGet, "/api/users", e.alice, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "only admin allowed", message(t, w))

	w = e.do(t, http.MethodGet, "/api/users", e.admin, "")
	require.Equal(t, http.StatusOK, w.Code)
	var users []map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&users))
	require.Len(t, users, 3)
	assert.Equal(t, "alice", users[0]["userName"], "newest first")
	assert.Equal(t, "admin", users[2]["userName"])
	for _, u := range users {
		assert.NotContains(t, u, "passwordHash")
	}
}

func TestGetAndDelete(t *testing.T) {
	e := newEnv(t)
	aliceURL := "/api/users/" + e.alice.ID.Hex()

	w := e.do(t, http.MethodGet, aliceURL, e.alice, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodGet, aliceURL, e.bob, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodDelete, aliceURL, e.alice, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "User has been deleted successfully", message(t, w))

	w = e.do(t, http.MethodGet, aliceURL, e.admin, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodDelete, aliceURL, e.admin, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
