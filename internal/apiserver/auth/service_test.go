package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bookstore-api/internal/shared/model"
	"bookstore-api/internal/shared/storage"
	"bookstore-api/internal/shared/storage/memstore"
	"bookstore-api/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const testSecret = "test-secret"

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWTSecret = testSecret
	return cfg
}

// recorder 记录认证事件
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) RecordAuthEvent(event, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event+":"+outcome)
}

func newTestService(t *testing.T) (*Service, *memstore.Store, *fakeClock) {
	t.Helper()
	store := memstore.NewStore()
	clock := newClock()
	svc := NewService(store, testConfig(), NewTokens(clock.Now), logging.Nop())
	return svc, store, clock
}

func TestRegister_ThenLogin(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	rec := &recorder{}
	svc.SetEventRecorder(rec)

	sess, err := svc.Register(ctx, RegisterInput{UserName: "  alice  ", Email: " alice@example.com ", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "alice", sess.User.UserName)
	assert.Equal(t, "alice@example.com", sess.User.Email)
	assert.False(t, sess.User.IsAdmin)
	assert.NotEqual(t, "password123", sess.User.PasswordHash)

	claims, err := svc.tokens.Verify(sess.Token, []byte(testSecret), AudienceSession)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID.Hex(), claims.Subject)
	assert.False(t, claims.IsAdmin)
	assert.Equal(t, 30*24*time.Hour, claims.ExpiresAt.Sub(claims.IssuedAt.Time))

	login, err := svc.Login(ctx, LoginInput{Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, login.User.ID)

	assert.Equal(t, []string{"register:success", "login:success"}, rec.events)
}

func TestRegister_Validation(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		in    RegisterInput
		field string
	}{
		{"short name", RegisterInput{UserName: "al", Email: "a@b.co", Password: "password123"}, "userName"},
		{"blank name after trim", RegisterInput{UserName: "   ", Email: "a@b.co", Password: "password123"}, "userName"},
		{"long name", RegisterInput{UserName: "abcdefghijklmnopqrstuv", Email: "a@b.co", Password: "password123"}, "userName"},
		{"bad email", RegisterInput{UserName: "alice", Email: "alice", Password: "password123"}, "email"},
		{"short password", RegisterInput{UserName: "alice", Email: "a@b.co", Password: "short"}, "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.in)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	users, _ := store.ListUsers(ctx)
	assert.Empty(t, users, "validation failures must not write")
}

func TestRegister_Duplicate(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{UserName: "alice", Email: "dup@example.com", Password: "password123"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{UserName: "alice2", Email: "dup@example.com", Password: "password456"})
	assert.ErrorIs(t, err, ErrDuplicateUser)

	users, _ := store.ListUsers(ctx)
	assert.Len(t, users, 1)
}

func TestRegister_ConcurrentSameEmail(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	const n = 5
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Register(ctx, RegisterInput{UserName: "racer", Email: "race@example.com", Password: "password123"})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrDuplicateUser)
	}
	assert.Equal(t, 1, succeeded)

	users, _ := store.ListUsers(ctx)
	assert.Len(t, users, 1)
}

func TestLogin_IndistinguishableFailures(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{UserName: "alice", Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)

	_, unknownErr := svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "password123"})
	_, wrongErr := svc.Login(ctx, LoginInput{Email: "alice@example.com", Password: "wrong-password"})

	assert.ErrorIs(t, unknownErr, ErrInvalidCredentials)
	assert.ErrorIs(t, wrongErr, ErrInvalidCredentials)
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())
	assert.Equal(t, HTTPStatus(unknownErr), HTTPStatus(wrongErr))
}

func TestLogin_Validation(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Login(context.Background(), LoginInput{Email: "bad", Password: "password123"})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "email", verr.Field)
}

func TestService_MissingSecret(t *testing.T) {
	store := memstore.NewStore()
	svc := NewService(store, DefaultConfig(), NewTokens(nil), logging.Nop())
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{UserName: "alice", Email: "a@b.co", Password: "password123"})
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Equal(t, 500, HTTPStatus(err))

	users, _ := store.ListUsers(ctx)
	assert.Empty(t, users)
}

// failingStore 模拟存储故障
type failingStore struct {
	storage.UserStore
}

func (failingStore) GetUserByEmail(context.Context, string) (*model.User, error) {
	return nil, errors.New("connection reset")
}

func TestRegister_StoreFailure(t *testing.T) {
	svc := NewService(failingStore{UserStore: memstore.NewStore()}, testConfig(), NewTokens(nil), logging.Nop())

	_, err := svc.Register(context.Background(), RegisterInput{UserName: "alice", Email: "a@b.co", Password: "password123"})
	require.Error(t, err)
	assert.Equal(t, 500, HTTPStatus(err))
	assert.Equal(t, "internal error", PublicMessage(err))
}

func TestEnsureAdmin(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "", ""))
	users, _ := store.ListUsers(ctx)
	assert.Empty(t, users)

	require.NoError(t, svc.EnsureAdmin(ctx, "admin@example.com", "admin-password"))
	admin, err := store.GetUserByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.True(t, admin.IsAdmin)

	// 幂等
	require.NoError(t, svc.EnsureAdmin(ctx, "admin@example.com", "admin-password"))
	users, _ = store.ListUsers(ctx)
	assert.Len(t, users, 1)

	sess, err := svc.Login(ctx, LoginInput{Email: "admin@example.com", Password: "admin-password"})
	require.NoError(t, err)
	claims, err := svc.tokens.Verify(sess.Token, []byte(testSecret), AudienceSession)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin)
}

func TestEnsureAdmin_RejectsUnusableAccount(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		wantMsg  string
	}{
		{"short password", "admin@example.com", "admin", "password must be at least 8 characters"},
		{"malformed email", "admin", "admin-password", "email must be a valid email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _ := newTestService(t)
			ctx := context.Background()

			err := svc.EnsureAdmin(ctx, tt.email, tt.password)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantMsg, verr.Message)

			users, _ := store.ListUsers(ctx)
			assert.Empty(t, users)
		})
	}
}

func TestEnsureAdmin_TrimsEmail(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "  admin@example.com\n", "admin-password"))
	admin, err := store.GetUserByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	require.NotNil(t, admin)

	_, err = svc.Login(ctx, LoginInput{Email: "admin@example.com", Password: "admin-password"})
	require.NoError(t, err)
}

// seedUser 直接写入存储，返回用户
func seedUser(t *testing.T, store storage.UserStore, email string, admin bool) *model.User {
	t.Helper()
	hash, err := HashPassword("password123", 0)
	require.NoError(t, err)
	u := &model.User{
		ID:           bson.NewObjectID(),
		UserName:     "seeded",
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      admin,
		CreatedAt:    time.Now(),
	}
	require.NoError(t, store.CreateUser(context.Background(), u))
	return u
}
