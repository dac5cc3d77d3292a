package memstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"bookstore-api/internal/shared/model"
	"bookstore-api/internal/shared/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func newUser(email string, created time.Time) *model.User {
	return &model.User{
		ID:           bson.NewObjectID(),
		UserName:     "user",
		Email:        email,
		PasswordHash: "hash",
		CreatedAt:    created,
		UpdatedAt:    created,
	}
}

func strPtr(s string) *string { return &s }

func TestUserCRUD(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	now := time.Now()

	u := newUser("a@example.com", now)
	require.NoError(t, s.CreateUser(ctx, u))

	got, err := s.GetUserByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)

	// 返回副本
	got.UserName = "changed"
	again, _ := s.GetUserByID(ctx, u.ID)
	assert.Equal(t, "user", again.UserName)

	missing, err := s.GetUserByID(ctx, bson.NewObjectID())
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, s.DeleteUser(ctx, u.ID))
	assert.ErrorIs(t, s.DeleteUser(ctx, u.ID), storage.ErrNotFound)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, newUser("dup@example.com", time.Now())))
	err := s.CreateUser(ctx, newUser("dup@example.com", time.Now()))
	assert.ErrorIs(t, err, storage.ErrDuplicate)
}

func TestCreateUser_ConcurrentSameEmail(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.CreateUser(ctx, newUser("race@example.com", time.Now()))
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, storage.ErrDuplicate)
		}
	}
	assert.Equal(t, 1, ok)
}

func TestUpdateUser(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	a := newUser("a@example.com", time.Now())
	b := newUser("b@example.com", time.Now())
	require.NoError(t, s.CreateUser(ctx, a))
	require.NoError(t, s.CreateUser(ctx, b))

	t.Run("password bumps version", func(t *testing.T) {
		updated, err := s.UpdateUser(ctx, a.ID, model.UserUpdate{PasswordHash: strPtr("new")})
		require.NoError(t, err)
		assert.Equal(t, "new", updated.PasswordHash)
		assert.Equal(t, int64(1), updated.TokenVersion)
	})

	t.Run("name only keeps version", func(t *testing.T) {
		updated, err := s.UpdateUser(ctx, a.ID, model.UserUpdate{UserName: strPtr("alice")})
		require.NoError(t, err)
		assert.Equal(t, "alice", updated.UserName)
		assert.Equal(t, int64(1), updated.TokenVersion)
	})

	t.Run("email taken", func(t *testing.T) {
		_, err := s.UpdateUser(ctx, a.ID, model.UserUpdate{Email: strPtr("b@example.com")})
		assert.ErrorIs(t, err, storage.ErrDuplicate)
	})

	t.Run("own email is not a conflict", func(t *testing.T) {
		_, err := s.UpdateUser(ctx, a.ID, model.UserUpdate{Email: strPtr("a@example.com")})
		assert.NoError(t, err)
	})

	t.Run("version mismatch", func(t *testing.T) {
		stale := int64(0)
		_, err := s.UpdateUser(ctx, a.ID, model.UserUpdate{PasswordHash: strPtr("x"), ExpectedVersion: &stale})
		assert.ErrorIs(t, err, storage.ErrConflict)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := s.UpdateUser(ctx, bson.NewObjectID(), model.UserUpdate{UserName: strPtr("x")})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestListUsers_NewestFirst(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	base := time.Now()

	old := newUser("old@example.com", base.Add(-time.Hour))
	mid := newUser("mid@example.com", base.Add(-time.Minute))
	recent := newUser("new@example.com", base)
	for _, u := range []*model.User{mid, old, recent} {
		require.NoError(t, s.CreateUser(ctx, u))
	}

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, recent.ID, users[0].ID)
	assert.Equal(t, old.ID, users[2].ID)
}

func TestBooks_PopulateAndFilter(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	now := time.Now()

	author := &model.Author{ID: bson.NewObjectID(), FirstName: "Taha", LastName: "Hussein", CreatedAt: now}
	require.NoError(t, s.CreateAuthor(ctx, author))

	var books []*model.Book
	for i, price := range []int64{5, 15, 25} {
		books = append(books, &model.Book{
			ID:        bson.NewObjectID(),
			Title:     "Book",
			AuthorID:  author.ID,
			Price:     price,
			Cover:     model.CoverSoft,
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		})
	}
	require.NoError(t, s.InsertBooks(ctx, books))

	lo := int64(10)
	got, err := s.ListBooks(ctx, model.BookFilter{MinPrice: &lo})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(25), got[0].Price)
	require.NotNil(t, got[0].Author)
	assert.Equal(t, "Taha", got[0].Author.FirstName)

	paged, err := s.ListBooks(ctx, model.BookFilter{Offset: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, int64(5), paged[0].Price)

	// 作者删除后 author 为空
	require.NoError(t, s.DeleteAuthor(ctx, author.ID))
	detail, err := s.GetBook(ctx, books[0].ID)
	require.NoError(t, err)
	assert.Nil(t, detail.Author)

	n, err := s.DeleteAllBooks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestUpdateAuthor_KeepsCreatedAt(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	created := time.Now().Add(-time.Hour)

	a := &model.Author{ID: bson.NewObjectID(), FirstName: "Old", CreatedAt: created}
	require.NoError(t, s.CreateAuthor(ctx, a))

	upd := &model.Author{ID: a.ID, FirstName: "New"}
	require.NoError(t, s.UpdateAuthor(ctx, upd))
	assert.True(t, upd.CreatedAt.Equal(created))
	assert.False(t, upd.UpdatedAt.IsZero())

	assert.ErrorIs(t, s.UpdateAuthor(ctx, &model.Author{ID: bson.NewObjectID()}), storage.ErrNotFound)
}
