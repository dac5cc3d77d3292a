// Package memstore 实现基于内存的 PersistentStore
//
// 用于开发环境（database.driver=memory）和单元测试。
// 语义与 mongostore 保持一致：邮箱唯一、Get* 不存在时返回 (nil, nil)。
// 所有读写返回副本，调用方修改返回值不会影响存储内容。
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"bookstore-api/internal/shared/model"
	"bookstore-api/internal/shared/storage"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Store 内存存储
type Store struct {
	mu      sync.RWMutex
	users   map[bson.ObjectID]model.User
	authors map[bson.ObjectID]model.Author
	books   map[bson.ObjectID]model.Book

	now func() time.Time
}

// NewStore 创建内存存储实例
func NewStore() *Store {
	return &Store{
		users:   make(map[bson.ObjectID]model.User),
		authors: make(map[bson.ObjectID]model.Author),
		books:   make(map[bson.ObjectID]model.Book),
		now:     time.Now,
	}
}

// Close 无资源需要释放
func (s *Store) Close() error {
	return nil
}

// ============================================================================
// UserStore
// ============================================================================

func (s *Store) CreateUser(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return storage.ErrDuplicate
	}
	if s.emailTakenLocked(user.Email, bson.NilObjectID) {
		return storage.ErrDuplicate
	}
	s.users[user.ID] = *user
	return nil
}

func (s *Store) GetUserByID(_ context.Context, id bson.ObjectID) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (s *Store) UpdateUser(_ context.Context, id bson.ObjectID, update model.UserUpdate) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if update.ExpectedVersion != nil && u.TokenVersion != *update.ExpectedVersion {
		return nil, storage.ErrConflict
	}
	if update.Email != nil && s.emailTakenLocked(*update.Email, id) {
		return nil, storage.ErrDuplicate
	}

	if update.UserName != nil {
		u.UserName = *update.UserName
	}
	if update.Email != nil {
		u.Email = *update.Email
	}
	if update.PasswordHash != nil {
		u.PasswordHash = *update.PasswordHash
		u.TokenVersion++
	}
	u.UpdatedAt = s.now()
	s.users[id] = u
	return &u, nil
}

func (s *Store) ListUsers(_ context.Context) ([]*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*model.User, 0, len(s.users))
	for _, u := range s.users {
		u := u
		result = append(result, &u)
	}
	sort.Slice(result, func(i, j int) bool {
		return newer(result[i].CreatedAt, result[j].CreatedAt, result[i].ID, result[j].ID)
	})
	return result, nil
}

func (s *Store) DeleteUser(_ context.Context, id bson.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

// emailTakenLocked 邮箱是否已被除 except 之外的用户占用（调用方持有锁）
func (s *Store) emailTakenLocked(email string, except bson.ObjectID) bool {
	for id, u := range s.users {
		if id != except && u.Email == email {
			return true
		}
	}
	return false
}

// newer 按创建时间倒序，时间相同时按 ID 倒序
func newer(a, b time.Time, aID, bID bson.ObjectID) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return aID.Hex() > bID.Hex()
}

// page 对已排序切片做 offset/limit 截取
func page[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

var _ storage.PersistentStore = (*Store)(nil)
