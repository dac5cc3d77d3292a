package mongostore

import (
	"context"
	"errors"
	"time"

	"bookstore-api/internal/shared/model"
	"bookstore-api/internal/shared/storage"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ============================================================================
// UserStore
// ============================================================================

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	return insertOne(ctx, s.col(ColUsers), user)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return findOne[model.User](ctx, s.col(ColUsers), bson.D{{Key: "email", Value: email}})
}

func (s *Store) GetUserByID(ctx context.Context, id bson.ObjectID) (*model.User, error) {
	return findOne[model.User](ctx, s.col(ColUsers), bson.D{{Key: "_id", Value: id}})
}

// UpdateUser 部分更新
//
// 修改密码时 $inc token_version；ExpectedVersion 作为过滤条件，
// 单条 findOneAndUpdate 保证"校验版本 + 写入"原子完成。
func (s *Store) UpdateUser(ctx context.Context, id bson.ObjectID, update model.UserUpdate) (*model.User, error) {
	set := bson.D{{Key: "updated_at", Value: time.Now()}}
	if update.UserName != nil {
		set = append(set, bson.E{Key: "user_name", Value: *update.UserName})
	}
	if update.Email != nil {
		set = append(set, bson.E{Key: "email", Value: *update.Email})
	}
	if update.PasswordHash != nil {
		set = append(set, bson.E{Key: "password_hash", Value: *update.PasswordHash})
	}

	doc := bson.D{{Key: "$set", Value: set}}
	if update.PasswordHash != nil {
		doc = append(doc, bson.E{Key: "$inc", Value: bson.D{{Key: "token_version", Value: 1}}})
	}

	filter := bson.D{{Key: "_id", Value: id}}
	if update.ExpectedVersion != nil {
		filter = append(filter, bson.E{Key: "token_version", Value: *update.ExpectedVersion})
	}

	var out model.User
	err := updateAndReturn(ctx, s.col(ColUsers), filter, doc, &out)
	if errors.Is(err, storage.ErrNotFound) && update.ExpectedVersion != nil {
		// 区分"用户不存在"与"版本已变化"
		n, cerr := s.col(ColUsers).CountDocuments(ctx, bson.D{{Key: "_id", Value: id}})
		if cerr == nil && n > 0 {
			return nil, storage.ErrConflict
		}
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]*model.User, error) {
	return findMany[model.User](ctx, s.col(ColUsers), bson.D{}, pageOptions(0, 0))
}

func (s *Store) DeleteUser(ctx context.Context, id bson.ObjectID) error {
	return deleteByID(ctx, s.col(ColUsers), id)
}
