package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// User 用户
type User struct {
	ID           bson.ObjectID `json:"id" bson:"_id"`
	UserName     string        `json:"userName" bson:"user_name"`
	Email        string        `json:"email" bson:"email"`
	PasswordHash string        `json:"-" bson:"password_hash"` // never expose in JSON
	IsAdmin      bool          `json:"isAdmin" bson:"is_admin"`
	TokenVersion int64         `json:"-" bson:"token_version"` // 每次修改密码递增
	CreatedAt    time.Time     `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time     `json:"updatedAt" bson:"updated_at"`
}

// UserUpdate 用户部分更新
//
// nil 字段保持不变。PasswordHash 非 nil 时 token_version 自增，
// 之前签发的重置链接随之失效。
type UserUpdate struct {
	UserName     *string
	Email        *string
	PasswordHash *string

	// ExpectedVersion 非 nil 时仅在 token_version 等于该值时更新，
	// 否则返回 storage.ErrConflict
	ExpectedVersion *int64
}

// Empty 是否没有任何待更新字段
func (u UserUpdate) Empty() bool {
	return u.UserName == nil && u.Email == nil && u.PasswordHash == nil
}
