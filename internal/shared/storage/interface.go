// Package storage 定义持久化存储层抽象接口
//
// 设计原则：依赖倒置 (DIP)
//   - 调用方只依赖接口，不知道具体实现
//   - 具体实现在子包中：mongostore/, memstore/
//   - 初始化时通过依赖注入传入实现
//
// 查询约定：Get* 在实体不存在时返回 (nil, nil)；
// Update*/Delete* 在实体不存在时返回 ErrNotFound。
package storage

import (
	"context"

	"bookstore-api/internal/shared/model"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// UserStore 用户存储接口
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id bson.ObjectID) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	// UpdateUser 部分更新并返回更新后的用户
	UpdateUser(ctx context.Context, id bson.ObjectID, update model.UserUpdate) (*model.User, error)
	ListUsers(ctx context.Context) ([]*model.User, error)
	DeleteUser(ctx context.Context, id bson.ObjectID) error
}

// AuthorStore 作者存储接口
type AuthorStore interface {
	CreateAuthor(ctx context.Context, author *model.Author) error
	GetAuthor(ctx context.Context, id bson.ObjectID) (*model.Author, error)
	ListAuthors(ctx context.Context, offset, limit int) ([]*model.Author, error)
	UpdateAuthor(ctx context.Context, author *model.Author) error
	DeleteAuthor(ctx context.Context, id bson.ObjectID) error

	// 批量接口（数据填充用）
	InsertAuthors(ctx context.Context, authors []*model.Author) error
	DeleteAllAuthors(ctx context.Context) (int64, error)
}

// BookStore 图书存储接口
//
// 读接口返回 BookDetail，author 字段已展开。
type BookStore interface {
	CreateBook(ctx context.Context, book *model.Book) error
	GetBook(ctx context.Context, id bson.ObjectID) (*model.BookDetail, error)
	ListBooks(ctx context.Context, filter model.BookFilter) ([]*model.BookDetail, error)
	UpdateBook(ctx context.Context, book *model.Book) error
	DeleteBook(ctx context.Context, id bson.ObjectID) error

	InsertBooks(ctx context.Context, books []*model.Book) error
	DeleteAllBooks(ctx context.Context) (int64, error)
}

// PersistentStore 持久化存储组合接口
type PersistentStore interface {
	UserStore
	AuthorStore
	BookStore
	Close() error
}
