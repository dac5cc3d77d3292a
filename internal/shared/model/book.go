package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Cover 封面类型
type Cover string

const (
	CoverSoft Cover = "soft cover"
	CoverHard Cover = "hard cover"
)

// Book 图书（持久化形态，author 只存 ID）
type Book struct {
	ID          bson.ObjectID `json:"id" bson:"_id"`
	Title       string        `json:"title" bson:"title"`
	AuthorID    bson.ObjectID `json:"author" bson:"author"`
	Description string        `json:"description" bson:"description"`
	Price       int64         `json:"price" bson:"price"`
	Cover       Cover         `json:"cover" bson:"cover"`
	CreatedAt   time.Time     `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time     `json:"updatedAt" bson:"updated_at"`
}

// BookDetail 查询接口返回的图书，author 已展开为作者文档
//
// 作者被删除后 Author 为 nil。
type BookDetail struct {
	ID          bson.ObjectID `json:"id" bson:"_id"`
	Title       string        `json:"title" bson:"title"`
	Author      *Author       `json:"author" bson:"author"`
	Description string        `json:"description" bson:"description"`
	Price       int64         `json:"price" bson:"price"`
	Cover       Cover         `json:"cover" bson:"cover"`
	CreatedAt   time.Time     `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time     `json:"updatedAt" bson:"updated_at"`
}

// BookFilter 图书列表过滤条件
type BookFilter struct {
	MinPrice *int64
	MaxPrice *int64
	Offset   int
	Limit    int // 0 表示不限
}

// Matches 判断价格是否落在过滤区间内
func (f BookFilter) Matches(price int64) bool {
	if f.MinPrice != nil && price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && price > *f.MaxPrice {
		return false
	}
	return true
}
