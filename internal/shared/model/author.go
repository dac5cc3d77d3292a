package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// DefaultAuthorImage 作者未上传头像时使用的默认图片
const DefaultAuthorImage = "default-image.png"

// Author 作者
type Author struct {
	ID          bson.ObjectID `json:"id" bson:"_id"`
	FirstName   string        `json:"firstName" bson:"first_name"`
	LastName    string        `json:"lastName" bson:"last_name"`
	Nationality string        `json:"nationality" bson:"nationality"`
	Image       string        `json:"image" bson:"image"`
	CreatedAt   time.Time     `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time     `json:"updatedAt" bson:"updated_at"`
}

// FullName 返回 "名 姓"
func (a *Author) FullName() string {
	return a.FirstName + " " + a.LastName
}
