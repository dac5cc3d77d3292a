package mongostore

import (
	"context"
	"time"

	"bookstore-api/internal/shared/model"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ============================================================================
// AuthorStore
// ============================================================================

func (s *Store) CreateAuthor(ctx context.Context, author *model.Author) error {
	return insertOne(ctx, s.col(ColAuthors), author)
}

func (s *Store) GetAuthor(ctx context.Context, id bson.ObjectID) (*model.Author, error) {
	return findOne[model.Author](ctx, s.col(ColAuthors), bson.D{{Key: "_id", Value: id}})
}

func (s *Store) ListAuthors(ctx context.Context, offset, limit int) ([]*model.Author, error) {
	return findMany[model.Author](ctx, s.col(ColAuthors), bson.D{}, pageOptions(offset, limit))
}

// UpdateAuthor 覆盖可编辑字段，created_at 保持不变；成功后 author 被回填为最新文档
func (s *Store) UpdateAuthor(ctx context.Context, author *model.Author) error {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "first_name", Value: author.FirstName},
		{Key: "last_name", Value: author.LastName},
		{Key: "nationality", Value: author.Nationality},
		{Key: "image", Value: author.Image},
		{Key: "updated_at", Value: time.Now()},
	}}}
	return updateAndReturn(ctx, s.col(ColAuthors), bson.D{{Key: "_id", Value: author.ID}}, update, author)
}

func (s *Store) DeleteAuthor(ctx context.Context, id bson.ObjectID) error {
	return deleteByID(ctx, s.col(ColAuthors), id)
}

func (s *Store) InsertAuthors(ctx context.Context, authors []*model.Author) error {
	return insertMany(ctx, s.col(ColAuthors), authors)
}

func (s *Store) DeleteAllAuthors(ctx context.Context) (int64, error) {
	return deleteAll(ctx, s.col(ColAuthors))
}
