package mongostore

import (
	"context"
	"time"

	"bookstore-api/internal/shared/model"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// ============================================================================
// BookStore
// ============================================================================

func (s *Store) CreateBook(ctx context.Context, book *model.Book) error {
	return insertOne(ctx, s.col(ColBooks), book)
}

func (s *Store) GetBook(ctx context.Context, id bson.ObjectID) (*model.BookDetail, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "_id", Value: id}}}},
		{{Key: "$limit", Value: 1}},
	}
	books, err := aggregate[model.BookDetail](ctx, s.col(ColBooks), append(pipeline, populateAuthor()...))
	if err != nil {
		return nil, err
	}
	if len(books) == 0 {
		return nil, nil
	}
	return books[0], nil
}

// ListBooks 按价格过滤并分页，作者通过 $lookup 展开
func (s *Store) ListBooks(ctx context.Context, filter model.BookFilter) ([]*model.BookDetail, error) {
	match := bson.D{}
	price := bson.D{}
	if filter.MinPrice != nil {
		price = append(price, bson.E{Key: "$gte", Value: *filter.MinPrice})
	}
	if filter.MaxPrice != nil {
		price = append(price, bson.E{Key: "$lte", Value: *filter.MaxPrice})
	}
	if len(price) > 0 {
		match = append(match, bson.E{Key: "price", Value: price})
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}}},
	}
	if filter.Offset > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$skip", Value: int64(filter.Offset)}})
	}
	if filter.Limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: int64(filter.Limit)}})
	}
	return aggregate[model.BookDetail](ctx, s.col(ColBooks), append(pipeline, populateAuthor()...))
}

// UpdateBook 覆盖可编辑字段，成功后 book 被回填为最新文档
func (s *Store) UpdateBook(ctx context.Context, book *model.Book) error {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "title", Value: book.Title},
		{Key: "author", Value: book.AuthorID},
		{Key: "description", Value: book.Description},
		{Key: "price", Value: book.Price},
		{Key: "cover", Value: book.Cover},
		{Key: "updated_at", Value: time.Now()},
	}}}
	return updateAndReturn(ctx, s.col(ColBooks), bson.D{{Key: "_id", Value: book.ID}}, update, book)
}

func (s *Store) DeleteBook(ctx context.Context, id bson.ObjectID) error {
	return deleteByID(ctx, s.col(ColBooks), id)
}

func (s *Store) InsertBooks(ctx context.Context, books []*model.Book) error {
	return insertMany(ctx, s.col(ColBooks), books)
}

func (s *Store) DeleteAllBooks(ctx context.Context) (int64, error) {
	return deleteAll(ctx, s.col(ColBooks))
}

// populateAuthor 用 authors 文档替换 author 字段；作者不存在时字段被移除
func populateAuthor() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: ColAuthors},
			{Key: "localField", Value: "author"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "author"},
		}}},
		{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$author"},
			{Key: "preserveNullAndEmptyArrays", Value: true},
		}}},
	}
}
