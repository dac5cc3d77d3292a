// Package seed 示例数据填充：内嵌作者与图书数据，批量写入或清空
package seed

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"bookstore-api/internal/apiserver/validation"
	"bookstore-api/internal/shared/model"
	"bookstore-api/internal/shared/storage"
	"bookstore-api/pkg/logging"

	"go.mongodb.org/mongo-driver/v2/bson"
)

//go:embed data/*.json
var dataFS embed.FS

// Target 填充范围
type Target string

const (
	TargetAll     Target = "all"
	TargetAuthors Target = "authors"
	TargetBooks   Target = "books"
)

// ParseTarget 解析 -only 参数，空串表示全部
func ParseTarget(s string) (Target, error) {
	switch Target(s) {
	case "", TargetAll:
		return TargetAll, nil
	case TargetAuthors, TargetBooks:
		return Target(s), nil
	default:
		return "", fmt.Errorf("unknown target %q (want authors or books)", s)
	}
}

func (t Target) authors() bool { return t == TargetAll || t == TargetAuthors }
func (t Target) books() bool   { return t == TargetAll || t == TargetBooks }

// AuthorFixture 作者样例
type AuthorFixture struct {
	FirstName   string `json:"firstName" validate:"required,min=3,max=200"`
	LastName    string `json:"lastName" validate:"required,min=3,max=200"`
	Nationality string `json:"nationality" validate:"required,min=3,max=200"`
	Image       string `json:"image"`
}

// BookFixture 图书样例，author 为作者全名
type BookFixture struct {
	Title       string `json:"title" validate:"required,min=3,max=250"`
	Author      string `json:"author" validate:"required"`
	Description string `json:"description" validate:"required,min=3"`
	Price       int64  `json:"price" validate:"min=0"`
	Cover       string `json:"cover" validate:"required,oneof='soft cover' 'hard cover'"`
}

// Fixtures 全部样例数据
type Fixtures struct {
	Authors []AuthorFixture
	Books   []BookFixture
}

// LoadFixtures 读取并校验内嵌数据
func LoadFixtures() (*Fixtures, error) {
	f := &Fixtures{}
	if err := readJSON("data/authors.json", &f.Authors); err != nil {
		return nil, err
	}
	if err := readJSON("data/books.json", &f.Books); err != nil {
		return nil, err
	}
	for i := range f.Authors {
		if err := validation.Struct(&f.Authors[i]); err != nil {
			return nil, fmt.Errorf("author fixture %d: %w", i, err)
		}
	}
	for i := range f.Books {
		if err := validation.Struct(&f.Books[i]); err != nil {
			return nil, fmt.Errorf("book fixture %q: %w", f.Books[i].Title, err)
		}
	}
	return f, nil
}

func readJSON(name string, v any) error {
	data, err := dataFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

// Report 本次写入或删除的数量
type Report struct {
	Authors int64
	Books   int64
}

// Seeder 数据填充器
type Seeder struct {
	authors  storage.AuthorStore
	books    storage.BookStore
	fixtures *Fixtures
	now      func() time.Time
	logger   *logging.Logger
}

// NewSeeder 创建数据填充器
func NewSeeder(authors storage.AuthorStore, books storage.BookStore, fixtures *Fixtures, logger *logging.Logger) *Seeder {
	return &Seeder{authors: authors, books: books, fixtures: fixtures, now: time.Now, logger: logger}
}

// Seed 写入样例数据
// 图书按作者全名关联作者，作者需已存在（同批写入或库中已有）
func (s *Seeder) Seed(ctx context.Context, target Target) (Report, error) {
	var rep Report
	now := s.now()

	if target.authors() {
		docs := make([]*model.Author, 0, len(s.fixtures.Authors))
		for i, f := range s.fixtures.Authors {
			image := f.Image
			if image == "" {
				image = model.DefaultAuthorImage
			}
			docs = append(docs, &model.Author{
				ID:          bson.NewObjectID(),
				FirstName:   f.FirstName,
				LastName:    f.LastName,
				Nationality: f.Nationality,
				Image:       image,
				// 保持文件中的顺序：越靠前越新
				CreatedAt: now.Add(-time.Duration(i) * time.Millisecond),
				UpdatedAt: now,
			})
		}
		if err := s.authors.InsertAuthors(ctx, docs); err != nil {
			return rep, fmt.Errorf("insert authors: %w", err)
		}
		rep.Authors = int64(len(docs))
		s.logger.Info("Authors have been seeded", "count", rep.Authors)
	}

	if target.books() {
		byName, err := s.authorIndex(ctx)
		if err != nil {
			return rep, err
		}
		docs := make([]*model.Book, 0, len(s.fixtures.Books))
		for i, f := range s.fixtures.Books {
			authorID, ok := byName[f.Author]
			if !ok {
				return rep, fmt.Errorf("book %q: author %q does not exist", f.Title, f.Author)
			}
			docs = append(docs, &model.Book{
				ID:          bson.NewObjectID(),
				Title:       f.Title,
				AuthorID:    authorID,
				Description: f.Description,
				Price:       f.Price,
				Cover:       model.Cover(f.Cover),
				CreatedAt:   now.Add(-time.Duration(i) * time.Millisecond),
				UpdatedAt:   now,
			})
		}
		if err := s.books.InsertBooks(ctx, docs); err != nil {
			return rep, fmt.Errorf("insert books: %w", err)
		}
		rep.Books = int64(len(docs))
		s.logger.Info("Books have been seeded", "count", rep.Books)
	}
	return rep, nil
}

// Remove 清空数据（先图书后作者）
func (s *Seeder) Remove(ctx context.Context, target Target) (Report, error) {
	var rep Report
	if target.books() {
		n, err := s.books.DeleteAllBooks(ctx)
		if err != nil {
			return rep, fmt.Errorf("remove books: %w", err)
		}
		rep.Books = n
		s.logger.Info("Books have been removed", "count", n)
	}
	if target.authors() {
		n, err := s.authors.DeleteAllAuthors(ctx)
		if err != nil {
			return rep, fmt.Errorf("remove authors: %w", err)
		}
		rep.Authors = n
		s.logger.Info("Authors have been removed", "count", n)
	}
	return rep, nil
}

// authorIndex 全名 → 作者 ID；同名时取最新的一个
func (s *Seeder) authorIndex(ctx context.Context) (map[string]bson.ObjectID, error) {
	authors, err := s.authors.ListAuthors(ctx, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("list authors: %w", err)
	}
	idx := make(map[string]bson.ObjectID, len(authors))
	for _, a := range authors {
		if _, seen := idx[a.FullName()]; !seen {
			idx[a.FullName()] = a.ID
		}
	}
	return idx, nil
}
