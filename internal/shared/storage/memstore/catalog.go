package memstore

import (
	"context"
	"sort"

	"bookstore-api/internal/shared/model"
	"bookstore-api/internal/shared/storage"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ============================================================================
// AuthorStore
// ============================================================================

func (s *Store) CreateAuthor(_ context.Context, author *model.Author) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.authors[author.ID]; ok {
		return storage.ErrDuplicate
	}
	s.authors[author.ID] = *author
	return nil
}

func (s *Store) GetAuthor(_ context.Context, id bson.ObjectID) (*model.Author, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.authors[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (s *Store) ListAuthors(_ context.Context, offset, limit int) ([]*model.Author, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*model.Author, 0, len(s.authors))
	for _, a := range s.authors {
		a := a
		result = append(result, &a)
	}
	sort.Slice(result, func(i, j int) bool {
		return newer(result[i].CreatedAt, result[j].CreatedAt, result[i].ID, result[j].ID)
	})
	return page(result, offset, limit), nil
}

func (s *Store) UpdateAuthor(_ context.Context, author *model.Author) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.authors[author.ID]
	if !ok {
		return storage.ErrNotFound
	}
	updated := *author
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = s.now()
	s.authors[author.ID] = updated
	*author = updated
	return nil
}

func (s *Store) DeleteAuthor(_ context.Context, id bson.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.authors[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.authors, id)
	return nil
}

func (s *Store) InsertAuthors(_ context.Context, authors []*model.Author) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range authors {
		if _, ok := s.authors[a.ID]; ok {
			return storage.ErrDuplicate
		}
	}
	for _, a := range authors {
		s.authors[a.ID] = *a
	}
	return nil
}

func (s *Store) DeleteAllAuthors(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int64(len(s.authors))
	s.authors = make(map[bson.ObjectID]model.Author)
	return n, nil
}

// ============================================================================
// BookStore
// ============================================================================

func (s *Store) CreateBook(_ context.Context, book *model.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.books[book.ID]; ok {
		return storage.ErrDuplicate
	}
	s.books[book.ID] = *book
	return nil
}

func (s *Store) GetBook(_ context.Context, id bson.ObjectID) (*model.BookDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.books[id]
	if !ok {
		return nil, nil
	}
	return s.detailLocked(b), nil
}

func (s *Store) ListBooks(_ context.Context, filter model.BookFilter) ([]*model.BookDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*model.BookDetail, 0, len(s.books))
	for _, b := range s.books {
		if filter.Matches(b.Price) {
			result = append(result, s.detailLocked(b))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return newer(result[i].CreatedAt, result[j].CreatedAt, result[i].ID, result[j].ID)
	})
	return page(result, filter.Offset, filter.Limit), nil
}

func (s *Store) UpdateBook(_ context.Context, book *model.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.books[book.ID]
	if !ok {
		return storage.ErrNotFound
	}
	updated := *book
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = s.now()
	s.books[book.ID] = updated
	*book = updated
	return nil
}

func (s *Store) DeleteBook(_ context.Context, id bson.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.books[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.books, id)
	return nil
}

func (s *Store) InsertBooks(_ context.Context, books []*model.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range books {
		if _, ok := s.books[b.ID]; ok {
			return storage.ErrDuplicate
		}
	}
	for _, b := range books {
		s.books[b.ID] = *b
	}
	return nil
}

func (s *Store) DeleteAllBooks(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int64(len(s.books))
	s.books = make(map[bson.ObjectID]model.Book)
	return n, nil
}

// detailLocked 展开 author 字段（调用方持有锁）
func (s *Store) detailLocked(b model.Book) *model.BookDetail {
	d := &model.BookDetail{
		ID:          b.ID,
		Title:       b.Title,
		Description: b.Description,
		Price:       b.Price,
		Cover:       b.Cover,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
	if a, ok := s.authors[b.AuthorID]; ok {
		d.Author = &a
	}
	return d
}
