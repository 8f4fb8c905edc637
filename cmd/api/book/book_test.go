package book_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/book-inventory/cmd/api/book"
	bookmock "github.com/book-inventory/cmd/api/book/mocks"
	"github.com/matryer/is"
	gomock "go.uber.org/mock/gomock"
)

var ctx context.Context = context.Background()

var notificationsTimeout = 1 * time.Second

func TestCreateBook(t *testing.T) {

	t.Run("creates a book without errors", func(t *testing.T) {
		is := is.New(t)
		ctrl := gomock.NewController(t)
		mockRepo := bookmock.NewMockRepository(ctrl)
		mS := book.NewService(mockRepo, nil, notificationsTimeout, nil)

		reqBook := book.CreateBookRequest{
			Title:  "Dune",
			Author: toPointer("Frank Herbert"),
			Stock:  3,
		}
		now := time.Now().UTC().Round(time.Millisecond)

		mockRepo.EXPECT().CreateBook(gomock.Any(), reqBook).DoAndReturn(func(ctx context.Context, req book.CreateBookRequest) (book.Book, error) {
			return book.Book{
				ID:        1,
				Title:     req.Title,
				Author:    req.Author,
				Stock:     req.Stock,
				CreatedAt: now,
				UpdatedAt: now,
			}, nil
		})

		createdBook, err := mS.CreateBook(ctx, reqBook)
		is.NoErr(err)
		is.Equal(createdBook.ID, int64(1))
		is.Equal(createdBook.Title, reqBook.Title)
		is.Equal(*createdBook.Author, "Frank Herbert")
		is.Equal(createdBook.Stock, 3)
		is.True(createdBook.PublishedDate == nil)
	})

	t.Run("trims the title before storing it", func(t *testing.T) {
		is := is.New(t)
		ctrl := gomock.NewController(t)
		mockRepo := bookmock.NewMockRepository(ctrl)
		mS := book.NewService(mockRepo, nil, notificationsTimeout, nil)

		mockRepo.EXPECT().CreateBook(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, req book.CreateBookRequest) (book.Book, error) {
			is.Equal(req.Title, "Dune")
			return book.Book{ID: 7, Title: req.Title}, nil
		})

		createdBook, err := mS.CreateBook(ctx, book.CreateBookRequest{Title: "  Dune \t\n"})
		is.NoErr(err)
		is.Equal(createdBook.Title, "Dune")
	})

	t.Run("expected blank title error without calling the repository", func(t *testing.T) {
		is := is.New(t)
		ctrl := gomock.NewController(t)
		mockRepo := bookmock.NewMockRepository(ctrl)
		mS := book.NewService(mockRepo, nil, notificationsTimeout, nil)

		for _, title := range []string{"", "   ", "\t\n"} {
			createdBook, err := mS.CreateBook(ctx, book.CreateBookRequest{Title: title})
			is.True(errors.Is(err, book.ErrResponseBookEntryBlankTitle))
			is.Equal(createdBook, book.Book{})
		}
	})

	t.Run("expected negative stock error without calling the repository", func(t *testing.T) {
		is := is.New(t)
		ctrl := gomock.NewController(t)
		mockRepo := bookmock.NewMockRepository(ctrl)
		mS := book.NewService(mockRepo, nil, notificationsTimeout, nil)

		_, err := mS.CreateBook(ctx, book.CreateBookRequest{Title: "Dune", Stock: -1})
		is.True(errors.Is(err, book.ErrResponseStockNegative))
	})

	t.Run("expected stock out of range error without calling the repository", func(t *testing.T) {
		is := is.New(t)
		ctrl := gomock.NewController(t)
		mockRepo := bookmock.NewMockRepository(ctrl)
		mS := book.NewService(mockRepo, nil, notificationsTimeout, nil)

		_, err := mS.CreateBook(ctx, book.CreateBookRequest{Title: "Big", Stock: math.MaxInt32 + 1})
		is.True(errors.Is(err, book.ErrResponseStockOutOfRange))

		_, err = mS.UpdateBook(ctx, book.UpdateBookRequest{ID: 1, Title: "Big", Stock: math.MaxInt32 + 1})
		is.True(errors.Is(err, book.ErrResponseStockOutOfRange))
	})

	t.Run("accepts the largest storable stock", func(t *testing.T) {
		is := is.New(t)
		ctrl := gomock.NewController(t)
		mockRepo := bookmock.NewMockRepository(ctrl)
		mS := book.NewService(mockRepo, nil, notificationsTimeout, nil)

		mockRepo.EXPECT().CreateBook(gomock.Any(), book.CreateBookRequest{Title: "Big", Stock: math.MaxInt32}).Return(book.Book{ID: 1, Title: "Big", Stock: math.MaxInt32}, nil)

		createdBook, err := mS.CreateBook(ctx, book.CreateBookRequest{Title: "Big", Stock: math.MaxInt32})
		is.NoErr(err)
		is.Equal(createdBook.Stock, math.MaxInt32)
	})

	t.Run("expected error from database", func(t *testing.T) {
		is := is.New(t)
		ctrl := gomock.NewController(t)
		mockRepo := bookmock.NewMockRepository(ctrl)
		mS := book.NewService(mockRepo, nil, notificationsTimeout, nil)

		dbErr := errors.New("fake error from database")
		mockRepo.EXPECT().CreateBook(gomock.Any(), gomock.Any()).Return(book.Book{}, dbErr)

		createdBook, err := mS.CreateBook(ctx, book.CreateBookRequest{Title: "Dune"})
		is.True(errors.Is(err, dbErr))
		is.Equal(createdBook, book.Book{})
	})

	t.Run("notifies the creation of a book", func(t *testing.T) {
		is := is.New(t)
		ctrl := gomock.NewController(t)
		mockRepo := bookmock.NewMockRepository(ctrl)
		mockNtfy := bookmock.NewMockNotifier(ctrl)
		mS := book.NewService(mockRepo, mockNtfy, notificationsTimeout, nil)

		mockRepo.EXPECT().CreateBook(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, req book.CreateBookRequest) (book.Book, error) {
			return book.Book{ID: 2, Title: req.Title, Stock: req.Stock}, nil
		})

		wg := sync.WaitGroup{}
		wg.Add(1)
		mockNtfy.EXPECT().BookCreated(gomock.Any(), "Dune", 3).DoAndReturn(func(ctx context.Context, _ string, _ int) error {
			defer wg.Done()
			_, hasDeadline := ctx.Deadline()
			is.True(hasDeadline)
			return nil
		})

		_, err := mS.CreateBook(ctx, book.CreateBookRequest{Title: "Dune", Stock: 3})
		is.NoErr(err)

		wg.Wait()
	})

	t.Run("a failed notification does not fail the creation", func(t *testing.T) {
		is := is.New(t)
		ctrl := gomock.NewController(t)
		mockRepo := bookmock.NewMockRepository(ctrl)
		mockNtfy := bookmock.NewMockNotifier(ctrl)
		mS := book.NewService(mockRepo, mockNtfy, notificationsTimeout, nil)

		mockRepo.EXPECT().CreateBook(gomock.Any(), gomock.Any()).Return(book.Book{ID: 3, Title: "Dune"}, nil)

		wg := sync.WaitGroup{}
		wg.Add(1)
		mockNtfy.EXPECT().BookCreated(gomock.Any(), "Dune", 0).DoAndReturn(func(_ context.Context, _ string, _ int) error {
			defer wg.Done()
			return book.NewErrNotificationFailed(500)
		})

		createdBook, err := mS.CreateBook(ctx, book.CreateBookRequest{Title: "Dune"})
		is.NoErr(err)
		is.Equal(createdBook.ID, int64(3))

		wg.Wait()
	})
}

func TestUpdateBook(t *testing.T) {
	t.Run("updates a book without errors", func(t *testing.T) {
		is := is.New(t)
		ctrl := gomock.NewController(t)
		mockRepo := bookmock.NewMockRepository(ctrl)
		mS := book.NewService(mockRepo, nil, notificationsTimeout, nil)

		createdAt := time.Now().UTC().Add(-time.Hour).Round(time.Millisecond)
		reqBook := book.UpdateBookRequest{
			ID:    4,
			Title: "Dune (Revised)",
			Stock: 5,
		}

		mockRepo.EXPECT().UpdateBook(gomock.Any(), reqBook).DoAndReturn(func(ctx context.Context, req book.UpdateBookRequest) (book.Book, error) {
			return book.Book{
				ID:        req.ID,
				Title:     req.Title,
				Stock:     req.Stock,
				CreatedAt: createdAt,
				UpdatedAt: time.Now().UTC().Round(time.Millisecond),
			}, nil
		})

		updatedBook, err := mS.UpdateBook(ctx, reqBook)
		is.NoErr(err)
		is.Equal(updatedBook.ID, reqBook.ID)
		is.Equal(updatedBook.Title, reqBook.Title)
		is.Equal(updatedBook.Stock, reqBook.Stock)
		is.True(updatedBook.CreatedAt.Equal(createdAt))
		is.True(updatedBook.UpdatedAt.Compare(updatedBook.CreatedAt) > 0)
	})

	t.Run("expected blank title error without calling the repository", func(t *testing.T) {
		is := is.New(t)
		ctrl := gomock.NewController(t)
		mockRepo := bookmock.NewMockRepository(ctrl)
		mS := book.NewService(mockRepo, nil, notificationsTimeout, nil)

		_, err := mS.UpdateBook(ctx, book.UpdateBookRequest{ID: 4, Title: "  "})
		is.True(errors.Is(err, book.ErrResponseBookEntryBlankTitle))
	})

	t.Run("expected not found error from repository", func(t *testing.T) {
		is := is.New(t)
		ctrl := gomock.NewController(t)
		mockRepo := bookmock.NewMockRepository(ctrl)
		mS := book.NewService(mockRepo, nil, notificationsTimeout, nil)

		mockRepo.EXPECT().UpdateBook(gomock.Any(), gomock.Any()).Return(book.Book{}, book.ErrResponseBookNotFound)

		_, err := mS.UpdateBook(ctx, book.UpdateBookRequest{ID: 99, Title: "Ghost"})
		is.True(errors.Is(err, book.ErrResponseBookNotFound))
	})
}

func TestGetBook(t *testing.T) {
	t.Run("Gets a book by ID without errors", func(t *testing.T) {
		is := is.New(t)
		ctrl := gomock.NewController(t)
		mockRepo := bookmock.NewMockRepository(ctrl)
		mS := book.NewService(mockRepo, nil, notificationsTimeout, nil)

		mockRepo.EXPECT().GetBookByID(gomock.Any(), int64(5)).Return(book.Book{ID: 5, Title: "Emma"}, nil)

		returnedBook, err := mS.GetBook(ctx, 5)
		is.NoErr(err)
		is.Equal(returnedBook.Title, "Emma")
	})

	t.Run("Gets an non existing book should return a not found error", func(t *testing.T) {
		is := is.New(t)
		ctrl := gomock.NewController(t)
		mockRepo := bookmock.NewMockRepository(ctrl)
		mS := book.NewService(mockRepo, nil, notificationsTimeout, nil)

		mockRepo.EXPECT().GetBookByID(gomock.Any(), int64(6)).Return(book.Book{}, book.ErrResponseBookNotFound)

		_, err := mS.GetBook(ctx, 6)
		is.True(errors.Is(err, book.ErrResponseBookNotFound))
	})
}

func TestListBooks(t *testing.T) {
	t.Run("lists stored books without errors", func(t *testing.T) {
		is := is.New(t)
		ctrl := gomock.NewController(t)
		mockRepo := bookmock.NewMockRepository(ctrl)
		mS := book.NewService(mockRepo, nil, notificationsTimeout, nil)

		results := []book.Book{{ID: 1, Title: "A"}, {ID: 2, Title: "B"}}
		mockRepo.EXPECT().ListBooks(gomock.Any()).Return(results, nil)

		books, err := mS.ListBooks(ctx)
		is.NoErr(err)
		is.Equal(books, results)
	})

	t.Run("expected error from database", func(t *testing.T) {
		is := is.New(t)
		ctrl := gomock.NewController(t)
		mockRepo := bookmock.NewMockRepository(ctrl)
		mS := book.NewService(mockRepo, nil, notificationsTimeout, nil)

		dbErr := errors.New("fake error from database")
		mockRepo.EXPECT().ListBooks(gomock.Any()).Return(nil, dbErr)

		books, err := mS.ListBooks(ctx)
		is.True(errors.Is(err, dbErr))
		is.Equal(len(books), 0)
	})
}

func TestDeleteBook(t *testing.T) {
	t.Run("deletes a book without errors", func(t *testing.T) {
		is := is.New(t)
		ctrl := gomock.NewController(t)
		mockRepo := bookmock.NewMockRepository(ctrl)
		mS := book.NewService(mockRepo, nil, notificationsTimeout, nil)

		mockRepo.EXPECT().DeleteBook(gomock.Any(), int64(8)).Return(nil)

		is.NoErr(mS.DeleteBook(ctx, 8))
	})

	t.Run("deletes an non existing book should return a not found error", func(t *testing.T) {
		is := is.New(t)
		ctrl := gomock.NewController(t)
		mockRepo := bookmock.NewMockRepository(ctrl)
		mS := book.NewService(mockRepo, nil, notificationsTimeout, nil)

		mockRepo.EXPECT().DeleteBook(gomock.Any(), int64(9)).Return(book.ErrResponseBookNotFound)

		err := mS.DeleteBook(ctx, 9)
		is.True(errors.Is(err, book.ErrResponseBookNotFound))
	})
}

func TestParseDate(t *testing.T) {
	is := is.New(t)

	d, err := book.ParseDate("1965-08-01")
	is.NoErr(err)
	is.Equal(d.Format(book.DateLayout), "1965-08-01")

	d, err = book.ParseDate("")
	is.NoErr(err)
	is.True(d == nil)

	_, err = book.ParseDate("01/08/1965")
	is.True(errors.Is(err, book.ErrResponseDateInvalidFormat))
}

func toPointer[T any](v T) *T {
	return &v
}
