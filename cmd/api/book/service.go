package book

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

//go:generate mockgen -source=service.go -destination=mocks/service.go -package=mocks

type ServiceAPI interface {
	ListBooks(ctx context.Context) ([]Book, error)
	GetBook(ctx context.Context, id int64) (Book, error)
	CreateBook(ctx context.Context, req CreateBookRequest) (Book, error)
	UpdateBook(ctx context.Context, req UpdateBookRequest) (Book, error)
	DeleteBook(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
}

/* Persistence accessor. Every method is a single statement against the backing store. */
type Repository interface {
	ListBooks(ctx context.Context) ([]Book, error)
	GetBookByID(ctx context.Context, id int64) (Book, error)
	CreateBook(ctx context.Context, req CreateBookRequest) (Book, error)
	UpdateBook(ctx context.Context, req UpdateBookRequest) (Book, error)
	DeleteBook(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
}

type Notifier interface {
	BookCreated(ctx context.Context, title string, stock int) error
}

type Service struct {
	repo                 Repository
	ntfy                 Notifier
	notificationsTimeout time.Duration
	logger               *slog.Logger
}

/* The notifier is optional, a nil Notifier disables notifications. */
func NewService(repo Repository, ntfy Notifier, notificationsTimeout time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		repo:                 repo,
		ntfy:                 ntfy,
		notificationsTimeout: notificationsTimeout,
		logger:               logger,
	}
}

func (s *Service) ListBooks(ctx context.Context) ([]Book, error) {
	books, err := s.repo.ListBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing books: %w", err)
	}
	return books, nil
}

func (s *Service) GetBook(ctx context.Context, id int64) (Book, error) {
	b, err := s.repo.GetBookByID(ctx, id)
	if err != nil {
		return Book{}, fmt.Errorf("getting book %d: %w", id, err)
	}
	return b, nil
}

/* Validates the entry, stores it as a new book and notifies about it in the background. */
func (s *Service) CreateBook(ctx context.Context, req CreateBookRequest) (Book, error) {
	if err := req.Validate(); err != nil {
		return Book{}, err
	}

	createdBook, err := s.repo.CreateBook(ctx, req)
	if err != nil {
		return Book{}, fmt.Errorf("creating book: %w", err)
	}

	if s.ntfy != nil {
		go s.notifyBookCreated(createdBook)
	}

	return createdBook, nil
}

func (s *Service) UpdateBook(ctx context.Context, req UpdateBookRequest) (Book, error) {
	if err := req.Validate(); err != nil {
		return Book{}, err
	}

	updatedBook, err := s.repo.UpdateBook(ctx, req)
	if err != nil {
		return Book{}, fmt.Errorf("updating book %d: %w", req.ID, err)
	}
	return updatedBook, nil
}

func (s *Service) DeleteBook(ctx context.Context, id int64) error {
	err := s.repo.DeleteBook(ctx, id)
	if err != nil {
		return fmt.Errorf("deleting book %d: %w", id, err)
	}
	return nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

/* Runs detached from the request, so it gets its own deadline. */
func (s *Service) notifyBookCreated(b Book) {
	ctx, cancel := context.WithTimeout(context.Background(), s.notificationsTimeout)
	defer cancel()

	err := s.ntfy.BookCreated(ctx, b.Title, b.Stock)
	if err != nil {
		s.logger.Warn("book created notification failed", "book_id", b.ID, "error", err)
	}
}
