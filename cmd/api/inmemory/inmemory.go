package inmemory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/book-inventory/cmd/api/book"
	"github.com/hashicorp/go-memdb"
)

const bookTable = "book"

/*
InMemoryStore keeps books in a go-memdb database. It assigns IDs and timestamps itself,
the same way the books table does with SERIAL and now().
*/
type InMemoryStore struct {
	db *memdb.MemDB
	// lastID is only touched inside write transactions, which memdb serialises.
	lastID int64
	now    func() time.Time
}

func NewInMemoryStore() (*InMemoryStore, error) {
	// Define the schema
	schema := &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			bookTable: {
				Name: bookTable,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.IntFieldIndex{Field: "ID"},
					},
				},
			},
		},
	}

	err := schema.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating in-memory schema: %w", err)
	}

	db, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize in-memory database: %w", err)
	}
	return &InMemoryStore{db: db, now: time.Now}, nil
}

/* Stored copy of a book, detached from the pointers held by callers. */
type storedBook struct {
	ID            int64
	Title         string
	Author        *string
	PublishedDate *time.Time
	Stock         int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (s storedBook) toBook() book.Book {
	return book.Book{
		ID:            s.ID,
		Title:         s.Title,
		Author:        copyPointer(s.Author),
		PublishedDate: copyPointer(s.PublishedDate),
		Stock:         s.Stock,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func copyPointer[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

/* Rounds like a TIMESTAMPTZ column, so both backends hand out the same precision. */
func (store *InMemoryStore) timestamp() time.Time {
	return store.now().UTC().Round(time.Microsecond)
}

func (store *InMemoryStore) ListBooks(ctx context.Context) ([]book.Book, error) {
	txn := store.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(bookTable, "id")
	if err != nil {
		return nil, fmt.Errorf("listing books from db: %w", err)
	}

	books := []book.Book{}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		books = append(books, obj.(storedBook).toBook())
	}

	// The id index stores varint keys, so iteration is not in numeric order.
	sort.Slice(books, func(i, j int) bool {
		return books[i].ID < books[j].ID
	})
	return books, nil
}

func (store *InMemoryStore) GetBookByID(ctx context.Context, id int64) (book.Book, error) {
	txn := store.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(bookTable, "id", id)
	if err != nil {
		return book.Book{}, fmt.Errorf("searching by ID: %w", err)
	}
	if raw == nil {
		return book.Book{}, fmt.Errorf("searching by ID: %w", book.ErrResponseBookNotFound)
	}

	return raw.(storedBook).toBook(), nil
}

func (store *InMemoryStore) CreateBook(ctx context.Context, req book.CreateBookRequest) (book.Book, error) {
	txn := store.db.Txn(true)
	defer txn.Abort()

	now := store.timestamp()
	newBook := storedBook{
		ID:            store.lastID + 1,
		Title:         req.Title,
		Author:        copyPointer(req.Author),
		PublishedDate: copyPointer(req.PublishedDate),
		Stock:         req.Stock,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := txn.Insert(bookTable, newBook)
	if err != nil {
		return book.Book{}, fmt.Errorf("storing book on db: %w", err)
	}

	store.lastID = newBook.ID
	txn.Commit()
	return newBook.toBook(), nil
}

func (store *InMemoryStore) UpdateBook(ctx context.Context, req book.UpdateBookRequest) (book.Book, error) {
	txn := store.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(bookTable, "id", req.ID)
	if err != nil {
		return book.Book{}, fmt.Errorf("updating on db: %w", err)
	}
	if raw == nil {
		return book.Book{}, fmt.Errorf("updating on db: %w", book.ErrResponseBookNotFound)
	}

	updatedBook := raw.(storedBook)
	updatedBook.Title = req.Title
	updatedBook.Author = copyPointer(req.Author)
	updatedBook.PublishedDate = copyPointer(req.PublishedDate)
	updatedBook.Stock = req.Stock
	if now := store.timestamp(); now.After(updatedBook.UpdatedAt) {
		updatedBook.UpdatedAt = now
	}

	err = txn.Insert(bookTable, updatedBook)
	if err != nil {
		return book.Book{}, fmt.Errorf("updating on db: %w", err)
	}

	txn.Commit()
	return updatedBook.toBook(), nil
}

func (store *InMemoryStore) DeleteBook(ctx context.Context, id int64) error {
	txn := store.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(bookTable, "id", id)
	if err != nil {
		return fmt.Errorf("deleting book from db: %w", err)
	}
	if raw == nil {
		return fmt.Errorf("deleting book from db: %w", book.ErrResponseBookNotFound)
	}

	err = txn.Delete(bookTable, raw)
	if err != nil {
		return fmt.Errorf("deleting book from db: %w", err)
	}

	txn.Commit()
	return nil
}

/* The in-memory database is always reachable. */
func (store *InMemoryStore) Ping(ctx context.Context) error {
	return nil
}
