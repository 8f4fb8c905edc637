package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/book-inventory/cmd/api/book"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "github.com/golang-migrate/migrate/v4/source/file"

	_ "github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DefaultMaxOpenConns bounds the pool when no explicit size is configured.
const DefaultMaxOpenConns = 5

type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db  *sql.DB
	exc DBTX
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:  db,
		exc: db,
	}
}

type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

/* Opens the bounded connection pool and checks that the database answers. */
func ConnectDb(connStr string, cfg PoolConfig) (*sql.DB, error) {
	sqlDB, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("connecting to db, openning: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = DefaultMaxOpenConns
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 || maxIdle > maxOpen {
		maxIdle = maxOpen
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	err = sqlDB.Ping()
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("connecting to db, pingging: %w", err)
	}

	return sqlDB, nil
}

/*
Applies the forward migrations on a dedicated connection, so the serving pool keeps all of its slots.
An empty path uses the migrations embedded in the binary. Running it on an up to date schema is a no-op.
*/
func MigrationUp(connStr, path string) (err error) {
	migrationDB, err := ConnectDb(connStr, PoolConfig{MaxOpenConns: 1})
	if err != nil {
		return fmt.Errorf("migrating up: %w", err)
	}

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		migrationDB.Close()
		return fmt.Errorf("migrating up: %w", err)
	}

	var m *migrate.Migrate
	if path != "" {
		m, err = migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", path), "postgres", driver)
	} else {
		var src source.Driver
		src, err = iofs.New(migrationsFS, "migrations")
		if err == nil {
			m, err = migrate.NewWithInstance("iofs", src, "postgres", driver)
		}
	}
	if err != nil {
		driver.Close()
		return fmt.Errorf("migrating up: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if err == nil {
			err = errors.Join(srcErr, dbErr)
		}
	}()

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrating up: %w", err)
	}
	return nil
}

const bookColumns = `id, title, author, published_date, stock, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (book.Book, error) {
	var b book.Book
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.PublishedDate, &b.Stock, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

/* Returns every stored book ordered by ID. */
func (store *Store) ListBooks(ctx context.Context) ([]book.Book, error) {
	sqlStatement := `SELECT ` + bookColumns + `
	FROM books
	ORDER BY id ASC;`

	rows, err := store.exc.QueryContext(ctx, sqlStatement)
	if err != nil {
		return nil, fmt.Errorf("listing books from db: %w", err)
	}
	defer rows.Close()

	bookslist := []book.Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("listing books from db: %w", err)
		}
		bookslist = append(bookslist, b)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("listing books from db: %w", err)
	}

	return bookslist, nil
}

/* Searches a book in database based on ID and returns it if succeed. */
func (store *Store) GetBookByID(ctx context.Context, id int64) (book.Book, error) {
	sqlStatement := `SELECT ` + bookColumns + `
	FROM books
	WHERE id = $1;`
	b, err := scanBook(store.exc.QueryRowContext(ctx, sqlStatement, id))
	if err != nil {
		switch err {
		case sql.ErrNoRows:
			return book.Book{}, fmt.Errorf("searching by ID: %w", book.ErrResponseBookNotFound)
		default:
			return book.Book{}, fmt.Errorf("searching by ID: %w", err)
		}
	}

	return b, nil
}

/* Stores the book into the database. ID and timestamps come from the database. */
func (store *Store) CreateBook(ctx context.Context, req book.CreateBookRequest) (book.Book, error) {
	sqlStatement := `
	INSERT INTO books (title, author, published_date, stock)
	VALUES ($1, $2, $3, $4)
	RETURNING ` + bookColumns
	b, err := scanBook(store.exc.QueryRowContext(ctx, sqlStatement, req.Title, req.Author, req.PublishedDate, req.Stock))
	if err != nil {
		return book.Book{}, fmt.Errorf("storing book on db: %w", err)
	}

	return b, nil
}

/* Replaces the mutable fields of a stored book. created_at is never touched. */
func (store *Store) UpdateBook(ctx context.Context, req book.UpdateBookRequest) (book.Book, error) {
	sqlStatement := `
	UPDATE books
	SET title = $2, author = $3, published_date = $4, stock = $5, updated_at = GREATEST(now(), updated_at)
	WHERE id = $1
	RETURNING ` + bookColumns
	b, err := scanBook(store.exc.QueryRowContext(ctx, sqlStatement, req.ID, req.Title, req.Author, req.PublishedDate, req.Stock))
	if err != nil {
		switch err {
		case sql.ErrNoRows:
			return book.Book{}, fmt.Errorf("updating on db: %w", book.ErrResponseBookNotFound)
		default:
			return book.Book{}, fmt.Errorf("updating on db: %w", err)
		}
	}

	return b, nil
}

func (store *Store) DeleteBook(ctx context.Context, id int64) error {
	sqlStatement := `
	DELETE FROM books
	WHERE id = $1;`
	result, err := store.exc.ExecContext(ctx, sqlStatement, id)
	if err != nil {
		return fmt.Errorf("deleting book from db: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting book from db: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("deleting book from db: %w", book.ErrResponseBookNotFound)
	}
	return nil
}

func (store *Store) Ping(ctx context.Context) error {
	err := store.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("pinging db: %w", err)
	}
	return nil
}
