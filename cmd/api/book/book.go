package book

import (
	"math"
	"strings"
	"time"
)

// DateLayout is the wire and storage format of a book's publication date.
const DateLayout = "2006-01-02"

type Book struct {
	ID            int64
	Title         string
	Author        *string
	PublishedDate *time.Time
	Stock         int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type CreateBookRequest struct {
	Title         string
	Author        *string
	PublishedDate *time.Time
	Stock         int
}

/* A full replacement of the mutable fields of the book identified by ID. */
type UpdateBookRequest struct {
	ID            int64
	Title         string
	Author        *string
	PublishedDate *time.Time
	Stock         int
}

/* Trims the title and checks the entry before it reaches the repository. */
func (req *CreateBookRequest) Validate() error {
	req.Title = strings.TrimSpace(req.Title)
	return validateFields(req.Title, req.Stock)
}

/* Trims the title and checks the entry before it reaches the repository. */
func (req *UpdateBookRequest) Validate() error {
	req.Title = strings.TrimSpace(req.Title)
	return validateFields(req.Title, req.Stock)
}

func validateFields(title string, stock int) error {
	if title == "" {
		return ErrResponseBookEntryBlankTitle
	}
	if stock < 0 {
		return ErrResponseStockNegative
	}
	// stock is an INTEGER column
	if stock > math.MaxInt32 {
		return ErrResponseStockOutOfRange
	}
	return nil
}

/* Parses a publication date in the YYYY-MM-DD layout. An empty string means no date. */
func ParseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, ErrResponseDateInvalidFormat
	}
	return &d, nil
}
