package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/book-inventory/cmd/api/book"
)

//go:generate mockgen -destination=mocks/service.go -package=mocks github.com/book-inventory/cmd/api/book ServiceAPI

// maxBodyBytes caps request bodies; a book entry is a handful of short fields.
const maxBodyBytes = 1 << 20

const healthTimeout = 2 * time.Second

type BookHandler struct {
	bookService book.ServiceAPI
	logger      *slog.Logger
}

func NewBookHandler(bookService book.ServiceAPI, logger *slog.Logger) *BookHandler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &BookHandler{bookService: bookService, logger: logger}
}

/* Addresses a call to "/books/(expected id here)" according to the requested action.  */
func (h *BookHandler) bookById(w http.ResponseWriter, r *http.Request) {
	method := r.Method
	switch method {
	case http.MethodGet:
		h.getBookById(w, r)
		return
	case http.MethodPut:
		h.updateBook(w, r)
		return
	case http.MethodDelete:
		h.deleteBook(w, r)
		return
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
		return
	}
}

/* Addresses a call to "/books" according to the requested action.  */
func (h *BookHandler) books(w http.ResponseWriter, r *http.Request) {
	method := r.Method
	switch method {
	case http.MethodGet:
		h.listBooks(w, r)
		return
	case http.MethodPost:
		h.createBook(w, r)
		return
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
		return
	}
}

/*
Client payload for create and update. Server assigned fields (id, created_at, updated_at)
have no place here, so a client sending them has them ignored.
*/
type BookEntry struct {
	Title         string  `json:"title"`
	Author        *string `json:"author"`
	Stock         *int    `json:"stock"`
	PublishedDate *string `json:"published_date"`
}

/* Validates the entry, then stores the entry as a new book. */
func (h *BookHandler) createBook(w http.ResponseWriter, r *http.Request) {
	bookEntry, ok := h.decodeEntry(w, r)
	if !ok {
		return
	}

	reqBook, err := bookToCreateReq(bookEntry)
	if err != nil {
		h.responseError(w, r, err)
		return
	}

	storedBook, err := h.bookService.CreateBook(r.Context(), reqBook)
	if err != nil {
		h.responseError(w, r, err)
		return
	}

	responseJSON(w, http.StatusCreated, bookToResponse(storedBook))
}

/* Validates the entry, then replaces the asked book. */
func (h *BookHandler) updateBook(w http.ResponseWriter, r *http.Request) {
	id, err := isolateId(r)
	if err != nil {
		h.responseError(w, r, err)
		return
	}

	bookEntry, ok := h.decodeEntry(w, r)
	if !ok {
		return
	}

	reqBook, err := bookToUpdateReq(bookEntry, id)
	if err != nil {
		h.responseError(w, r, err)
		return
	}

	updatedBook, err := h.bookService.UpdateBook(r.Context(), reqBook)
	if err != nil {
		h.responseError(w, r, err)
		return
	}

	responseJSON(w, http.StatusOK, bookToResponse(updatedBook))
}

/* Returns the book with that specific ID. */
func (h *BookHandler) getBookById(w http.ResponseWriter, r *http.Request) {
	id, err := isolateId(r)
	if err != nil {
		h.responseError(w, r, err)
		return
	}

	returnedBook, err := h.bookService.GetBook(r.Context(), id)
	if err != nil {
		h.responseError(w, r, err)
		return
	}

	responseJSON(w, http.StatusOK, bookToResponse(returnedBook))
}

/* Removes the book permanently. */
func (h *BookHandler) deleteBook(w http.ResponseWriter, r *http.Request) {
	id, err := isolateId(r)
	if err != nil {
		h.responseError(w, r, err)
		return
	}

	err = h.bookService.DeleteBook(r.Context(), id)
	if err != nil {
		h.responseError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

/* Returns all the stored books. */
func (h *BookHandler) listBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.bookService.ListBooks(r.Context())
	if err != nil {
		h.responseError(w, r, err)
		return
	}

	results := make([]BookResponse, 0, len(books))
	for _, b := range books {
		results = append(results, bookToResponse(b))
	}
	responseJSON(w, http.StatusOK, results)
}

/* Reports whether the storage behind the service answers. */
func (h *BookHandler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	err := h.bookService.Ping(ctx)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "health check failed", "request_id", RequestID(r.Context()), "error", err)
		responseJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
		return
	}
	responseJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

type HealthResponse struct {
	Status string `json:"status"`
}

/* Reads the JSON body into a BookEntry, answering 400 itself when it cannot. */
func (h *BookHandler) decodeEntry(w http.ResponseWriter, r *http.Request) (BookEntry, bool) {
	var bookEntry BookEntry
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	err := dec.Decode(&bookEntry)
	if err == nil {
		if _, tokenErr := dec.Token(); tokenErr != io.EOF {
			err = errors.New("unexpected data after the json object")
		}
	}
	if err != nil {
		h.logger.DebugContext(r.Context(), "invalid json entry", "request_id", RequestID(r.Context()), "error", err)
		errR := book.ErrResponse{
			Code:    book.ErrResponseEntryInvalidJSON.Code,
			Message: book.ErrResponseEntryInvalidJSON.Message + err.Error(),
		}
		responseJSON(w, http.StatusBadRequest, errR)
		return BookEntry{}, false
	}
	return bookEntry, true
}

/*
Maps an error to its response: not found is 404, any other client facing ErrResponse is 400,
everything else is logged and answered with a generic 500.
*/
func (h *BookHandler) responseError(w http.ResponseWriter, r *http.Request, err error) {
	var errR book.ErrResponse
	switch {
	case errors.Is(err, book.ErrResponseBookNotFound):
		responseJSON(w, http.StatusNotFound, book.ErrResponseBookNotFound)
	case errors.As(err, &errR):
		responseJSON(w, http.StatusBadRequest, errR)
	default:
		h.logger.ErrorContext(r.Context(), "request failed",
			"request_id", RequestID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		responseJSON(w, http.StatusInternalServerError, book.ErrResponseInternal)
	}
}

/* Converts from BookEntry type to CreateBookRequest type, with no json tags. */
func bookToCreateReq(b BookEntry) (book.CreateBookRequest, error) {
	published, err := parseEntryDate(b.PublishedDate)
	if err != nil {
		return book.CreateBookRequest{}, err
	}
	return book.CreateBookRequest{
		Title:         b.Title,
		Author:        b.Author,
		PublishedDate: published,
		Stock:         valueOrZero(b.Stock),
	}, nil
}

/* Converts from BookEntry type to UpdateBookRequest type, with no json tags. */
func bookToUpdateReq(b BookEntry, id int64) (book.UpdateBookRequest, error) {
	published, err := parseEntryDate(b.PublishedDate)
	if err != nil {
		return book.UpdateBookRequest{}, err
	}
	return book.UpdateBookRequest{
		ID:            id,
		Title:         b.Title,
		Author:        b.Author,
		PublishedDate: published,
		Stock:         valueOrZero(b.Stock),
	}, nil
}

func parseEntryDate(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	if *s == "" {
		return nil, book.ErrResponseDateInvalidFormat
	}
	return book.ParseDate(*s)
}

func valueOrZero[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

/* Isolates the ID from the URL. */
func isolateId(r *http.Request) (int64, error) {
	justId, _ := strings.CutPrefix(r.URL.Path, "/books/")
	id, err := strconv.ParseInt(justId, 10, 64)
	if err != nil || id <= 0 {
		return 0, book.ErrResponseIdInvalidFormat
	}
	return id, nil
}

type BookResponse struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Author        *string   `json:"author"`
	PublishedDate *string   `json:"published_date"`
	Stock         int       `json:"stock"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

/*Copy the fields of a book object to an http layer struct with json tags*/
func bookToResponse(b book.Book) BookResponse {
	var published *string
	if b.PublishedDate != nil {
		s := b.PublishedDate.Format(book.DateLayout)
		published = &s
	}
	return BookResponse{
		ID:            b.ID,
		Title:         b.Title,
		Author:        b.Author,
		PublishedDate: published,
		Stock:         b.Stock,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

/*Writes a JSON response into a http.ResponseWriter. */
func responseJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		slog.Error("encoding json response", "error", err)
	}
}
