package book

import (
	"fmt"
)

type ErrResponse struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_message"`
}

func (e ErrResponse) Error() string {
	return e.Message
}

var ErrResponseBookEntryBlankTitle = ErrResponse{100, "field title must be filled with at least one non-blank character."}
var ErrResponseBookNotFound = ErrResponse{101, "book not found"}
var ErrResponseEntryInvalidJSON = ErrResponse{102, "invalid json request."}
var ErrResponseIdInvalidFormat = ErrResponse{103, "the endpoint is not a valid format ID. Must be /books/{positive integer}"}
var ErrResponseDateInvalidFormat = ErrResponse{104, "field published_date must be a date in the format YYYY-MM-DD."}
var ErrResponseStockNegative = ErrResponse{105, "field stock must be zero or a positive integer."}
var ErrResponseStockOutOfRange = ErrResponse{106, "field stock must not be greater than 2147483647."}
var ErrResponseInternal = ErrResponse{108, "internal server error"}

type ErrNotificationFailed struct {
	statusCode int
}

func (e ErrNotificationFailed) Error() string {
	return fmt.Sprintf("ntfy wrong response - want: 200 OK, got: %d", e.statusCode)
}

func NewErrNotificationFailed(statusCode int) ErrNotificationFailed {
	return ErrNotificationFailed{statusCode: statusCode}
}
