package utils

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Error is the service-wide error kind. Code doubles as the HTTP status of
// the uniform error body.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

func BadRequest(msg string) *Error {
	return &Error{Code: http.StatusBadRequest, Message: msg}
}

func Unauthorized(msg string) *Error {
	return &Error{Code: http.StatusUnauthorized, Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Code: http.StatusForbidden, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Code: http.StatusNotFound, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Code: http.StatusConflict, Message: msg}
}

func Validation(msg string) *Error {
	return &Error{Code: http.StatusUnprocessableEntity, Message: msg}
}

func TooManyRequests(msg string) *Error {
	return &Error{Code: http.StatusTooManyRequests, Message: msg}
}

func Internal(msg string) *Error {
	return &Error{Code: http.StatusInternalServerError, Message: msg}
}

func Unavailable(msg string) *Error {
	return &Error{Code: http.StatusServiceUnavailable, Message: msg}
}

func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

// Body renders the uniform wire form of the error. The HTTP status of the
// response equals the embedded code.
func (e *Error) Body() map[string]any {
	body := map[string]any{
		"error":     e.Message,
		"code":      e.Code,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if e.Details != nil {
		body["details"] = e.Details
	}
	return body
}

// AsError coerces any error into the taxonomy. Errors that are already *Error
// pass through; database errors go through the fixed mapping table; anything
// else is Internal.
func AsError(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return FromDBError(err)
}

// FromDBError maps persistence-layer errors onto the taxonomy:
// uniqueness -> 409, foreign key -> 400, not-null/check -> 422,
// connection -> 503, schema -> 500.
func FromDBError(err error) *Error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound("record not found")
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505":
			return Conflict("duplicate record")
		case pgErr.Code == "23503":
			return BadRequest("referenced record does not exist")
		case pgErr.Code == "23502" || pgErr.Code == "23514":
			return Validation(pgErr.Message)
		case strings.HasPrefix(pgErr.Code, "08"):
			return Unavailable("database unreachable")
		case strings.HasPrefix(pgErr.Code, "42"):
			return Internal("database schema error")
		}
	}
	if errors.Is(err, gorm.ErrInvalidDB) {
		return Unavailable("database unreachable")
	}
	return Internal("unexpected error")
}
