package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Code is a machine-readable error code from a closed set. Clients map
// codes to localized messages, so new codes are additions, never renames.
type Code string

const (
	CodeInvalidInput Code = "INVALID_INPUT"
	CodePostNotFound Code = "POST_NOT_FOUND"
	CodeNotFound     Code = "NOT_FOUND"
	CodeNoPermission Code = "NO_PERMISSION"
	CodeInternal     Code = "INTERNAL"
)

// Error is a domain error carrying the code and intended HTTP status.
type Error struct {
	Code    Code
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// InvalidInput flags malformed ids, out-of-bounds text, or self-chat attempts.
func InvalidInput(format string, args ...interface{}) *Error {
	return &Error{Code: CodeInvalidInput, Status: fiber.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

// PostNotFound flags a reference to a post that does not exist.
func PostNotFound(postID uint) *Error {
	return &Error{Code: CodePostNotFound, Status: fiber.StatusNotFound, Message: fmt.Sprintf("post %d not found", postID)}
}

// NotFound flags a missing entity other than a post.
func NotFound(format string, args ...interface{}) *Error {
	return &Error{Code: CodeNotFound, Status: fiber.StatusNotFound, Message: fmt.Sprintf(format, args...)}
}

// NoPermission flags a caller acting on a chat or message they do not own.
func NoPermission(format string, args ...interface{}) *Error {
	return &Error{Code: CodeNoPermission, Status: fiber.StatusForbidden, Message: fmt.Sprintf(format, args...)}
}

// From extracts the domain error, or wraps unknown errors as a 500.
func From(err error) *Error {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &Error{Code: CodeInternal, Status: fiber.StatusInternalServerError, Message: err.Error()}
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var domainErr *Error
	return errors.As(err, &domainErr) && domainErr.Code == code
}
