// Package errors carries a machine-readable [Code] alongside error messages.
//
// The CLI prints [UserMessage] and the HTTP server answers with
// {"code": ..., "message": ...} and the status from [HTTPStatus], so every
// failure a user can cause or observe should be an [*Error]:
//
//	if len(q) > MaxQueryLength {
//	    return errors.New(errors.ErrCodeInvalidQuery, "query too long: %d", len(q))
//	}
//	return errors.Wrap(errors.ErrCodeNetwork, err, "fetch %s", source)
//
// Codes survive wrapping with fmt.Errorf("...: %w", err); [Is] and [GetCode]
// walk the chain to the outermost *Error.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is the stable identifier of an error class, as sent to clients.
type Code string

const (
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidQuery    Code = "INVALID_QUERY"
	ErrCodeInvalidFormat   Code = "INVALID_FORMAT"
	ErrCodeInvalidColor    Code = "INVALID_COLOR"
	ErrCodeInvalidView     Code = "INVALID_VIEW"
	ErrCodeInvalidEvent    Code = "INVALID_EVENT"
	ErrCodeInvalidPath     Code = "INVALID_PATH"
	ErrCodeInvalidDocument Code = "INVALID_DOCUMENT"

	ErrCodeNotFound        Code = "NOT_FOUND"
	ErrCodeCountryNotFound Code = "COUNTRY_NOT_FOUND"
	ErrCodeFileNotFound    Code = "FILE_NOT_FOUND"
	ErrCodeSessionNotFound Code = "SESSION_NOT_FOUND"
	ErrCodeSessionExpired  Code = "SESSION_EXPIRED"

	ErrCodeNetwork   Code = "NETWORK_ERROR"
	ErrCodeTimeout   Code = "TIMEOUT"
	ErrCodeNotLoaded Code = "NOT_LOADED"

	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// statuses maps codes to HTTP statuses. Documents that fail to load or
// decode are upstream failures, hence 502.
var statuses = map[Code]int{
	ErrCodeInvalidInput:  http.StatusBadRequest,
	ErrCodeInvalidQuery:  http.StatusBadRequest,
	ErrCodeInvalidFormat: http.StatusBadRequest,
	ErrCodeInvalidColor:  http.StatusBadRequest,
	ErrCodeInvalidView:   http.StatusBadRequest,
	ErrCodeInvalidEvent:  http.StatusBadRequest,
	ErrCodeInvalidPath:   http.StatusBadRequest,

	ErrCodeNotFound:        http.StatusNotFound,
	ErrCodeCountryNotFound: http.StatusNotFound,
	ErrCodeFileNotFound:    http.StatusNotFound,
	ErrCodeSessionNotFound: http.StatusNotFound,
	ErrCodeSessionExpired:  http.StatusGone,

	ErrCodeNetwork:         http.StatusBadGateway,
	ErrCodeInvalidDocument: http.StatusBadGateway,
	ErrCodeTimeout:         http.StatusGatewayTimeout,
	ErrCodeNotLoaded:       http.StatusServiceUnavailable,
}

// HTTPStatus returns the response status for code, 500 if it has none.
func HTTPStatus(code Code) int {
	if status, ok := statuses[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Error is a coded error. Message is safe to show to users; Cause is for
// logs.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	s := string(e.Code) + ": " + e.Message
	if e.Cause != nil {
		s += ": " + e.Cause.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Cause }

// New returns an *Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap is New with a cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	e := New(code, format, args...)
	e.Cause = cause
	return e
}

func find(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// Is reports whether the outermost *Error in err's chain has code.
func Is(err error, code Code) bool {
	e, ok := find(err)
	return ok && e.Code == code
}

// GetCode returns the code of the outermost *Error in err's chain, or "".
func GetCode(err error) Code {
	if e, ok := find(err); ok {
		return e.Code
	}
	return ""
}

// UserMessage returns the message of the outermost *Error, falling back to
// err.Error(). A nil err yields "".
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if e, ok := find(err); ok {
		return e.Message
	}
	return err.Error()
}
