package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("already exists")
	ErrAuthMissing      = errors.New("unauthorized: no token provided")
	ErrAuthExpired      = errors.New("token expired, please log in again")
	ErrAuthInvalid      = errors.New("unauthorized: invalid token")
	ErrForbidden        = errors.New("forbidden")
	ErrBlocked          = errors.New("account is blocked")
	ErrBadCredentials   = errors.New("invalid credentials")
	ErrTooLarge         = errors.New("payload too large")
	ErrUnsupportedMedia = errors.New("unsupported file type")
	ErrRateLimited      = errors.New("rate limit exceeded")
	ErrInternal         = errors.New("internal error")
)

// Error carries a client-facing message while still matching its kind with errors.Is.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func New(kind error, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

func Newf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation), errors.Is(err, ErrBadCredentials):
		return http.StatusBadRequest
	case errors.Is(err, ErrAuthMissing), errors.Is(err, ErrAuthExpired):
		return http.StatusUnauthorized
	case errors.Is(err, ErrAuthInvalid), errors.Is(err, ErrForbidden), errors.Is(err, ErrBlocked):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrUnsupportedMedia):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage never leaks the text of unclassified errors.
func PublicMessage(err error) string {
	if HTTPStatus(err) >= http.StatusInternalServerError {
		return ErrInternal.Error()
	}
	return err.Error()
}
