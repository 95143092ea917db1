// Package apperror classifies failures so the HTTP layer can map them to a
// status code and a stable error body.
package apperror

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindUpstream
)

var kindInfo = map[Kind]struct {
	status int
	code   string
}{
	KindInternal:     {http.StatusInternalServerError, "internal"},
	KindValidation:   {http.StatusBadRequest, "validation_error"},
	KindUnauthorized: {http.StatusUnauthorized, "unauthorized"},
	KindForbidden:    {http.StatusForbidden, "forbidden"},
	KindNotFound:     {http.StatusNotFound, "not_found"},
	KindConflict:     {http.StatusConflict, "conflict"},
	KindUpstream:     {http.StatusBadGateway, "upstream_failure"},
}

func (k Kind) Status() int {
	return kindInfo[k].status
}

func (k Kind) Code() string {
	return kindInfo[k].code
}

// Error carries a kind, a message safe to show to clients, and an optional
// underlying cause that is only logged.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *Error { return New(KindValidation, message) }
func Forbidden(message string) *Error  { return New(KindForbidden, message) }
func NotFound(message string) *Error   { return New(KindNotFound, message) }
func Conflict(message string) *Error   { return New(KindConflict, message) }

// ErrDuplicateKey is wrapped by repositories when a unique index rejects a write.
var ErrDuplicateKey = New(KindConflict, "duplicate key")

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// PublicMessage is the message to return to a client. Internal and upstream
// failures never expose their cause.
func PublicMessage(err error) string {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return "internal server error"
	}
	switch appErr.Kind {
	case KindInternal:
		return "internal server error"
	case KindUpstream:
		if appErr.Message != "" {
			return appErr.Message
		}
		return "upstream service failure"
	}
	return appErr.Message
}
