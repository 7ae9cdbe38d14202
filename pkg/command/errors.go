package command

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies pipeline failures. Validation and not-found abort the
// operation and are client-correctable; upstream and parse failures come from
// the model provider and are not.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindUpstream
	KindParse
)

// Error is a pipeline failure with an HTTP status mapping for the API layer.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Err }

func validationErr(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

func notFoundErr(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Status: http.StatusNotFound, Message: fmt.Sprintf(format, args...)}
}

func upstreamErr(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindUpstream, Status: http.StatusInternalServerError, Message: fmt.Sprintf(format, args...), Err: err}
}

func parseErr(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindParse, Status: http.StatusInternalServerError, Message: fmt.Sprintf(format, args...), Err: err}
}

// IsKind reports whether err is a pipeline error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// StatusOf maps an error to its HTTP status, defaulting to 500.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return http.StatusInternalServerError
}
