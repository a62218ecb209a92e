package cache

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an operational cache error.
type Kind string

const (
	KindCacheRead  Kind = "cache_read"
	KindProducer   Kind = "producer"
	KindCacheWrite Kind = "cache_write"
)

// StatusCoder lets an underlying error supply its own status code.
type StatusCoder interface {
	StatusCode() int
}

// Error is an operational error from a cached operation.
type Error struct {
	Kind   Kind
	Status int
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP-style status code for this error.
func (e *Error) StatusCode() int {
	return e.Status
}

// newError wraps err with a kind. The status code comes from the underlying
// error when it supplies one, otherwise 500.
func newError(kind Kind, err error) *Error {
	status := http.StatusInternalServerError
	var sc StatusCoder
	if errors.As(err, &sc) {
		status = sc.StatusCode()
	}
	return &Error{Kind: kind, Status: status, Err: err}
}
