package defs

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

var ErrKVNotFound = errors.New("key not found")

// APIError is the error returned by the REST surface. It carries the HTTP code
// and a detail message that is safe to show to the console user.
type APIError struct {
	code   int
	msg    string
	detail string
	err    error
}

type apiErrorJSON struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func newAPIError(code int) *APIError {
	return &APIError{
		code: code,
		msg:  http.StatusText(code),
	}
}

func ErrBadRequest() *APIError {
	return newAPIError(http.StatusBadRequest)
}

func ErrNotFound() *APIError {
	return newAPIError(http.StatusNotFound)
}

func ErrConflict() *APIError {
	return newAPIError(http.StatusConflict)
}

func ErrInternal() *APIError {
	return newAPIError(http.StatusInternalServerError)
}

func ErrBadGateway() *APIError {
	return newAPIError(http.StatusBadGateway)
}

// WithDetail sets the user facing detail message
func (e *APIError) WithDetail(detail string) *APIError {
	e.detail = detail
	return e
}

// Wrap keeps the underlying error for logging, it is never sent to the client
func (e *APIError) Wrap(err error) *APIError {
	e.err = err
	return e
}

func (e *APIError) Unwrap() error {
	return e.err
}

func (e *APIError) Code() int {
	return e.code
}

// APIError returns the HTTP code and the detail message
func (e *APIError) APIError() (int, string) {
	return e.code, e.detail
}

func (e *APIError) Error() string {
	if e.detail != EmptyString {
		return e.detail
	}

	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}

	return e.msg
}

// JSON returns the serialized error response body
func (e *APIError) JSON() []byte {
	b, _ := json.Marshal(apiErrorJSON{
		Code:   e.code,
		Msg:    e.msg,
		Detail: e.detail,
	})
	return b
}
