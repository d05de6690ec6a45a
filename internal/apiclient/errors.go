package apiclient

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrDetailsRequired is returned for a POST without a body: creating an agent needs the add-agent form
	ErrDetailsRequired = errors.New("request body required, agent details must be collected first")

	ErrUnsafeResourceID = errors.New("resource id is not url safe")
)

// TransportError covers network failures, unexpected status codes and non JSON bodies
type TransportError struct {
	Method     string
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: unexpected status %d: %v", e.Method, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// MalformedEnvelope is returned when a response lacks a key the caller depends on
type MalformedEnvelope struct {
	Missing string
	Reason  string
}

func (e *MalformedEnvelope) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("malformed envelope: %s", e.Reason)
	}
	return fmt.Sprintf("malformed envelope: missing `%s`", e.Missing)
}

func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

func IsMalformed(err error) bool {
	var me *MalformedEnvelope
	return errors.As(err, &me)
}
