package api

import (
	"errors"
	"fmt"
)

// ErrNetworkUnavailable matches every failure that happened before a response arrived.
var ErrNetworkUnavailable = errors.New("network unavailable")

// ErrEmptyResponse is returned when an endpoint that must return a document
// answered 2xx with an empty or null body.
var ErrEmptyResponse = errors.New("empty response")

// RequestFailedError is returned for any non-2xx response. Body is the raw
// response text, unparsed.
type RequestFailedError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *RequestFailedError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// NetworkError wraps a transport-level failure.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetworkUnavailable }

// StatusCode returns the HTTP status of a RequestFailedError anywhere in err's chain, or 0.
func StatusCode(err error) int {
	var rf *RequestFailedError
	if errors.As(err, &rf) {
		return rf.Status
	}
	return 0
}
