package gateway

import (
	"errors"
	"net/http"

	"github.com/google/go-github/v81/github"
)

// NetworkError reports a transport or HTTP failure of a gateway call.
// Error returns the message supplied by the origin when one is available.
type NetworkError struct {
	Op         string
	Message    string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Op + ": network error"
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// newNetworkError normalizes a go-github error. The message prefers the
// origin's error body over the formatted request line go-github produces.
func newNetworkError(op string, resp *github.Response, err error) *NetworkError {
	ne := &NetworkError{Op: op, Err: err, Message: err.Error()}
	if resp != nil && resp.Response != nil {
		ne.StatusCode = resp.StatusCode
	}

	var rle *github.RateLimitError
	var arle *github.AbuseRateLimitError
	var er *github.ErrorResponse
	switch {
	case errors.As(err, &rle):
		if rle.Message != "" {
			ne.Message = rle.Message
		}
		if ne.StatusCode == 0 {
			ne.StatusCode = http.StatusForbidden
		}
	case errors.As(err, &arle):
		if arle.Message != "" {
			ne.Message = arle.Message
		}
	case errors.As(err, &er):
		if er.Message != "" {
			ne.Message = er.Message
		}
		if ne.StatusCode == 0 && er.Response != nil {
			ne.StatusCode = er.Response.StatusCode
		}
	}
	return ne
}
