// Package flickr provides a signed-request client for the Flickr REST API
// with pagination helpers, rate-limit courtesy delays, and error
// classification.
package flickr

import (
	"errors"
	"fmt"
)

// Sentinel errors for API error classification.
// Use errors.Is(err, flickr.ErrAuthRequired) to check.
var (
	ErrAuthRequired = errors.New("flickr: auth required")
	ErrNotFound     = errors.New("flickr: not found")
	ErrRateLimited  = errors.New("flickr: rate limited")
	ErrAPIFailure   = errors.New("flickr: api failure")
)

// Remote error codes that map to specific sentinels. The REST envelope
// carries a numeric code alongside stat="fail".
const (
	codeNotFound           = 1
	codeInvalidAuthToken   = 98
	codeLoginFailed        = 99
	codeRateLimitExceeded  = 429
	codeServiceUnavailable = 105
)

// APIError wraps a non-ok REST response with the remote code and message.
// It unwraps to a sentinel so callers can classify with errors.Is.
type APIError struct {
	Method  string // API method that failed, e.g. "flickr.photosets.getList"
	Code    int
	Message string
	Err     error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	return fmt.Sprintf("flickr: %s failed (code %d): %s", e.Method, e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyCode maps a remote error code to a sentinel error.
func classifyCode(code int) error {
	switch code {
	case codeNotFound:
		return ErrNotFound
	case codeInvalidAuthToken, codeLoginFailed:
		return ErrAuthRequired
	case codeRateLimitExceeded, codeServiceUnavailable:
		return ErrRateLimited
	default:
		return ErrAPIFailure
	}
}
