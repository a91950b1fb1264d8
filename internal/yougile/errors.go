package yougile

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound means the entity does not exist on the source side,
	// which is a normal answer during dependency resolution.
	ErrNotFound = errors.New("yougile: not found")
	// ErrAuth means the API key was rejected.
	ErrAuth = errors.New("yougile: authentication failed")
	// ErrForbidden means the key lacks access to the entity.
	ErrForbidden = errors.New("yougile: forbidden")
)

// RateLimitError is returned when retries were exhausted while the API
// kept answering 429.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("yougile: rate limited, retry after %s", e.RetryAfter)
}

// APIError covers the remaining non-2xx answers.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("yougile: %s (status %d)", e.Message, e.StatusCode)
}
