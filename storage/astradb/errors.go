package astradb

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrInvalidConfig indicates a missing or malformed connection setting.
	ErrInvalidConfig = errors.New("invalid astradb configuration")

	// ErrRequestFailed indicates the request never produced an HTTP response.
	ErrRequestFailed = errors.New("astradb request failed")

	// ErrAPI is matched by every *APIError.
	ErrAPI = errors.New("astradb api error")
)

// errorCodeAlreadyExists is reported by insertMany for an _id that is already stored.
const errorCodeAlreadyExists = "DOCUMENT_ALREADY_EXISTS"

// ErrorDetail is one entry of the Data API "errors" array.
type ErrorDetail struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode,omitempty"`
}

// APIError is a rejected Data API command, either a non-2xx HTTP status or
// a 2xx response carrying an "errors" array.
type APIError struct {
	Command    string
	StatusCode int
	Details    []ErrorDetail
	Body       string
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "astradb %s failed: status %d", e.Command, e.StatusCode)
	for _, d := range e.Details {
		b.WriteString("; ")
		if d.ErrorCode != "" {
			b.WriteString(d.ErrorCode)
			b.WriteString(": ")
		}
		b.WriteString(d.Message)
	}
	if len(e.Details) == 0 && e.Body != "" {
		b.WriteString(": ")
		b.WriteString(e.Body)
	}
	return b.String()
}

func (e *APIError) Unwrap() error { return ErrAPI }

// Retryable reports whether the same request may succeed later.
func (e *APIError) Retryable() bool {
	switch {
	case e.StatusCode == http.StatusRequestTimeout,
		e.StatusCode == http.StatusTooManyRequests,
		e.StatusCode >= 500:
		return true
	default:
		return false
	}
}
