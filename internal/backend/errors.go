package backend

import (
	"encoding/json"
	"errors"
	"net/http"
)

// APIError is a non-2xx response from the backend. Detail carries the
// server's "detail" or "message" field, falling back to the HTTP status
// text when the body has neither.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return e.Detail
}

// newAPIError extracts the most useful message from an error response body.
func newAPIError(status int, body []byte) *APIError {
	detail := http.StatusText(status)

	var payload struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Detail != "" {
			detail = payload.Detail
		} else if payload.Message != "" {
			detail = payload.Message
		}
	}

	return &APIError{Status: status, Detail: detail}
}

// AsAPIError reports whether err wraps an *APIError, assigning it to target.
func AsAPIError(err error, target **APIError) bool {
	return errors.As(err, target)
}

// IsNotFound reports whether err is a backend 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}
