package httpclient

import (
	"fmt"

	"github.com/kart-io/catalog-console/pkg/utils/json"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	// Message is the server supplied message, or a generic one.
	Message string `json:"message"`
	// Status is the HTTP status code of the response.
	Status int `json:"status"`
	// Timestamp is preserved verbatim from the error body when present.
	Timestamp string `json:"timestamp,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// IsServerError reports a 5xx status.
func (e *APIError) IsServerError() bool {
	return e.Status >= 500
}

// IsConflict reports a 409 status.
func (e *APIError) IsConflict() bool {
	return e.Status == 409
}

// parseError builds an APIError from a failed response. The body is expected
// to be {message?, status?, timestamp?}; anything else keeps the defaults.
func parseError(status int, body []byte) *APIError {
	e := &APIError{
		Message: fmt.Sprintf("Request failed with status %d", status),
		Status:  status,
	}
	if len(body) == 0 {
		return e
	}

	var envelope map[string]any
	if err := json.Unmarshal(body, &envelope); err != nil {
		return e
	}
	if msg, ok := envelope["message"].(string); ok && msg != "" {
		e.Message = msg
	}
	if ts, ok := envelope["timestamp"].(string); ok {
		e.Timestamp = ts
	}
	return e
}
