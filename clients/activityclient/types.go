package activityclient

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrTransport is returned when a request never completed.
	ErrTransport = errors.New("transport error")
	// ErrDecode is returned when a response body is not the expected JSON.
	ErrDecode = errors.New("decode error")
)

// APIError is returned when the API answers with a non-2xx status.
type APIError struct {
	StatusCode int
	// Detail is the server supplied reason, empty when the body had none.
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status code: %d: %s", e.StatusCode, e.Detail)
}

// Result is the body of a successful mutation.
type Result struct {
	Message string `json:"message"`
}

// response is the union of the success and error bodies.
// detail is usually a string, but validation failures carry a list of objects.
type response struct {
	Message string          `json:"message"`
	Detail  json.RawMessage `json:"detail"`
}

// detailText returns detail when it is a JSON string.
func (r response) detailText() string {
	if len(r.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(r.Detail, &s); err != nil {
		return ""
	}
	return s
}
