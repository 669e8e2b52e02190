package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrAuthExpired is returned when a 401 could not be recovered by a refresh.
// Credentials and the session have already been cleared when it surfaces.
var ErrAuthExpired = errors.New("session expired, please sign in again")

// NetworkError is a transport failure: no HTTP response was received.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPError is a non-2xx response other than a handled 401.
type HTTPError struct {
	Status  int
	Message string
	Code    string
}

func (e *HTTPError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// ParseError is a 2xx response whose body is not valid JSON (or not the expected shape).
type ParseError struct {
	Status int
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid response format (status %d): %v", e.Status, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsStatus reports whether err is an HTTPError with the given status.
func IsStatus(err error, status int) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.Status == status
}

// Message returns user-facing text for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var (
		httpErr  *HTTPError
		netErr   *NetworkError
		parseErr *ParseError
	)
	switch {
	case errors.Is(err, ErrAuthExpired):
		return "Session expired. Please sign in again."
	case errors.As(err, &httpErr):
		return httpErr.Message
	case errors.As(err, &netErr):
		return "Network error: unable to reach the server"
	case errors.As(err, &parseErr):
		return "Invalid response format"
	default:
		return err.Error()
	}
}

// errorBody is the structured error shape servers send.
type errorBody struct {
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Code    json.RawMessage `json:"code"`
}

// newHTTPError builds an HTTPError from a response body, preferring
// "error" over "message" and falling back to the status text.
func newHTTPError(status int, body []byte) *HTTPError {
	e := &HTTPError{Status: status, Message: statusText(status)}

	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return e
	}
	switch {
	case parsed.Error != "":
		e.Message = parsed.Error
	case parsed.Message != "":
		e.Message = parsed.Message
	}
	if len(parsed.Code) > 0 && string(parsed.Code) != "null" {
		e.Code = strings.Trim(string(parsed.Code), `"`)
	}
	return e
}

func statusText(status int) string {
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("status %d", status)
}
