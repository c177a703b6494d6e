package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies request failures
type Kind int

const (
	KindNetwork Kind = iota + 1
	KindTimeout
	KindUnauthorized
	KindValidation // 4xx other than 401; Message comes from the response body
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindUnauthorized:
		return "unauthorized"
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// Error is a failed API call
type Error struct {
	Kind    Kind
	Status  int    // 0 when no response was received
	Message string // server supplied message, if any
	Method  string
	Path    string
	Err     error // transport error, if any
}

func (e *Error) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
	default:
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status >= 500:
		return KindServer
	default:
		return KindValidation
	}
}

// IsUnauthorized reports whether err means the backend rejected our credentials.
// For a failed refresh this looks at the original request, not the refresh call.
func IsUnauthorized(err error) bool {
	var refreshErr *RefreshError
	if errors.As(err, &refreshErr) {
		return IsUnauthorized(refreshErr.Original)
	}
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindUnauthorized
}

// StatusCode returns the HTTP status carried by err, or 0
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Message turns an error into something fit to show a user
func Message(err error) string {
	if err == nil {
		return ""
	}

	var refreshErr *RefreshError
	if errors.As(err, &refreshErr) {
		return "Your session has expired. Run 'pagecraft login' to sign in again."
	}

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return err.Error()
	}

	switch apiErr.Kind {
	case KindNetwork:
		return "Could not reach the server. Check your connection and the API URL."
	case KindTimeout:
		return "The server took too long to respond."
	case KindUnauthorized:
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return "You need to sign in first."
	case KindValidation:
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return http.StatusText(apiErr.Status)
	default:
		return "Something went wrong on the server. Please try again later."
	}
}
