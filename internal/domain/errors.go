package domain

import (
	"errors"
	"fmt"
)

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrInvalidDateRange  = errors.New("invalid date range")
	ErrInvalidTransition = errors.New("invalid account state transition")

	ErrNetwork           = errors.New("network failure")
	ErrAuthFailed        = errors.New("authentication failed")
	ErrConflict          = errors.New("already exists")
	ErrServer            = errors.New("server error")
	ErrRejected          = errors.New("request rejected")
	ErrMalformedResponse = errors.New("malformed response")
)

// APIError carries the classification of a failed remote call together with
// a human-readable reason taken from the response body or transport error.
type APIError struct {
	Kind       error
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	switch {
	case e.Message != "" && e.StatusCode != 0:
		return fmt.Sprintf("%s: status %d: %s", e.Kind, e.StatusCode, e.Message)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: status %d", e.Kind, e.StatusCode)
	default:
		return e.Kind.Error()
	}
}

func (e *APIError) Unwrap() error {
	return e.Kind
}

// Reason returns the short text shown next to a failed operation.
func Reason(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		if apiErr.StatusCode != 0 {
			return fmt.Sprintf("Error %d", apiErr.StatusCode)
		}
		return apiErr.Kind.Error()
	}

	return err.Error()
}
