package common

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// Authentication / authorization failures reported by the backend.
	ErrAuthRejected  = errors.New("invalid credentials")
	ErrAuthForbidden = errors.New("access forbidden")

	// Session lifecycle.
	ErrSessionExpired = errors.New("session expired")
	ErrStaleResponse  = errors.New("response superseded by a newer session state")

	// Recovered locally, normalized to "no session".
	ErrTokenMalformed    = errors.New("token malformed")
	ErrStorageUnreadable = errors.New("session storage unreadable")

	// Optimistic updates.
	ErrVersionConflict   = errors.New("version conflict")
	ErrUnexpectedVersion = errors.New("unexpected resource version")
	ErrValidation        = errors.New("validation error")

	// Transport / backend.
	ErrNetworkUnavailable = errors.New("network unavailable")
	ErrServerError        = errors.New("server error")
	ErrNotFound           = errors.New("not found")
	ErrUnknown            = errors.New("unknown error")
)

// APIError is a failure returned by the backend, classified into the sentinel
// taxonomy above. Kind is one of the sentinels and is what errors.Is matches.
type APIError struct {
	Kind    error
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%v (status %d)", e.Kind, e.Status)
	}
	return fmt.Sprintf("%v (status %d): %s", e.Kind, e.Status, e.Message)
}

func (e *APIError) Unwrap() error { return e.Kind }

// KindForStatus maps an HTTP status code to the error taxonomy.
func KindForStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized:
		return ErrAuthRejected
	case status == http.StatusForbidden:
		return ErrAuthForbidden
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusConflict:
		return ErrVersionConflict
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return ErrValidation
	case status >= 500:
		return ErrServerError
	default:
		return ErrUnknown
	}
}

// NewAPIError builds an APIError for status. An empty message is replaced by a
// user-displayable default for the well-known statuses.
func NewAPIError(status int, message string) *APIError {
	kind := KindForStatus(status)
	if message == "" {
		message = defaultMessage(status)
	}
	return &APIError{Kind: kind, Status: status, Message: message}
}

// SessionExpiredMessage is shown when a call fails because the session is no
// longer accepted.
const SessionExpiredMessage = "Your session has expired. Please sign in again."

// NewSessionExpiredError reports a session that ended while a call was made.
// Status is zero when the expiry was detected before sending.
func NewSessionExpiredError(status int, message string) *APIError {
	if message == "" {
		message = SessionExpiredMessage
	}
	return &APIError{Kind: ErrSessionExpired, Status: status, Message: message}
}

func defaultMessage(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "Invalid credentials. Please check your email and password."
	case http.StatusForbidden:
		return "Access forbidden. You do not have permission."
	case http.StatusNotFound:
		return "Service not found. Please contact support."
	case http.StatusInternalServerError:
		return "Server error. Please try again later."
	default:
		return ""
	}
}
