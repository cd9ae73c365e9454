package client

import (
	"net/http"

	"github.com/dmitrijs2005/invkeeper/internal/client/models"
	"github.com/dmitrijs2005/invkeeper/internal/common"
)

// ResponseError is a non-2xx answer from the API.
type ResponseError struct {
	Err  *common.APIError
	Body models.ErrorResponse
}

func (e *ResponseError) Error() string { return e.Err.Error() }

func (e *ResponseError) Unwrap() error { return e.Err }

// Status returns the HTTP status code.
func (e *ResponseError) Status() int { return e.Err.Status }

// newResponseError classifies a non-2xx answer to path. A 401 means bad
// credentials only on the login and register endpoints; anywhere else the
// server no longer accepts the session.
func newResponseError(path string, status int, body models.ErrorResponse) *ResponseError {
	if status == http.StatusUnauthorized && !isCredentialEndpoint(path) {
		return &ResponseError{Err: common.NewSessionExpiredError(status, body.Text()), Body: body}
	}
	return &ResponseError{Err: common.NewAPIError(status, body.Text()), Body: body}
}

func isCredentialEndpoint(path string) bool {
	return path == common.LoginEndpoint || path == common.RegisterEndpoint
}

func unavailable(err error) *common.APIError {
	return &common.APIError{
		Kind:    common.ErrNetworkUnavailable,
		Message: "Cannot reach the server. Check your connection: " + err.Error(),
	}
}
