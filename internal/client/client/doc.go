// Package client talks to the inventory REST API.
//
// # Overview
//
// Client is the transport-agnostic contract used by the services layer;
// HTTPClient implements it over net/http with JSON bodies.
//
// Authorization is not handled here: the http.Client handed to NewHTTPClient
// is expected to carry an authorizer.Authorizer round tripper, which attaches
// the bearer token and reacts to 401/403 responses.
//
// # Error Handling
//
// Non-2xx responses are returned as *ResponseError, which unwraps to a
// *common.APIError. Callers match the classification with errors.Is against
// the sentinels in package common. Transport failures are reported with
// common.ErrNetworkUnavailable.
package client
