// Package common contains shared constants, sentinel errors and small helpers
// used across invkeeper components.
package common

// AuthorizationHeaderName is the HTTP header (and lowercase gRPC metadata key)
// used to carry the bearer credential on outbound requests.
const AuthorizationHeaderName = "Authorization"

// RequestIDHeaderName carries a per-request correlation id.
const RequestIDHeaderName = "X-Request-ID"

// BearerTokenType is the token type attached to authorized requests.
const BearerTokenType = "Bearer"

// Storage keys of the persisted session record. Both entries are always
// written, read and cleared together.
const (
	TokenStorageKey    = "auth_token"
	IdentityStorageKey = "user_data"
)

// Default REST endpoints of the inventory backend.
const (
	LoginEndpoint    = "/auth/login"
	RegisterEndpoint = "/auth/register"
	LogoutEndpoint   = "/auth/logout"
)

// Default navigation targets.
const (
	LoginPath        = "/login"
	RegisterPath     = "/register"
	AccessDeniedPath = "/access-denied"
	DefaultPath      = "/dashboard"

	// ReturnURLParam is the query parameter carrying the originally requested
	// destination to the login page.
	ReturnURLParam = "returnUrl"
)
