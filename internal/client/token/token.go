// Package token decodes bearer tokens on the client side.
//
// Signatures are not verified: the client only needs the claims to decide
// whether a stored token is still worth presenting. The server remains the
// authority on validity.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/invkeeper/internal/client/models"
	"github.com/dmitrijs2005/invkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformed is returned for tokens that cannot be decoded into usable claims.
var ErrMalformed = common.ErrTokenMalformed

// Claims is the payload the inventory API puts into its tokens.
type Claims struct {
	Role   string    `json:"role,omitempty"`
	Name   string    `json:"name,omitempty"`
	Email  string    `json:"email,omitempty"`
	UserID models.ID `json:"userId,omitempty"`
	jwt.RegisteredClaims
}

// Expiry returns the exp claim.
func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Expired reports whether the claims are no longer usable at now.
// The boundary is inclusive: a token is expired at the exp second itself.
func (c *Claims) Expired(now time.Time) bool {
	return c.ExpiresAt == nil || now.Unix() >= c.ExpiresAt.Unix()
}

var parser = jwt.NewParser(jwt.WithPaddingAllowed())

// Decode splits raw into its three segments and decodes the payload.
// A token without sub or exp is considered malformed.
func Decode(raw string) (*Claims, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty token", ErrMalformed)
	}

	claims := &Claims{}
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub claim", ErrMalformed)
	}
	if claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing exp claim", ErrMalformed)
	}
	return claims, nil
}

// IsExpired reports whether raw must not be used at now. Tokens that cannot be
// decoded are treated as expired.
func IsExpired(raw string, now time.Time) bool {
	claims, err := Decode(raw)
	if err != nil {
		return true
	}
	return claims.Expired(now)
}

// ExpiresAt returns the expiry instant encoded in raw.
func ExpiresAt(raw string) (time.Time, error) {
	claims, err := Decode(raw)
	if err != nil {
		return time.Time{}, err
	}
	return claims.Expiry(), nil
}

// IsMalformed reports whether err came from decoding a bad token.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformed)
}
