// Package models defines the wire types exchanged with the inventory API and
// the identity attached to a client session.
package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
)

// ID is a server-assigned identifier. The API emits numeric ids, but string
// ids are accepted so identities stay readable if the backend changes type.
type ID string

func (id ID) String() string { return string(id) }

// MarshalJSON writes canonical integers as JSON numbers and everything else,
// including "007" or "+5", as strings.
func (id ID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("id must be a number or a string")
	}
	*id = ID(n.String())
	return nil
}

// Identity describes the authenticated user. It is replaced, never mutated,
// when a new session is established.
type Identity struct {
	ID    ID     `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role,omitempty"`
}

// HasRole reports whether the identity carries one of roles.
func (i Identity) HasRole(roles ...string) bool {
	for _, r := range roles {
		if r == i.Role {
			return true
		}
	}
	return false
}

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the registration request body.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by both login and register.
type AuthResponse struct {
	Token string   `json:"token"`
	User  Identity `json:"user"`
}
