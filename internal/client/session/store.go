// Package session persists the authenticated session between runs.
//
// A session is stored as two entries, the bearer token and the JSON-encoded
// identity, which are always written, read and erased together. Anything that
// cannot be read back cleanly is reported as "no session": callers never have
// to deal with half-written or corrupt records.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/invkeeper/internal/client/models"
	"github.com/dmitrijs2005/invkeeper/internal/common"
	"github.com/dmitrijs2005/invkeeper/internal/logging"
)

var sessionKeys = []string{common.TokenStorageKey, common.IdentityStorageKey}

// Record is the persisted form of a session.
type Record struct {
	Token    string
	Identity models.Identity
}

// Backend is a key/value store able to write a set of entries atomically.
//
// Read returns only the keys that exist. Erase of a missing key is not an
// error.
type Backend interface {
	Write(ctx context.Context, entries map[string][]byte) error
	Read(ctx context.Context, keys []string) (map[string][]byte, error)
	Erase(ctx context.Context, keys []string) error
}

type Store struct {
	backend Backend
	log     logging.Logger
}

func NewStore(backend Backend, log logging.Logger) *Store {
	return &Store{backend: backend, log: log.With("component", "session_store")}
}

// Save replaces the stored record with rec.
func (s *Store) Save(ctx context.Context, rec Record) error {
	if rec.Token == "" {
		return errors.New("session record without token")
	}

	identity, err := json.Marshal(rec.Identity)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}

	err = s.backend.Write(ctx, map[string][]byte{
		common.TokenStorageKey:    []byte(rec.Token),
		common.IdentityStorageKey: identity,
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Load returns the stored record. Absent, partial, unreadable and corrupt
// records all yield ok == false; the cause is logged.
func (s *Store) Load(ctx context.Context) (Record, bool) {
	entries, err := s.backend.Read(ctx, sessionKeys)
	if err != nil {
		s.log.Warn(ctx, "session storage unreadable", "error", fmt.Errorf("%w: %w", common.ErrStorageUnreadable, err))
		return Record{}, false
	}

	rawToken, hasToken := entries[common.TokenStorageKey]
	rawIdentity, hasIdentity := entries[common.IdentityStorageKey]

	switch {
	case !hasToken && !hasIdentity:
		return Record{}, false
	case !hasToken || !hasIdentity || len(rawToken) == 0:
		s.log.Warn(ctx, "partial session record ignored", "has_token", hasToken, "has_identity", hasIdentity)
		return Record{}, false
	}

	var identity models.Identity
	if err := json.Unmarshal(rawIdentity, &identity); err != nil {
		s.log.Warn(ctx, "corrupt identity in session record", "error", err)
		return Record{}, false
	}

	return Record{Token: string(rawToken), Identity: identity}, true
}

// Clear removes the record. Clearing an empty store succeeds.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.backend.Erase(ctx, sessionKeys); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
