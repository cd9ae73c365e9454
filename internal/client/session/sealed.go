package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/invkeeper/internal/common"
	"github.com/dmitrijs2005/invkeeper/internal/cryptox"
)

// SaltStorageKey holds the argon2 salt of a SealedBackend, in the clear.
const SaltStorageKey = "seal_salt"

// SealedBackend encrypts every value before handing it to the wrapped backend.
// Values that fail to decrypt are reported as unreadable.
type SealedBackend struct {
	inner      Backend
	passphrase []byte

	mu  sync.Mutex
	key []byte
}

func NewSealedBackend(inner Backend, passphrase string) *SealedBackend {
	return &SealedBackend{inner: inner, passphrase: []byte(passphrase)}
}

type sealedValue struct {
	Key   string `json:"k"`
	Value []byte `json:"v"`
}

// deriveKey loads the salt, creating it when create is set. A nil key with a
// nil error means nothing has been sealed yet.
func (s *SealedBackend) deriveKey(ctx context.Context, create bool) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key != nil {
		return s.key, nil
	}

	got, err := s.inner.Read(ctx, []string{SaltStorageKey})
	if err != nil {
		return nil, err
	}
	salt, ok := got[SaltStorageKey]
	if !ok || len(salt) != cryptox.SaltSize {
		if !create {
			return nil, nil
		}
		salt = cryptox.NewSalt()
		if err := s.inner.Write(ctx, map[string][]byte{SaltStorageKey: salt}); err != nil {
			return nil, err
		}
	}

	s.key = cryptox.DeriveKey(s.passphrase, salt)
	return s.key, nil
}

func (s *SealedBackend) Write(ctx context.Context, entries map[string][]byte) error {
	key, err := s.deriveKey(ctx, true)
	if err != nil {
		return err
	}

	sealed := make(map[string][]byte, len(entries))
	for k, v := range entries {
		// the entry name is sealed with the value so entries cannot be swapped
		b, err := cryptox.SealJSON(sealedValue{Key: k, Value: v}, key)
		if err != nil {
			return fmt.Errorf("seal %s: %w", k, err)
		}
		sealed[k] = b
	}
	return s.inner.Write(ctx, sealed)
}

func (s *SealedBackend) Read(ctx context.Context, keys []string) (map[string][]byte, error) {
	key, err := s.deriveKey(ctx, false)
	if err != nil {
		return nil, err
	}

	raw, err := s.inner.Read(ctx, keys)
	if err != nil {
		return nil, err
	}
	if len(raw) > 0 && key == nil {
		return nil, fmt.Errorf("%w: sealed entries without salt", common.ErrStorageUnreadable)
	}

	out := make(map[string][]byte, len(raw))
	for k, b := range raw {
		var v sealedValue
		if err := cryptox.OpenJSON(b, key, &v); err != nil || v.Key != k {
			return nil, fmt.Errorf("%w: cannot open %s", common.ErrStorageUnreadable, k)
		}
		out[k] = v.Value
	}
	return out, nil
}

func (s *SealedBackend) Erase(ctx context.Context, keys []string) error {
	return s.inner.Erase(ctx, keys)
}
