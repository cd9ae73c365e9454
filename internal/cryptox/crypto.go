// Package cryptox seals small JSON payloads at rest with a passphrase-derived key.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/json"
	"errors"

	"github.com/dmitrijs2005/invkeeper/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	// KeySize is the length of keys returned by DeriveKey (AES-256).
	KeySize = 32
	// SaltSize is the length of salts produced by NewSalt.
	SaltSize = 16
)

var ErrCiphertextTooShort = errors.New("ciphertext too short")

// NewSalt returns a fresh random salt for DeriveKey.
func NewSalt() []byte {
	return common.GenerateRandByteArray(SaltSize)
}

// DeriveKey stretches passphrase into an AES-256 key with argon2id.
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, KeySize)
}

// SealJSON serializes v to JSON and encrypts it using AES-GCM.
//
// The result is nonce||ciphertext, so it can be stored as a single opaque
// value. A new random nonce is generated on every call.
func SealJSON(v any, key []byte) ([]byte, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(plaintext)

	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := common.GenerateRandByteArray(aesgcm.NonceSize())

	return aesgcm.Seal(nonce, nonce, plaintext, nil), nil
}

// OpenJSON reverses SealJSON and unmarshals the plaintext into v.
// Any tampering with the sealed value makes it fail.
func OpenJSON(sealed, key []byte, v any) error {
	aesgcm, err := newGCM(key)
	if err != nil {
		return err
	}

	ns := aesgcm.NonceSize()
	if len(sealed) < ns {
		return ErrCiphertextTooShort
	}

	plaintext, err := aesgcm.Open(nil, sealed[:ns], sealed[ns:], nil)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(plaintext)

	return json.Unmarshal(plaintext, v)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
