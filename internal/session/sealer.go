package session

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

var errUnseal = errors.New("session value cannot be opened")

// Sealer encrypts values before they reach the KV. The zero value passes
// values through unchanged.
type Sealer struct {
	key *[32]byte
}

// NewSealer derives a secretbox key from secret. An empty secret disables sealing.
func NewSealer(secret string) Sealer {
	if secret == "" {
		return Sealer{}
	}
	key := sha256.Sum256([]byte(secret))
	return Sealer{key: &key}
}

// Seal encrypts plaintext into a base64 string.
func (s Sealer) Seal(plaintext string) (string, error) {
	if s.key == nil {
		return plaintext, nil
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, s.key)
	return base64.RawURLEncoding.EncodeToString(box), nil
}

// Open reverses Seal.
func (s Sealer) Open(sealed string) (string, error) {
	if s.key == nil {
		return sealed, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil || len(raw) < nonceSize {
		return "", errUnseal
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, s.key)
	if !ok {
		return "", errUnseal
	}
	return string(plain), nil
}
