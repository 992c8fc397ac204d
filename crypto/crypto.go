// Package crypto seals OAuth tokens before they are written to the database.
// Values are encrypted with AES-256-GCM and stored as "enc:v1:" followed by
// base64(nonce || ciphertext || tag). Values without the prefix are returned
// unchanged by Open, so tokens stored before a key was configured still load.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const sealedPrefix = "enc:v1:"

// ErrNoKey is returned when a sealed value is read without a Sealer.
var ErrNoKey = errors.New("token is encrypted but no TOKEN_ENCRYPTION_KEY is configured")

// Sealer encrypts and decrypts token strings with one 256-bit key.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer builds a Sealer from a base64-encoded 32-byte key
// (openssl rand -base64 32).
func NewSealer(base64Key string) (*Sealer, error) {
	if base64Key == "" {
		return nil, errors.New("encryption key is empty")
	}
	key, err := base64.StdEncoding.DecodeString(base64Key)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key: base64 decode failed: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("invalid encryption key: must be 32 bytes (256 bits), got %d bytes", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// Seal encrypts plaintext. The empty string stays empty so absent refresh
// tokens remain absent.
func (s *Sealer) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	out := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.StdEncoding.EncodeToString(out), nil
}

// Open decrypts a value produced by Seal. A nil Sealer or an unsealed value
// passes plaintext through; a sealed value with a nil Sealer is ErrNoKey.
func (s *Sealer) Open(value string) (string, error) {
	enc, sealed := strings.CutPrefix(value, sealedPrefix)
	if !sealed {
		return value, nil
	}
	if s == nil {
		return "", ErrNoKey
	}
	raw, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return "", fmt.Errorf("base64 decode failed: %w", err)
	}
	n := s.aead.NonceSize()
	if len(raw) < n {
		return "", fmt.Errorf("ciphertext too short: expected at least %d bytes, got %d", n, len(raw))
	}
	plain, err := s.aead.Open(nil, raw[:n], raw[n:], nil)
	if err != nil {
		// no detail: it would only help an attacker
		return "", errors.New("decryption failed: authentication or integrity check failed")
	}
	return string(plain), nil
}

// IsSealed reports whether value was produced by Seal.
func IsSealed(value string) bool { return strings.HasPrefix(value, sealedPrefix) }
