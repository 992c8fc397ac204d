package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(key)
}

func TestNewSealer(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr string
	}{
		{"empty key", "", "encryption key is empty"},
		{"invalid base64", "not-valid-base64!@#$", "base64 decode failed"},
		{"key too short", base64.StdEncoding.EncodeToString(make([]byte, 16)), "must be 32 bytes"},
		{"key too long", base64.StdEncoding.EncodeToString(make([]byte, 64)), "must be 32 bytes"},
		{"valid key", base64.StdEncoding.EncodeToString(make([]byte, 32)), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSealer(tt.key)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, s)
		})
	}
}

func TestSealOpen(t *testing.T) {
	s, err := NewSealer(testKey(t))
	require.NoError(t, err)

	sealed, err := s.Seal("ya29.access-token")
	require.NoError(t, err)
	assert.True(t, IsSealed(sealed))
	assert.NotContains(t, sealed, "ya29")

	again, err := s.Seal("ya29.access-token")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "fresh nonce per seal")

	plain, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "ya29.access-token", plain)
}

func TestSealEmpty(t *testing.T) {
	s, err := NewSealer(testKey(t))
	require.NoError(t, err)
	sealed, err := s.Seal("")
	require.NoError(t, err)
	assert.Empty(t, sealed)
}

func TestOpenPlaintextPassesThrough(t *testing.T) {
	var none *Sealer
	v, err := none.Open("legacy-token")
	require.NoError(t, err)
	assert.Equal(t, "legacy-token", v)

	s, err := NewSealer(testKey(t))
	require.NoError(t, err)
	v, err = s.Open("legacy-token")
	require.NoError(t, err)
	assert.Equal(t, "legacy-token", v)
}

func TestOpenFailures(t *testing.T) {
	s, err := NewSealer(testKey(t))
	require.NoError(t, err)
	other, err := NewSealer(testKey(t))
	require.NoError(t, err)
	sealed, err := s.Seal("secret")
	require.NoError(t, err)

	var none *Sealer
	_, err = none.Open(sealed)
	assert.ErrorIs(t, err, ErrNoKey)

	_, err = other.Open(sealed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "integrity check failed")

	_, err = s.Open(sealedPrefix + "%%%")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base64 decode failed")

	_, err = s.Open(sealedPrefix + base64.StdEncoding.EncodeToString([]byte("short")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too short")

	// flip one byte of the ciphertext
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(sealed, sealedPrefix))
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	_, err = s.Open(sealedPrefix + base64.StdEncoding.EncodeToString(raw))
	require.Error(t, err)
}
