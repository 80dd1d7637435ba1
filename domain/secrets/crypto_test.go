package secrets

import (
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateTestKey(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return hex.EncodeToString(key)
}

func TestNewCrypto_ValidKey(t *testing.T) {
	crypto, err := NewCrypto(generateTestKey(t), false)
	require.NoError(t, err)
	assert.True(t, crypto.IsConfigured())
}

func TestNewCrypto_EmptyKeyNoDevMode(t *testing.T) {
	crypto, err := NewCrypto("", false)
	require.NoError(t, err)
	assert.False(t, crypto.IsConfigured())
}

func TestNewCrypto_EmptyKeyDevMode(t *testing.T) {
	crypto, err := NewCrypto("", true)
	require.NoError(t, err)
	assert.True(t, crypto.IsConfigured())
}

func TestNewCrypto_InvalidHex(t *testing.T) {
	_, err := NewCrypto("not-hex-at-all", false)
	assert.Error(t, err)
}

func TestNewCrypto_WrongKeyLength(t *testing.T) {
	shortKey := hex.EncodeToString(make([]byte, 16))
	_, err := NewCrypto(shortKey, false)
	assert.Error(t, err)
}

func TestEncryptDecrypt_Roundtrip(t *testing.T) {
	crypto, err := NewCrypto(generateTestKey(t), false)
	require.NoError(t, err)

	plaintext := []byte("super secret value")
	ciphertext, err := crypto.Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ciphertext)

	decrypted, err := crypto.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestDecrypt_WrongKeyFails(t *testing.T) {
	crypto1, _ := NewCrypto(generateTestKey(t), false)
	crypto2, _ := NewCrypto(generateTestKey(t), false)

	ciphertext, err := crypto1.Encrypt([]byte("data"))
	require.NoError(t, err)

	_, err = crypto2.Decrypt(ciphertext)
	assert.Error(t, err)
}

func TestDecrypt_BitFlipFails(t *testing.T) {
	crypto, _ := NewCrypto(generateTestKey(t), false)
	ciphertext, err := crypto.Encrypt([]byte("data"))
	require.NoError(t, err)

	tampered := append([]byte(nil), ciphertext...)
	tampered[len(tampered)-1] ^= 0x01

	_, err = crypto.Decrypt(tampered)
	assert.Error(t, err)
}

func TestDecrypt_TooShortFails(t *testing.T) {
	crypto, _ := NewCrypto(generateTestKey(t), false)
	_, err := crypto.Decrypt([]byte("short"))
	assert.Error(t, err)
}

func TestEncrypt_NoncesDiffer(t *testing.T) {
	crypto, _ := NewCrypto(generateTestKey(t), false)
	a, err := crypto.Encrypt([]byte("same message"))
	require.NoError(t, err)
	b, err := crypto.Encrypt([]byte("same message"))
	require.NoError(t, err)

	assert.NotEqual(t, a[:12], b[:12], "nonces must differ across encryptions")
}
