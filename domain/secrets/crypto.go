// Package secrets implements the platform's secret engine: authenticated
// envelope encryption at rest and scope-checked template inlining for
// pipeline and deployment configuration.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// devModeSeed is the fixed string dev mode derives its master key from when
// no explicit key is configured. Never use this outside dev mode.
const devModeSeed = "platform-dev-mode-insecure-master-key"

// Crypto provides AES-256-GCM envelope encryption with a 32-byte key.
// Ciphertext layout is nonce (12 bytes, random per call) || gcm_output,
// matching the envelope scheme used elsewhere in the service for at-rest
// credential material.
type Crypto struct {
	key []byte
}

// NewCrypto builds a Crypto from a hex-encoded 256-bit key. If hexKey is
// empty and devMode is true, the key is derived deterministically from a
// fixed string so local development works without provisioning a key.
func NewCrypto(hexKey string, devMode bool) (*Crypto, error) {
	if hexKey == "" {
		if !devMode {
			return &Crypto{}, nil
		}
		sum := sha256.Sum256([]byte(devModeSeed))
		return &Crypto{key: sum[:]}, nil
	}

	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("secrets: master key must be hex-encoded: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("secrets: master key must be 256 bits (32 bytes), got %d", len(key))
	}
	return &Crypto{key: key}, nil
}

// IsConfigured reports whether a usable key is set.
func (c *Crypto) IsConfigured() bool {
	return len(c.key) == 32
}

// Encrypt seals plaintext, returning nonce || gcm_output.
func (c *Crypto) Encrypt(plaintext []byte) ([]byte, error) {
	if !c.IsConfigured() {
		return nil, fmt.Errorf("secrets: master key not configured")
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, fmt.Errorf("secrets: new cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("secrets: new gcm: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("secrets: generate nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a nonce||gcm_output envelope produced by Encrypt. It rejects
// inputs shorter than the nonce size and any authentication failure (wrong
// key, truncation, bit-flip) without distinguishing the cause.
func (c *Crypto) Decrypt(envelope []byte) ([]byte, error) {
	if !c.IsConfigured() {
		return nil, fmt.Errorf("secrets: master key not configured")
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, fmt.Errorf("secrets: new cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("secrets: new gcm: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(envelope) < nonceSize {
		return nil, fmt.Errorf("secrets: ciphertext too short")
	}

	nonce, data := envelope[:nonceSize], envelope[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, data, nil)
	if err != nil {
		return nil, fmt.Errorf("secrets: decryption failed")
	}

	return plaintext, nil
}

func (c *Crypto) EncryptString(plaintext string) ([]byte, error) {
	return c.Encrypt([]byte(plaintext))
}

func (c *Crypto) DecryptString(envelope []byte) (string, error) {
	plaintext, err := c.Decrypt(envelope)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
