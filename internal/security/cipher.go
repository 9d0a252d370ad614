// Package security holds the field encryption and signature verification
// primitives the payment flow depends on.
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const (
	envelopeDelimiter = ":"
	envelopeParts     = 3
)

var (
	ErrMalformedEnvelope = errors.New("malformed ciphertext envelope")
	ErrDecryptFailed     = errors.New("decryption failed")
)

// FieldCipher encrypts individual field values with AES-256-GCM. The
// envelope is hex(nonce):hex(tag):hex(ciphertext); hex never contains the
// delimiter so component boundaries are unambiguous. A FieldCipher is safe
// for concurrent use; every Encrypt call draws a fresh nonce from crypto/rand.
type FieldCipher struct {
	aead cipher.AEAD
}

func NewFieldCipher(key []byte) (*FieldCipher, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("field cipher key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init field cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init field cipher: %w", err)
	}
	return &FieldCipher{aead: aead}, nil
}

// Encrypt returns the ciphertext envelope for plaintext. Empty input passes
// through unchanged.
func (c *FieldCipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	tagStart := len(sealed) - c.aead.Overhead()
	ciphertext, tag := sealed[:tagStart], sealed[tagStart:]

	return strings.Join([]string{
		hex.EncodeToString(nonce),
		hex.EncodeToString(tag),
		hex.EncodeToString(ciphertext),
	}, envelopeDelimiter), nil
}

// Decrypt reverses Encrypt. Malformed or tampered envelopes produce an
// explicit error; the input is never returned as if it were plaintext.
func (c *FieldCipher) Decrypt(envelope string) (string, error) {
	if envelope == "" {
		return "", nil
	}

	parts := strings.Split(envelope, envelopeDelimiter)
	if len(parts) != envelopeParts {
		return "", ErrMalformedEnvelope
	}

	nonce, err := hex.DecodeString(parts[0])
	if err != nil || len(nonce) != c.aead.NonceSize() {
		return "", ErrMalformedEnvelope
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil || len(tag) != c.aead.Overhead() {
		return "", ErrMalformedEnvelope
	}
	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", ErrMalformedEnvelope
	}

	plaintext, err := c.aead.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return "", ErrDecryptFailed
	}
	return string(plaintext), nil
}
