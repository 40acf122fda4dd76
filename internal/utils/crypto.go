// internal/utils/crypto.go
package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

// SealedPrefix marks values produced by SealSecret
const SealedPrefix = "enc:"

func gcmFor(passphrase string) (cipher.AEAD, error) {
	key := sha256.Sum256([]byte(passphrase))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// SealSecret encrypts plaintext with AES-GCM under a key derived from passphrase.
// An empty passphrase or plaintext returns the input unchanged.
func SealSecret(plaintext, passphrase string) (string, error) {
	if passphrase == "" || plaintext == "" || IsSealed(plaintext) {
		return plaintext, nil
	}

	gcm, err := gcmFor(passphrase)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return SealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// OpenSecret reverses SealSecret. Values without the sealed prefix pass through.
func OpenSecret(value, passphrase string) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}
	if passphrase == "" {
		return "", fmt.Errorf("sealed secret requires a passphrase")
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, SealedPrefix))
	if err != nil {
		return "", err
	}

	gcm, err := gcmFor(passphrase)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(raw) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	plaintext, err := gcm.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// IsSealed reports whether value was produced by SealSecret
func IsSealed(value string) bool {
	return strings.HasPrefix(value, SealedPrefix)
}

// GenerateSecureKey generates a cryptographically secure random key of specified length
func GenerateSecureKey(length int) ([]byte, error) {
	if length <= 0 {
		return nil, fmt.Errorf("key length must be greater than 0")
	}

	key := make([]byte, length)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate secure key: %w", err)
	}
	return key, nil
}
