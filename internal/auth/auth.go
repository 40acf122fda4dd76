// internal/auth/auth.go
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Corphon/AICodeReviewer/internal/utils"
)

var (
	// ErrInvalidToken token format or signature mismatch
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired token past its expiry
	ErrTokenExpired = errors.New("token has expired")
)

// DefaultExpiration is the lifetime of a login token.
const DefaultExpiration = 24 * time.Hour

const devSecret = "dev_auth_key_for_testing_purposes_only_"

// TokenConfig holds the configuration for token generation
type TokenConfig struct {
	Secret     []byte
	Expiration time.Duration
}

// Token represents an authentication token
type Token struct {
	UserID    string `json:"user_id"`
	IsAdmin   bool   `json:"is_admin"`
	ExpiresAt int64  `json:"expires_at"`
	IssuedAt  int64  `json:"issued_at"`
}

// NewTokenConfig builds a 32-byte signing key. An empty secret falls back to a
// fixed key in debug mode and to a random key otherwise, so tokens do not
// survive a restart.
func NewTokenConfig(secret string, debug bool) (*TokenConfig, error) {
	var key []byte
	switch {
	case secret != "":
		key = []byte(secret)
	case debug:
		key = []byte(devSecret)
		utils.GetLogger().Warn("⚠️ 开发模式下使用固定认证密钥，生产环境请设置 AUTH_SECRET_KEY", nil)
	default:
		random, err := utils.GenerateSecureKey(32)
		if err != nil {
			return nil, fmt.Errorf("generate auth key: %w", err)
		}
		key = random
	}

	// 统一为 32 字节
	padded := make([]byte, 32)
	copy(padded, key)

	return &TokenConfig{Secret: padded, Expiration: DefaultExpiration}, nil
}

// GenerateToken creates a new authentication token
func GenerateToken(userID string, isAdmin bool, config *TokenConfig) (string, error) {
	if config == nil || len(config.Secret) == 0 {
		return "", fmt.Errorf("secret key is required")
	}
	if userID == "" || strings.Contains(userID, "|") {
		return "", fmt.Errorf("invalid user id")
	}

	now := time.Now()
	payload := fmt.Sprintf("%s|%t|%d|%d", userID, isAdmin, now.Add(config.Expiration).Unix(), now.Unix())

	encodedPayload := base64.RawURLEncoding.EncodeToString([]byte(payload))
	encodedSignature := base64.RawURLEncoding.EncodeToString(sign([]byte(payload), config.Secret))

	return encodedPayload + "." + encodedSignature, nil
}

// ParseToken parses and validates a token
func ParseToken(tokenString string, config *TokenConfig) (*Token, error) {
	if config == nil || len(config.Secret) == 0 {
		return nil, fmt.Errorf("secret key is required")
	}

	encodedPayload, encodedSignature, ok := strings.Cut(tokenString, ".")
	if !ok {
		return nil, fmt.Errorf("%w: format", ErrInvalidToken)
	}

	payloadBytes, err := base64.RawURLEncoding.DecodeString(encodedPayload)
	if err != nil {
		return nil, fmt.Errorf("%w: payload", ErrInvalidToken)
	}
	signatureBytes, err := base64.RawURLEncoding.DecodeString(encodedSignature)
	if err != nil {
		return nil, fmt.Errorf("%w: signature", ErrInvalidToken)
	}

	if !hmac.Equal(signatureBytes, sign(payloadBytes, config.Secret)) {
		return nil, fmt.Errorf("%w: signature", ErrInvalidToken)
	}

	parts := strings.Split(string(payloadBytes), "|")
	if len(parts) != 4 {
		return nil, fmt.Errorf("%w: payload", ErrInvalidToken)
	}

	isAdmin, err := strconv.ParseBool(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: admin claim", ErrInvalidToken)
	}
	expiresAt, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: expiry", ErrInvalidToken)
	}
	issuedAt, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: issued at", ErrInvalidToken)
	}

	if time.Now().Unix() > expiresAt {
		return nil, ErrTokenExpired
	}

	return &Token{
		UserID:    parts[0],
		IsAdmin:   isAdmin,
		ExpiresAt: expiresAt,
		IssuedAt:  issuedAt,
	}, nil
}

func sign(payload, secret []byte) []byte {
	h := hmac.New(sha256.New, secret)
	h.Write(payload)
	return h.Sum(nil)
}
