package app

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// MinJWTSecretBytes is the shortest HMAC-SHA256 signing key accepted.
const MinJWTSecretBytes = 32

// KeyByteLength returns the decoded byte length of a key string.
// It supports hex, base64, and raw string encodings.
func KeyByteLength(value string) (int, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return 0, nil
	}

	if len(v)%2 == 0 {
		if decoded, err := hex.DecodeString(v); err == nil {
			return len(decoded), nil
		}
	}

	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.RawURLEncoding} {
		if decoded, err := enc.DecodeString(v); err == nil {
			return len(decoded), nil
		}
	}

	return len(v), nil
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}

	if secret := c.Auth.JWT.Secret; strings.TrimSpace(secret) != "" {
		length, err := KeyByteLength(secret)
		if err != nil {
			return fmt.Errorf("auth.jwt.secret: %w", err)
		}
		if length < MinJWTSecretBytes {
			return fmt.Errorf("auth.jwt.secret: need at least %d bytes, got %d", MinJWTSecretBytes, length)
		}
	}

	if c.Email.SMTP.Enabled && strings.TrimSpace(c.Email.SMTP.Host) == "" {
		return fmt.Errorf("email.smtp.host is required when smtp is enabled")
	}
	if c.Auth.Lockout.MaxFailedAttempts < 0 {
		return fmt.Errorf("auth.lockout.max_failed_attempts must not be negative")
	}
	return nil
}
