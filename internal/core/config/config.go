// Package config provides configuration management for the rulebuilder services.
package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BuilderAPIConfig holds configuration for the gRPC builder API service.
type BuilderAPIConfig struct {
	Host string
	Port int

	// MaxSessions bounds concurrently open editing sessions.
	MaxSessions int
	// SessionIdleTimeout closes sessions nobody touched for this long.
	SessionIdleTimeout time.Duration

	// CatalogFile, when set, is loaded instead of the stored catalog.
	CatalogFile string
	// DateFormat is an extra input layout accepted for DATE values.
	DateFormat string

	// RequireAuth rejects requests without a valid x-api-key.
	RequireAuth bool

	DatabaseURL string
}

// DefaultBuilderAPIConfig returns configuration with default values.
func DefaultBuilderAPIConfig() *BuilderAPIConfig {
	return &BuilderAPIConfig{
		Host:               "0.0.0.0",
		Port:               50061,
		MaxSessions:        1000,
		SessionIdleTimeout: 30 * time.Minute,
		RequireAuth:        true,
		DatabaseURL:        "sqlite://rulebuilder.db",
	}
}

// Addr returns host:port.
func (c *BuilderAPIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// HMACSecrets reads the API key signing secrets from RB_HMAC_SECRET and the
// numbered RB_HMAC_SECRET_1, RB_HMAC_SECRET_2, ... used during rotation.
// Each value is <secret_id>:<base64_secret>. The numbered sequence stops at the
// first gap. Returns secret_id -> decoded secret.
func HMACSecrets() (map[string][]byte, error) {
	keys := []string{hmacSecretEnv}
	for i := 1; os.Getenv(fmt.Sprintf("%s_%d", hmacSecretEnv, i)) != ""; i++ {
		keys = append(keys, fmt.Sprintf("%s_%d", hmacSecretEnv, i))
	}

	secrets := make(map[string][]byte)
	for _, key := range keys {
		val := os.Getenv(key)
		if val == "" {
			continue
		}
		secretID, decoded, err := ParseHMACSecretWithID(val)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		if _, exists := secrets[secretID]; exists {
			return nil, fmt.Errorf("duplicate secret_id '%s' found in environment variables (check %s and %s_* for conflicts)", secretID, hmacSecretEnv, hmacSecretEnv)
		}
		secrets[secretID] = decoded
	}
	return secrets, nil
}

const hmacSecretEnv = EnvPrefix + "_HMAC_SECRET"

// GenerateHMACSecret returns a fresh value for RB_HMAC_SECRET.
func GenerateHMACSecret() (string, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	id := strings.ReplaceAll(uuid.Must(uuid.NewV7()).String(), "-", "")
	return id + ":" + base64.StdEncoding.EncodeToString(secret), nil
}

// ParseHMACSecret decodes base64-encoded HMAC secret from environment variable.
func ParseHMACSecret(envValue string) ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(envValue))
	if err != nil {
		return nil, fmt.Errorf("invalid base64 encoding: %w", err)
	}
	if len(decoded) < 32 {
		return nil, fmt.Errorf("secret must be at least 32 bytes, got %d", len(decoded))
	}
	return decoded, nil
}

// ParseHMACSecretWithID parses secret_id:base64_secret format.
// Secret ID must be 32 hex chars (UUIDv7 without hyphens).
func ParseHMACSecretWithID(envValue string) (secretID string, secret []byte, err error) {
	parts := strings.SplitN(strings.TrimSpace(envValue), ":", 2)
	if len(parts) != 2 {
		return "", nil, fmt.Errorf("format must be <secret_id>:<base64_secret>")
	}

	secretID = parts[0]
	if len(secretID) != 32 {
		return "", nil, fmt.Errorf("secret_id must be 32 hex chars (UUIDv7 without hyphens)")
	}

	for _, c := range secretID {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return "", nil, fmt.Errorf("secret_id must be hex chars only")
		}
	}

	secret, err = base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", nil, fmt.Errorf("invalid base64 encoding: %w", err)
	}

	if len(secret) < 32 {
		return "", nil, fmt.Errorf("secret must be at least 32 bytes, got %d", len(secret))
	}

	return secretID, secret, nil
}
