package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by LoadConfig.
const EnvPrefix = "RB"

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence.
func LoadConfig(configPath string) (*BuilderAPIConfig, error) {
	return LoadConfigWith(viper.New(), configPath)
}

// LoadConfigWith loads configuration into v, which callers may have bound to
// CLI flags already.
func LoadConfigWith(v *viper.Viper, configPath string) (*BuilderAPIConfig, error) {
	def := DefaultBuilderAPIConfig()
	v.SetDefault("builder_api.host", def.Host)
	v.SetDefault("builder_api.port", def.Port)
	v.SetDefault("builder_api.max_sessions", def.MaxSessions)
	v.SetDefault("builder_api.session_idle_timeout", def.SessionIdleTimeout.String())
	v.SetDefault("builder_api.catalog_file", def.CatalogFile)
	v.SetDefault("builder_api.date_format", def.DateFormat)
	v.SetDefault("builder_api.require_auth", def.RequireAuth)
	v.SetDefault("database.url", def.DatabaseURL)

	// RB_BUILDER_API_PORT, RB_DATABASE_URL, ...
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets are environment-only
	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	cfg := &BuilderAPIConfig{
		Host:               v.GetString("builder_api.host"),
		Port:               v.GetInt("builder_api.port"),
		MaxSessions:        v.GetInt("builder_api.max_sessions"),
		SessionIdleTimeout: v.GetDuration("builder_api.session_idle_timeout"),
		CatalogFile:        v.GetString("builder_api.catalog_file"),
		DateFormat:         v.GetString("builder_api.date_format"),
		RequireAuth:        v.GetBool("builder_api.require_auth"),
		DatabaseURL:        v.GetString("database.url"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig checks port range and positive session limits.
func validateConfig(cfg *BuilderAPIConfig) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Port)
	}
	if cfg.MaxSessions <= 0 {
		return fmt.Errorf("max_sessions must be positive, got %d", cfg.MaxSessions)
	}
	if cfg.SessionIdleTimeout <= 0 {
		return fmt.Errorf("session_idle_timeout must be positive, got %v", cfg.SessionIdleTimeout)
	}
	if cfg.DatabaseURL == "" && cfg.CatalogFile == "" {
		return fmt.Errorf("either database.url or builder_api.catalog_file must be set")
	}
	return nil
}

// validateNoSecretsInConfig enforces environment-only secrets (12-factor principle).
func validateNoSecretsInConfig(v *viper.Viper) error {
	if v.IsSet("hmac_secret") || v.IsSet("builder_api.hmac_secret") {
		return fmt.Errorf("HMAC secrets not allowed in config files (use RB_HMAC_SECRET environment variable)")
	}
	return nil
}
