package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	idA     = "0123456789abcdef0123456789abcdef"
	idB     = "fedcba9876543210fedcba9876543210"
	secretA = "dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w"
	secretB = "YW5vdGhlcnNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w"
)

func TestHMACSecrets(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantIDs []string
		wantErr bool
	}{
		{"none", nil, nil, false},
		{"single secret", map[string]string{"RB_HMAC_SECRET": idA + ":" + secretA}, []string{idA}, false},
		{"numbered secrets", map[string]string{
			"RB_HMAC_SECRET_1": idA + ":" + secretA,
			"RB_HMAC_SECRET_2": idB + ":" + secretB,
		}, []string{idA, idB}, false},
		{"numbering stops at first gap", map[string]string{
			"RB_HMAC_SECRET_1": idA + ":" + secretA,
			"RB_HMAC_SECRET_3": idB + ":" + secretB,
		}, []string{idA}, false},
		{"single and numbered", map[string]string{
			"RB_HMAC_SECRET":   idA + ":" + secretA,
			"RB_HMAC_SECRET_1": idB + ":" + secretB,
		}, []string{idA, idB}, false},
		{"invalid format", map[string]string{"RB_HMAC_SECRET": "invalid_format"}, nil, true},
		{"short secret_id", map[string]string{"RB_HMAC_SECRET": "short:" + secretA}, nil, true},
		{"non-hex secret_id", map[string]string{"RB_HMAC_SECRET": "0123456789abcdefGHIJKLMNOPQRSTUV:" + secretA}, nil, true},
		{"duplicate numbered", map[string]string{
			"RB_HMAC_SECRET_1": idA + ":" + secretA,
			"RB_HMAC_SECRET_2": idA + ":" + secretB,
		}, nil, true},
		{"duplicate single and numbered", map[string]string{
			"RB_HMAC_SECRET":   idA + ":" + secretA,
			"RB_HMAC_SECRET_1": idA + ":" + secretB,
		}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{"RB_HMAC_SECRET", "RB_HMAC_SECRET_1", "RB_HMAC_SECRET_2", "RB_HMAC_SECRET_3"} {
				t.Setenv(key, tt.env[key])
			}

			secrets, err := HMACSecrets()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("HMACSecrets failed: %v", err)
			}
			if len(secrets) != len(tt.wantIDs) {
				t.Fatalf("expected %d secrets, got %d", len(tt.wantIDs), len(secrets))
			}
			for _, id := range tt.wantIDs {
				if _, ok := secrets[id]; !ok {
					t.Errorf("secret_id %s not found", id)
				}
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	// Clean environment
	os.Unsetenv("RB_BUILDER_API_HOST")
	os.Unsetenv("RB_BUILDER_API_PORT")
	os.Unsetenv("RB_DATABASE_URL")

	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadConfig("")
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Host != "0.0.0.0" {
			t.Errorf("expected host 0.0.0.0, got %s", cfg.Host)
		}
		if cfg.Port != 50061 {
			t.Errorf("expected port 50061, got %d", cfg.Port)
		}
		if cfg.MaxSessions != 1000 {
			t.Errorf("expected max_sessions 1000, got %d", cfg.MaxSessions)
		}
		if cfg.SessionIdleTimeout != 30*time.Minute {
			t.Errorf("expected idle timeout 30m, got %v", cfg.SessionIdleTimeout)
		}
		if !cfg.RequireAuth {
			t.Error("expected require_auth true by default")
		}
		if cfg.DatabaseURL != "sqlite://rulebuilder.db" {
			t.Errorf("expected default database url, got %s", cfg.DatabaseURL)
		}
		if cfg.Addr() != "0.0.0.0:50061" {
			t.Errorf("Addr() = %s", cfg.Addr())
		}
	})

	t.Run("environment override", func(t *testing.T) {
		t.Setenv("RB_BUILDER_API_PORT", "9999")
		t.Setenv("RB_BUILDER_API_HOST", "127.0.0.1")
		t.Setenv("RB_BUILDER_API_SESSION_IDLE_TIMEOUT", "90s")
		t.Setenv("RB_BUILDER_API_DATE_FORMAT", "02.01.2006")

		cfg, err := LoadConfig("")
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Port != 9999 {
			t.Errorf("expected port 9999, got %d", cfg.Port)
		}
		if cfg.Host != "127.0.0.1" {
			t.Errorf("expected host 127.0.0.1, got %s", cfg.Host)
		}
		if cfg.SessionIdleTimeout != 90*time.Second {
			t.Errorf("expected idle timeout 90s, got %v", cfg.SessionIdleTimeout)
		}
		if cfg.DateFormat != "02.01.2006" {
			t.Errorf("expected date format override, got %q", cfg.DateFormat)
		}
	})

	t.Run("invalid port range", func(t *testing.T) {
		t.Setenv("RB_BUILDER_API_PORT", "70000")

		_, err := LoadConfig("")
		if err == nil {
			t.Error("expected error for port > 65535")
		}
	})

	t.Run("invalid negative values", func(t *testing.T) {
		t.Setenv("RB_BUILDER_API_MAX_SESSIONS", "-1")

		_, err := LoadConfig("")
		if err == nil {
			t.Error("expected error for negative max_sessions")
		}
	})

	t.Run("no catalog source", func(t *testing.T) {
		v := viper.New()
		v.Set("database.url", "")

		_, err := LoadConfigWith(v, "")
		if err == nil {
			t.Error("expected error without database url or catalog file")
		}
	})
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig_File(t *testing.T) {
	t.Run("values from file", func(t *testing.T) {
		path := writeConfig(t, `builder_api:
  port: 7000
  catalog_file: ./catalog.yaml
  require_auth: false
database:
  url: postgres://localhost/rules
`)
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Port != 7000 || cfg.CatalogFile != "./catalog.yaml" || cfg.RequireAuth {
			t.Errorf("unexpected config: %+v", cfg)
		}
		if cfg.DatabaseURL != "postgres://localhost/rules" {
			t.Errorf("expected database url from file, got %s", cfg.DatabaseURL)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
			t.Error("expected error for missing config file")
		}
	})

	t.Run("secret in file rejected", func(t *testing.T) {
		path := writeConfig(t, `builder_api:
  host: "localhost"
  hmac_secret: "should_be_rejected"
`)
		_, err := LoadConfig(path)
		if err == nil {
			t.Fatal("expected error for secret in config file")
		}
		if err.Error() != "HMAC secrets not allowed in config files (use RB_HMAC_SECRET environment variable)" {
			t.Fatalf("wrong error message: %v", err)
		}
	})
}

// Flags > environment > file.
func TestLoadConfig_Precedence(t *testing.T) {
	path := writeConfig(t, "builder_api:\n  port: 9090\n  host: filehost\n")
	t.Setenv("RB_BUILDER_API_PORT", "8080")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("environment should override config file: expected 8080, got %d", cfg.Port)
	}
	if cfg.Host != "filehost" {
		t.Errorf("expected host from file, got %s", cfg.Host)
	}

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("port", 0, "")
	if err := flags.Parse([]string{"--port", "7070"}); err != nil {
		t.Fatal(err)
	}
	v := viper.New()
	if err := v.BindPFlag("builder_api.port", flags.Lookup("port")); err != nil {
		t.Fatal(err)
	}

	cfg, err = LoadConfigWith(v, path)
	if err != nil {
		t.Fatalf("LoadConfigWith failed: %v", err)
	}
	if cfg.Port != 7070 {
		t.Errorf("flag should override environment: expected 7070, got %d", cfg.Port)
	}
}

func TestParseHMACSecret(t *testing.T) {
	if secret, err := ParseHMACSecret(secretA); err != nil || len(secret) < 32 {
		t.Errorf("ParseHMACSecret(valid) = %d bytes, %v", len(secret), err)
	}
	for _, bad := range []string{"not-valid-base64!!!", "c2hvcnQ="} {
		if _, err := ParseHMACSecret(bad); err == nil {
			t.Errorf("ParseHMACSecret(%q) error = nil", bad)
		}
	}
}

func TestParseHMACSecretWithID(t *testing.T) {
	secretID, secret, err := ParseHMACSecretWithID(idA + ":" + secretA)
	if err != nil {
		t.Fatalf("ParseHMACSecretWithID failed: %v", err)
	}
	if secretID != idA || len(secret) == 0 {
		t.Errorf("ParseHMACSecretWithID = %s, %d bytes", secretID, len(secret))
	}

	for _, bad := range []string{
		idA,
		"tooshort:" + secretA,
		"0123456789abcdefGHIJKLMNOPQRSTUV:" + secretA,
		idA + ":c2hvcnQ=",
	} {
		if _, _, err := ParseHMACSecretWithID(bad); err == nil {
			t.Errorf("ParseHMACSecretWithID(%q) error = nil", bad)
		}
	}
}

func TestGenerateHMACSecret(t *testing.T) {
	val, err := GenerateHMACSecret()
	if err != nil {
		t.Fatalf("GenerateHMACSecret failed: %v", err)
	}
	t.Setenv("RB_HMAC_SECRET", val)

	secrets, err := HMACSecrets()
	if err != nil {
		t.Fatalf("generated secret rejected: %v", err)
	}
	if len(secrets) != 1 {
		t.Errorf("expected 1 secret, got %d", len(secrets))
	}
}
