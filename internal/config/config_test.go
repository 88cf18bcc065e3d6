package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigMethods(t *testing.T) {
	t.Run("Addr returns formatted port", func(t *testing.T) {
		cfg := &Config{Port: 3000}
		assert.Equal(t, ":3000", cfg.Addr())
	})

	t.Run("OAuthStateTTL converts seconds to duration", func(t *testing.T) {
		cfg := &Config{OAuthStateTTLSeconds: 600}
		assert.Equal(t, 10*time.Minute, cfg.OAuthStateTTL())
	})

	t.Run("WebhookEventRetention converts hours to duration", func(t *testing.T) {
		cfg := &Config{WebhookEventRetentionHours: 48}
		assert.Equal(t, 48*time.Hour, cfg.WebhookEventRetention())
	})

	t.Run("APIConfig converts timeout and backoff", func(t *testing.T) {
		api := APIConfig{TimeoutSeconds: 30, RetryBackoffMs: 250}
		assert.Equal(t, 30*time.Second, api.Timeout())
		assert.Equal(t, 250*time.Millisecond, api.RetryBackoff())
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{OAuthStateStore: StateStorePostgres, OAuthStateTTLSeconds: 600}
	}

	t.Run("accepts defaults", func(t *testing.T) {
		assert.NoError(t, valid().Validate(false))
	})

	t.Run("rejects non-bcrypt admin token hash", func(t *testing.T) {
		cfg := valid()
		cfg.AdminTokenHash = "plaintext"
		assert.Error(t, cfg.Validate(false))
	})

	t.Run("accepts bcrypt admin token hash", func(t *testing.T) {
		cfg := valid()
		cfg.AdminTokenHash = "$2a$10$abcdefghijklmnopqrstuv"
		assert.NoError(t, cfg.Validate(false))
	})

	t.Run("rejects unknown state store", func(t *testing.T) {
		cfg := valid()
		cfg.OAuthStateStore = "memcached"
		assert.Error(t, cfg.Validate(false))
	})

	t.Run("rejects non-positive state ttl", func(t *testing.T) {
		cfg := valid()
		cfg.OAuthStateTTLSeconds = 0
		assert.Error(t, cfg.Validate(false))
	})

	t.Run("rejects negative retry attempts", func(t *testing.T) {
		cfg := valid()
		cfg.Instagram.RetryAttempts = -1
		assert.Error(t, cfg.Validate(false))
	})
}

func TestLoad(t *testing.T) {
	keys := []string{
		"PORT", "DATABASE_URL", "REDIS_URL", "LOG_LEVEL", "OAUTH_STATE_STORE",
		"FACEBOOK_API_VERSION", "FACEBOOK_API_RETRY_ATTEMPTS", "FACEBOOK_CLIENT_ID",
		"INSTAGRAM_API_TIMEOUT", "INSTAGRAM_WEBHOOK_VERIFY_TOKEN", "INSTAGRAM_GRAPH_BASE_URL",
	}
	originalEnv := make(map[string]string, len(keys))
	for _, k := range keys {
		originalEnv[k] = os.Getenv(k)
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	t.Run("loads config with defaults", func(t *testing.T) {
		for _, k := range keys {
			os.Unsetenv(k)
		}
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Setenv("REDIS_URL", "redis://localhost:6379")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.Equal(t, StateStorePostgres, cfg.OAuthStateStore)
		assert.Equal(t, 600, cfg.OAuthStateTTLSeconds)
		assert.True(t, cfg.AutoMigrate)

		assert.Equal(t, "https://graph.facebook.com", cfg.Facebook.BaseURL)
		assert.Equal(t, "v19.0", cfg.Facebook.Version)
		assert.Equal(t, 30, cfg.Facebook.TimeoutSeconds)
		assert.Equal(t, 3, cfg.Facebook.RetryAttempts)

		assert.Equal(t, "https://api.instagram.com", cfg.Instagram.OAuthBaseURL)
		assert.Equal(t, "https://graph.instagram.com", cfg.Instagram.GraphBaseURL)
		assert.Equal(t, "v19.0", cfg.Instagram.Version)
	})

	t.Run("loads provider-prefixed values", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Setenv("FACEBOOK_API_VERSION", "v21.0")
		os.Setenv("FACEBOOK_API_RETRY_ATTEMPTS", "0")
		os.Setenv("FACEBOOK_CLIENT_ID", "fb-app")
		os.Setenv("INSTAGRAM_API_TIMEOUT", "10")
		os.Setenv("INSTAGRAM_WEBHOOK_VERIFY_TOKEN", "verify-me")
		os.Setenv("INSTAGRAM_GRAPH_BASE_URL", "http://localhost:9999")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "v21.0", cfg.Facebook.Version)
		assert.Equal(t, 0, cfg.Facebook.RetryAttempts)
		assert.Equal(t, "fb-app", cfg.Facebook.ClientID)
		assert.Equal(t, 10*time.Second, cfg.Instagram.Timeout())
		assert.Equal(t, "verify-me", cfg.Instagram.VerifyToken)
		assert.Equal(t, "http://localhost:9999", cfg.Instagram.GraphBaseURL)
	})

	t.Run("fails without required DATABASE_URL", func(t *testing.T) {
		os.Unsetenv("DATABASE_URL")
		os.Setenv("REDIS_URL", "redis://localhost:6379")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("fails without required REDIS_URL", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Unsetenv("REDIS_URL")

		_, err := Load()
		assert.Error(t, err)
	})
}
