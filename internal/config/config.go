package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

const (
	StateStorePostgres = "postgres"
	StateStoreRedis    = "redis"
)

type Config struct {
	Port                       int    `env:"PORT" envDefault:"8080"`
	DatabaseURL                string `env:"DATABASE_URL,required"`
	RedisURL                   string `env:"REDIS_URL,required"`
	LogLevel                   string `env:"LOG_LEVEL" envDefault:"info"`
	Environment                string `env:"APP_ENV" envDefault:"development"`
	AutoMigrate                bool   `env:"AUTO_MIGRATE" envDefault:"true"`
	AdminTokenHash             string `env:"ADMIN_TOKEN_HASH"`
	OAuthStateStore            string `env:"OAUTH_STATE_STORE" envDefault:"postgres"`
	OAuthStateTTLSeconds       int    `env:"OAUTH_STATE_TTL_SECONDS" envDefault:"600"`
	OAuthRateLimitPerMin       int    `env:"OAUTH_RATE_LIMIT_PER_MIN" envDefault:"30"`
	WebhookEventRetentionHours int    `env:"WEBHOOK_EVENT_RETENTION_HOURS" envDefault:"168"`

	Facebook  FacebookConfig  `envPrefix:"FACEBOOK_"`
	Instagram InstagramConfig `envPrefix:"INSTAGRAM_"`
}

// APIConfig holds the HTTP client settings shared by both providers.
type APIConfig struct {
	Version        string `env:"API_VERSION" envDefault:"v19.0"`
	TimeoutSeconds int    `env:"API_TIMEOUT" envDefault:"30"`
	RetryAttempts  int    `env:"API_RETRY_ATTEMPTS" envDefault:"3"`
	RetryBackoffMs int    `env:"API_RETRY_BACKOFF_MS" envDefault:"500"`
}

func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c APIConfig) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMs) * time.Millisecond
}

// MetaAuthConfig holds the OAuth client credentials of a Meta app.
type MetaAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURI  string `env:"REDIRECT_URI"`
}

type WebhookConfig struct {
	VerifyToken string `env:"WEBHOOK_VERIFY_TOKEN"`
	AppSecret   string `env:"WEBHOOK_APP_SECRET"`
}

type FacebookConfig struct {
	APIConfig
	MetaAuthConfig
	WebhookConfig
	BaseURL       string `env:"API_BASE_URL" envDefault:"https://graph.facebook.com"`
	DialogBaseURL string `env:"DIALOG_BASE_URL" envDefault:"https://www.facebook.com"`
}

type InstagramConfig struct {
	APIConfig
	MetaAuthConfig
	WebhookConfig
	OAuthBaseURL string `env:"OAUTH_BASE_URL" envDefault:"https://api.instagram.com"`
	GraphBaseURL string `env:"GRAPH_BASE_URL" envDefault:"https://graph.instagram.com"`
	AuthorizeURL string `env:"AUTHORIZE_URL" envDefault:"https://www.instagram.com/oauth/authorize"`
}

func (c *Config) OAuthStateTTL() time.Duration {
	return time.Duration(c.OAuthStateTTLSeconds) * time.Second
}

func (c *Config) WebhookEventRetention() time.Duration {
	return time.Duration(c.WebhookEventRetentionHours) * time.Hour
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate(isProduction bool) error {
	if c.AdminTokenHash != "" {
		if !strings.HasPrefix(c.AdminTokenHash, "$2a$") &&
			!strings.HasPrefix(c.AdminTokenHash, "$2b$") &&
			!strings.HasPrefix(c.AdminTokenHash, "$2y$") {
			return fmt.Errorf("ADMIN_TOKEN_HASH must be a bcrypt hash (generate with: go run scripts/hash-token.go <token>)")
		}
	}

	switch c.OAuthStateStore {
	case StateStorePostgres, StateStoreRedis:
	default:
		return fmt.Errorf("OAUTH_STATE_STORE must be %q or %q, got %q", StateStorePostgres, StateStoreRedis, c.OAuthStateStore)
	}

	if c.OAuthStateTTLSeconds <= 0 {
		return fmt.Errorf("OAUTH_STATE_TTL_SECONDS must be positive")
	}

	if c.Facebook.RetryAttempts < 0 || c.Instagram.RetryAttempts < 0 {
		return fmt.Errorf("API_RETRY_ATTEMPTS must not be negative")
	}

	if isProduction {
		if c.Instagram.VerifyToken == "" {
			log.Warn().Msg("INSTAGRAM_WEBHOOK_VERIFY_TOKEN is empty in production: webhook verification will always fail")
		}
		if c.Facebook.VerifyToken == "" {
			log.Warn().Msg("FACEBOOK_WEBHOOK_VERIFY_TOKEN is empty in production: webhook verification will always fail")
		}
		if c.Instagram.AppSecret == "" || c.Facebook.AppSecret == "" {
			log.Warn().Msg("webhook app secret is empty in production: X-Hub-Signature-256 verification disabled")
		}
		if c.AdminTokenHash == "" {
			log.Warn().Msg("ADMIN_TOKEN_HASH is empty in production: /api routes are disabled")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
