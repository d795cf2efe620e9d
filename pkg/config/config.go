package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	AppEnv         string `envconfig:"APP_ENV" default:"dev"`
	ServiceName    string `envconfig:"SERVICE_NAME" default:"event-services"`
	HTTPAddr       string `envconfig:"HTTP_ADDR"`
	MigrationsPath string `envconfig:"MIGRATIONS_PATH"`

	// Hosted Postgres convenience:
	// - DATABASE_URL: runtime connection (often a pooler)
	// - DIRECT_URL: direct connection for migrations
	DatabaseURL string `envconfig:"DATABASE_URL"`
	DirectURL   string `envconfig:"DIRECT_URL"`

	DB DBConfig `envconfig:"DB"`

	Auth AuthConfig `envconfig:"AUTH"`

	// RedisURL enables the cross-process ledger lock when LedgerLocker is "redis".
	RedisURL     string `envconfig:"REDIS_URL"`
	LedgerLocker string `envconfig:"LEDGER_LOCKER" default:"local"`

	Dispatch DispatchConfig `envconfig:"DISPATCH"`
	Mail     MailConfig     `envconfig:"SMTP"`
	WhatsApp WhatsAppConfig `envconfig:"WHATSAPP"`

	// PaymentWebhookSecret signs payment-provider callbacks (base64 HMAC-SHA256 of the body).
	PaymentWebhookSecret string `envconfig:"PAYMENT_WEBHOOK_SECRET"`

	// PortalAllowedOrigins is a comma-separated allowlist of origins allowed to call
	// the public portal endpoints (token-based). Example:
	//   https://portal.yourapp.com,http://localhost:5173
	PortalAllowedOrigins []string      `envconfig:"PORTAL_ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:4173"`
	PortalTokenTTL       time.Duration `envconfig:"PORTAL_TOKEN_TTL" default:"720h"`
	PortalSupportEmail   string        `envconfig:"PORTAL_SUPPORT_EMAIL"`
	// PortalBaseURL is prefixed to portal tokens in client notifications.
	PortalBaseURL        string        `envconfig:"PORTAL_BASE_URL" default:"http://localhost:5173/portal"`
}

type DBConfig struct {
	Host     string `split_words:"true" default:"localhost"`
	Port     string `split_words:"true" default:"5432"`
	Name     string `split_words:"true" default:"eventservices"`
	User     string `split_words:"true" default:"eventservices"`
	Password string `split_words:"true" default:"eventservices"`
	SSLMode  string `split_words:"true" default:"disable"`

	MaxConns        int32         `split_words:"true" default:"10"`
	MinConns        int32         `split_words:"true" default:"1"`
	MaxConnLifetime time.Duration `split_words:"true" default:"30m"`
	MaxConnIdleTime time.Duration `split_words:"true" default:"5m"`
}

type AuthConfig struct {
	JWTSecret string        `split_words:"true"`
	Issuer    string        `split_words:"true" default:"event-services"`
	TokenTTL  time.Duration `split_words:"true" default:"12h"`
}

type DispatchConfig struct {
	Workers     int           `split_words:"true" default:"4"`
	Buffer      int           `split_words:"true" default:"256"`
	MaxAttempts int           `split_words:"true" default:"5"`
	BaseBackoff time.Duration `split_words:"true" default:"2s"`
	MaxBackoff  time.Duration `split_words:"true" default:"2m"`
	Jitter      float64       `default:"0.2"`
	JobTimeout  time.Duration `split_words:"true" default:"30s"`
}

type MailConfig struct {
	Host string `split_words:"true" default:"localhost"`
	Port string `split_words:"true" default:"1025"`
	From string `split_words:"true" default:"no-reply@eventservices.local"`
}

type WhatsAppConfig struct {
	// URL empty disables real sends; messages are only logged.
	URL         string `split_words:"true"`
	AccessToken string `split_words:"true"`
	SenderID    string `split_words:"true"`
}

func Load() (Config, error) {
	// Convenience for local dev: load variables from .env if present.
	// In production, rely on real environment variables.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}

	// Cloud Run sets PORT. Prefer it when HTTP_ADDR isn't explicitly set.
	if cfg.HTTPAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			cfg.HTTPAddr = ":" + port
		} else {
			cfg.HTTPAddr = ":8081"
		}
	}
	return cfg, nil
}

func (c Config) IsProd() bool {
	return c.AppEnv == "prod"
}
