// Package config builds the typed runtime configuration from the environment.
package config

import (
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverBolt     = "bolt"

	ModeLive    = "live"
	ModeSandbox = "sandbox"
)

type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Provider ProviderConfig
	Webhook  WebhookConfig
	Payment  PaymentConfig
	Email    EmailConfig
	Auth     AuthConfig
}

type ServerConfig struct {
	Port        string
	FrontendURL string
}

type StoreConfig struct {
	Driver      string
	DatabaseURL string
	Host        string
	User        string
	Password    string
	Name        string
	Port        string
	SQLitePath  string
	BoltPath    string
}

type ProviderConfig struct {
	Mode      string
	AppKey    string
	APIKey    string
	SecretKey string
	BaseURL   string
}

// Configured reports whether live provider calls can be made.
func (p ProviderConfig) Configured() bool {
	return p.AppKey != "" && p.APIKey != "" && p.SecretKey != ""
}

type WebhookConfig struct {
	// Secret verifies inbound provider signatures.
	Secret string
	// InternalSecret signs outbound merchant events and checks the loop marker.
	InternalSecret    string
	InternalAPIKey    string
	RelayTimeout      time.Duration
	StrictTransitions bool
}

type PaymentConfig struct {
	MinAmount       int64
	PhonePattern    string
	DefaultCurrency string
}

type EmailConfig struct {
	ResendAPIKey string
	FromEmail    string
}

type AuthConfig struct {
	JWTSecret string
}

// Load reads .env when present and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	}
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("STORE_DRIVER", DriverPostgres)
	v.SetDefault("SQLITE_PATH", "paygate.sqlite")
	v.SetDefault("BOLT_PATH", "paygate.db")
	v.SetDefault("PROVIDER_MODE", ModeLive)
	v.SetDefault("MESOMB_BASE_URL", "https://mesomb.hachther.com")
	v.SetDefault("MIN_AMOUNT", 10000)
	v.SetDefault("PHONE_PATTERN", `^\+?237[0-9]{9}$`)
	v.SetDefault("DEFAULT_CURRENCY", "XAF")
	v.SetDefault("RELAY_TIMEOUT", 5*time.Second)
	v.SetDefault("STRICT_TRANSITIONS", false)
	v.SetDefault("FROM_EMAIL", "onboarding@resend.dev")

	return v
}

// FromViper builds and validates a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        v.GetString("PORT"),
			FrontendURL: v.GetString("FRONTEND_URL"),
		},
		Store: StoreConfig{
			Driver:      strings.ToLower(v.GetString("STORE_DRIVER")),
			DatabaseURL: v.GetString("DATABASE_URL"),
			Host:        v.GetString("DB_HOST"),
			User:        v.GetString("DB_USER"),
			Password:    v.GetString("DB_PASSWORD"),
			Name:        v.GetString("DB_NAME"),
			Port:        v.GetString("DB_PORT"),
			SQLitePath:  v.GetString("SQLITE_PATH"),
			BoltPath:    v.GetString("BOLT_PATH"),
		},
		Provider: ProviderConfig{
			Mode:      strings.ToLower(v.GetString("PROVIDER_MODE")),
			AppKey:    v.GetString("MESOMB_APP_KEY"),
			APIKey:    v.GetString("MESOMB_API_KEY"),
			SecretKey: v.GetString("MESOMB_SECRET_KEY"),
			BaseURL:   strings.TrimRight(v.GetString("MESOMB_BASE_URL"), "/"),
		},
		Webhook: WebhookConfig{
			Secret:            v.GetString("MESOMB_SECRET_KEY"),
			InternalSecret:    v.GetString("INTERNAL_WEBHOOK_SECRET"),
			InternalAPIKey:    v.GetString("INTERNAL_API_KEY"),
			RelayTimeout:      v.GetDuration("RELAY_TIMEOUT"),
			StrictTransitions: v.GetBool("STRICT_TRANSITIONS"),
		},
		Payment: PaymentConfig{
			MinAmount:       v.GetInt64("MIN_AMOUNT"),
			PhonePattern:    v.GetString("PHONE_PATTERN"),
			DefaultCurrency: strings.ToUpper(v.GetString("DEFAULT_CURRENCY")),
		},
		Email: EmailConfig{
			ResendAPIKey: v.GetString("RESEND_API_KEY"),
			FromEmail:    v.GetString("FROM_EMAIL"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("JWT_SECRET"),
		},
	}

	if cfg.Webhook.InternalSecret == "" && cfg.Webhook.Secret != "" {
		log.Println("⚠️  INTERNAL_WEBHOOK_SECRET not set, signing merchant events with the provider secret")
		cfg.Webhook.InternalSecret = cfg.Webhook.Secret
	}
	if cfg.Webhook.RelayTimeout <= 0 {
		cfg.Webhook.RelayTimeout = 5 * time.Second
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case DriverPostgres, DriverSQLite, DriverBolt:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q: use postgres, sqlite or bolt", c.Store.Driver)
	}

	switch c.Provider.Mode {
	case ModeLive, ModeSandbox:
	default:
		return fmt.Errorf("unsupported PROVIDER_MODE %q: use live or sandbox", c.Provider.Mode)
	}

	if c.Payment.MinAmount <= 0 {
		return fmt.Errorf("MIN_AMOUNT must be positive, got %d", c.Payment.MinAmount)
	}
	if _, err := regexp.Compile(c.Payment.PhonePattern); err != nil {
		return fmt.Errorf("invalid PHONE_PATTERN: %w", err)
	}
	if len(c.Payment.DefaultCurrency) != 3 {
		return fmt.Errorf("DEFAULT_CURRENCY must be a 3 letter code, got %q", c.Payment.DefaultCurrency)
	}
	return nil
}

// PostgresDSN prefers DATABASE_URL and falls back to the individual DB_* values.
func (s StoreConfig) PostgresDSN() (string, error) {
	if s.DatabaseURL != "" {
		return s.DatabaseURL, nil
	}
	if s.Host == "" || s.User == "" || s.Password == "" || s.Name == "" || s.Port == "" {
		return "", fmt.Errorf("database configuration not provided: either set DATABASE_URL or all of DB_HOST, DB_USER, DB_PASSWORD, DB_NAME, and DB_PORT")
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		s.Host, s.User, s.Password, s.Name, s.Port,
	), nil
}

// MaskSecret hides all but the edges of a secret for startup logs.
func MaskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + "****" + s[len(s)-2:]
}
