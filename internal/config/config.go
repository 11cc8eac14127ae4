package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Server
	Port            int           `env:"PORT"             envDefault:"8080"`
	BaseURL         string        `env:"BASE_URL"         envDefault:"http://localhost:8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	RateLimitRPS    float64       `env:"RATE_LIMIT_RPS"   envDefault:"5"`
	RateLimitBurst  int           `env:"RATE_LIMIT_BURST" envDefault:"10"`

	// Database
	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"sqlite3"`
	DatabaseURL    string `env:"DATABASE_URL"    envDefault:"giftregistry.db"`

	// Google OAuth
	GoogleClientID     string   `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string   `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string   `env:"GOOGLE_REDIRECT_URL"`
	AdminEmails        []string `env:"ADMIN_EMAILS" envSeparator:","`

	// Session
	SessionSecret string `env:"SESSION_SECRET" envDefault:"change-me-in-production"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// Gift ledger
	GiftDefaultCapacity int           `env:"GIFT_DEFAULT_CAPACITY" envDefault:"1"`
	MaxGiftsPerGuest    int           `env:"MAX_GIFTS_PER_GUEST"   envDefault:"0"`
	LedgerTimeout       time.Duration `env:"LEDGER_TIMEOUT"        envDefault:"5s"`

	// Guests
	RequireApproval    bool   `env:"REQUIRE_APPROVAL"     envDefault:"true"`
	DefaultPhoneRegion string `env:"DEFAULT_PHONE_REGION" envDefault:"BR"`

	// Email
	SMTPHost        string `env:"SMTP_HOST"`
	SMTPPort        int    `env:"SMTP_PORT"         envDefault:"587"`
	SMTPUsername    string `env:"SMTP_USERNAME"`
	SMTPPassword    string `env:"SMTP_PASSWORD"`
	SMTPFrom        string `env:"SMTP_FROM"`
	NotifyQueueSize int    `env:"NOTIFY_QUEUE_SIZE" envDefault:"64"`

	// Change feed
	RedisURL       string `env:"REDIS_URL"`
	EventsInstance string `env:"EVENTS_INSTANCE" envDefault:"default"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	cfg.AdminEmails = normalizeEmails(cfg.AdminEmails)
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.DefaultPhoneRegion = strings.ToUpper(cfg.DefaultPhoneRegion)
	if cfg.GoogleRedirectURL == "" {
		cfg.GoogleRedirectURL = cfg.BaseURL + "/auth/google/callback"
	}
	if cfg.SMTPFrom == "" {
		cfg.SMTPFrom = cfg.SMTPUsername
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DatabaseDriver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("invalid DATABASE_DRIVER %q: want sqlite3 or postgres", c.DatabaseDriver)
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid BASE_URL %q", c.BaseURL)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.GiftDefaultCapacity < 1 {
		return fmt.Errorf("GIFT_DEFAULT_CAPACITY must be at least 1")
	}
	if c.MaxGiftsPerGuest < 0 {
		return fmt.Errorf("MAX_GIFTS_PER_GUEST must not be negative")
	}
	if c.LedgerTimeout <= 0 {
		return fmt.Errorf("LEDGER_TIMEOUT must be positive")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if len(c.SessionSecret) < 16 {
		return fmt.Errorf("SESSION_SECRET must be at least 16 characters")
	}
	if len(c.DefaultPhoneRegion) != 2 {
		return fmt.Errorf("invalid DEFAULT_PHONE_REGION %q", c.DefaultPhoneRegion)
	}
	if c.SMTPHost != "" && c.SMTPFrom == "" {
		return fmt.Errorf("SMTP_FROM or SMTP_USERNAME is required when SMTP_HOST is set")
	}
	return nil
}

// IsAdmin reports whether email belongs to an event host.
func (c *Config) IsAdmin(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	for _, admin := range c.AdminEmails {
		if admin == email {
			return true
		}
	}
	return false
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func normalizeEmails(in []string) []string {
	out := make([]string, 0, len(in))
	for _, e := range in {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}
