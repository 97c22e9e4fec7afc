// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces every environment override, e.g. GYM_DATABASE_URL.
const EnvPrefix = "GYM_"

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Port            int           `yaml:"port" env:"HTTP_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level    string `yaml:"level" env:"LOG_LEVEL"`   // trace|debug|info|warn|error
	Format   string `yaml:"format" env:"LOG_FORMAT"` // json|console
	Sampling bool   `yaml:"sampling"`                // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url" env:"DATABASE_URL"`
	MaxConns int32  `yaml:"max_conns" env:"DATABASE_MAX_CONNS"`
	Migrate  bool   `yaml:"migrate" env:"DATABASE_MIGRATE"` // apply embedded migrations at startup
}

type RedisConfig struct {
	URL      string        `yaml:"url" env:"REDIS_URL"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"REDIS_DB"`
	TTL      time.Duration `yaml:"ttl"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	TokenTTL  time.Duration `yaml:"token_ttl" env:"TOKEN_TTL"`
	// LoginRateLimit is the number of login attempts per email per RateWindow.
	LoginRateLimit int64         `yaml:"login_rate_limit"`
	RateWindow     time.Duration `yaml:"rate_window"`
}

type TelegramConfig struct {
	Enabled      bool    `yaml:"enabled" env:"TELEGRAM_ENABLED"`
	Token        string  `yaml:"token" env:"TELEGRAM_TOKEN"`
	AdminChatIDs []int64 `yaml:"admin_chat_ids" env:"TELEGRAM_ADMIN_CHAT_IDS"`
	Workers      int     `yaml:"workers"`
	QueueSize    int     `yaml:"queue_size"`
}

type BillingConfig struct {
	Currency string `yaml:"currency" env:"BILLING_CURRENCY"` // ISO 4217, amounts are minor units
	// TransactionRateLimit caps transaction-reference submissions per user per RateWindow.
	TransactionRateLimit int64         `yaml:"transaction_rate_limit"`
	RateWindow           time.Duration `yaml:"rate_window"`
}

type StatsConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Telegram TelegramConfig `yaml:"telegram"`
	Billing  BillingConfig  `yaml:"billing"`
	Stats    StatsConfig    `yaml:"stats"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads an optional .env file, then the YAML file at path, then
// applies GYM_* environment overrides. A missing YAML file is tolerated so
// the service can be configured from the environment alone.
func LoadConfig(path string, dev bool) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("env config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 5000
	}
	c.HTTP.ReadTimeout = orDefault(c.HTTP.ReadTimeout, 10*time.Second)
	c.HTTP.WriteTimeout = orDefault(c.HTTP.WriteTimeout, 15*time.Second)
	c.HTTP.RequestTimeout = orDefault(c.HTTP.RequestTimeout, 10*time.Second)
	c.HTTP.ShutdownTimeout = orDefault(c.HTTP.ShutdownTimeout, 10*time.Second)

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Database.MaxConns <= 0 {
		c.Database.MaxConns = 10
	}
	c.Redis.TTL = orDefault(c.Redis.TTL, time.Hour)

	c.Auth.TokenTTL = orDefault(c.Auth.TokenTTL, 24*time.Hour)
	c.Auth.RateWindow = orDefault(c.Auth.RateWindow, time.Minute)
	if c.Auth.LoginRateLimit <= 0 {
		c.Auth.LoginRateLimit = 10
	}

	if c.Telegram.Workers <= 0 {
		c.Telegram.Workers = 2
	}
	if c.Telegram.QueueSize <= 0 {
		c.Telegram.QueueSize = 64
	}

	if c.Billing.Currency == "" {
		c.Billing.Currency = "INR"
	}
	c.Billing.RateWindow = orDefault(c.Billing.RateWindow, time.Minute)
	if c.Billing.TransactionRateLimit <= 0 {
		c.Billing.TransactionRateLimit = 5
	}
	c.Stats.RefreshInterval = orDefault(c.Stats.RefreshInterval, time.Minute)
}

// Validate performs the minimal checks needed to boot.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Redis.URL == "" {
		return errors.New("redis.url is required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if c.Telegram.Enabled && c.Telegram.Token == "" {
		return errors.New("telegram.token is required when telegram is enabled")
	}
	return nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
