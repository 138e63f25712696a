// Package config loads the lab manager configuration from a YAML file
// with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Notify    NotifyConfig    `yaml:"notify"`
	Retention RetentionConfig `yaml:"retention"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" env:"LAB_SERVER_HOST"`
	Port            int           `yaml:"port" env:"LAB_SERVER_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"LAB_SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"LAB_SERVER_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"LAB_SERVER_SHUTDOWN_TIMEOUT"`
	PublicBaseURL   string        `yaml:"public_base_url" env:"LAB_PUBLIC_BASE_URL"`
}

type DatabaseConfig struct {
	DSN             string        `yaml:"dsn" env:"LAB_DATABASE_DSN"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"LAB_DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"LAB_DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"LAB_DATABASE_CONN_MAX_LIFETIME"`
}

type AuthConfig struct {
	JWTSecret      string        `yaml:"jwt_secret" env:"LAB_AUTH_JWT_SECRET"`
	TokenTTL       time.Duration `yaml:"token_ttl" env:"LAB_AUTH_TOKEN_TTL"`
	Issuer         string        `yaml:"issuer" env:"LAB_AUTH_ISSUER"`
	LoginRateLimit int           `yaml:"login_rate_limit" env:"LAB_AUTH_LOGIN_RATE_LIMIT"`
}

type LoggingConfig struct {
	Level      string `yaml:"level" env:"LAB_LOG_LEVEL"`
	Format     string `yaml:"format" env:"LAB_LOG_FORMAT"`
	Output     string `yaml:"output" env:"LAB_LOG_OUTPUT"`
	FilePrefix string `yaml:"file_prefix" env:"LAB_LOG_FILE_PREFIX"`
}

type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled" env:"LAB_RATE_LIMIT_ENABLED"`
	RequestsPerSecond float64 `yaml:"requests_per_second" env:"LAB_RATE_LIMIT_RPS"`
	Burst             int     `yaml:"burst" env:"LAB_RATE_LIMIT_BURST"`
}

type NotifyConfig struct {
	Enabled bool     `yaml:"enabled" env:"LAB_NOTIFY_ENABLED"`
	URLs    []string `yaml:"urls"`
}

type RetentionConfig struct {
	Enabled        bool   `yaml:"enabled" env:"LAB_RETENTION_ENABLED"`
	Schedule       string `yaml:"schedule" env:"LAB_RETENTION_SCHEDULE"`
	RequestLogDays int    `yaml:"request_log_days" env:"LAB_RETENTION_REQUEST_LOG_DAYS"`
}

// Default returns a configuration suitable for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Auth: AuthConfig{
			TokenTTL:       12 * time.Hour,
			Issuer:         "labmanager",
			LoginRateLimit: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 50,
			Burst:             100,
		},
		Retention: RetentionConfig{
			Enabled:        true,
			Schedule:       "0 3 * * *",
			RequestLogDays: 90,
		},
	}
}

// Load reads config from path (optional) and applies environment
// overrides. A missing file is not an error; env-only deployments are
// common in containers.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := envdecode.Decode(cfg); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
		return nil, fmt.Errorf("decode environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields that have no safe default.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive")
	}
	if c.Retention.Enabled && c.Retention.RequestLogDays <= 0 {
		return fmt.Errorf("retention.request_log_days must be positive when retention is enabled")
	}
	return nil
}
