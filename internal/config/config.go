// Package config loads server configuration from the environment.
//
// LOADING ORDER:
//  1. A local .env file (if present) is merged into the process environment
//     with godotenv. Variables already set in the real environment win.
//  2. caarlos0/env parses the environment into the tagged Config struct,
//     applying envDefault values for anything unset.
//  3. Validate() rejects combinations the server cannot run with.
//
// Everything the server needs is read here, once, in main. No other package
// calls os.Getenv.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store drivers for the credential store.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Chat backends for the message store and broker.
const (
	ChatMemory = "memory"
	ChatRedis  = "redis"
)

// minSecretLength matches the lower bound enforced by auth.NewTokenService.
const minSecretLength = 16

// Config holds every setting the server reads from the environment.
type Config struct {
	Port            int    `env:"PORT" envDefault:"7000"`
	AppEnv          string `env:"APP_ENV" envDefault:"development"`
	FrontendBaseURL string `env:"FRONTEND_BASE_URL" envDefault:"http://localhost:4200"`

	JWTSecret        string `env:"JWT_SECRET"`
	JWTRefreshSecret string `env:"JWT_REFRESH_SECRET"`
	SessionSecret    string `env:"SESSION_SECRET"`
	SessionDir       string `env:"SESSION_DIR" envDefault:"data/sessions"`
	BcryptCost       int    `env:"BCRYPT_COST" envDefault:"12"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"sqlite"`
	DBPath      string `env:"DB_PATH" envDefault:"data/chat.db"`
	DatabaseURL string `env:"DATABASE_URL"`

	ChatBackend   string `env:"CHAT_BACKEND" envDefault:"memory"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads .env files (missing ones are ignored) and parses the environment.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: loading %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks secrets and enum-like settings.
//
// The access and refresh secrets must differ: a refresh token must never
// verify as an access token, and vice versa.
func (c *Config) Validate() error {
	var errs []error

	if len(c.JWTSecret) < minSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d characters", minSecretLength))
	}
	if len(c.JWTRefreshSecret) < minSecretLength {
		errs = append(errs, fmt.Errorf("JWT_REFRESH_SECRET must be at least %d characters", minSecretLength))
	}
	if c.JWTSecret != "" && c.JWTSecret == c.JWTRefreshSecret {
		errs = append(errs, errors.New("JWT_SECRET and JWT_REFRESH_SECRET must differ"))
	}
	if len(c.SessionSecret) < minSecretLength {
		errs = append(errs, fmt.Errorf("SESSION_SECRET must be at least %d characters", minSecretLength))
	}

	switch c.StoreDriver {
	case DriverSQLite:
		if c.DBPath == "" {
			errs = append(errs, errors.New("DB_PATH is required for the sqlite driver"))
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER %q is not one of sqlite, postgres", c.StoreDriver))
	}

	switch c.ChatBackend {
	case ChatMemory, ChatRedis:
	default:
		errs = append(errs, fmt.Errorf("CHAT_BACKEND %q is not one of memory, redis", c.ChatBackend))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// IsProduction reports whether cookies should be marked Secure.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// SlogLevel maps LOG_LEVEL to a slog.Level, defaulting to Info.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
