package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	SchemeSession = "session"
	SchemeToken   = "token"

	// MinKeyLength is the minimum HS256 key length in bytes.
	MinKeyLength = 128
)

type Config struct {
	HTTPAddr    string
	CORSOrigins []string
	LogLevel    slog.Level
	DB          DBConfig
	RedisAddr   string
	Auth        AuthConfig
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type AuthConfig struct {
	Scheme        string
	Issuer        string
	Audience      string
	Key           []byte
	AccessCookie  string
	RefreshCookie string
	CookieSecure  bool
	CookieMaxAge  time.Duration
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function such as os.Getenv.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		HTTPAddr:  get("HTTP_ADDR", ":8080"),
		RedisAddr: get("REDIS_ADDR", "localhost:6379"),
		DB: DBConfig{
			Host:     get("DB_HOST", "localhost"),
			Port:     get("DB_PORT", "5432"),
			User:     get("DB_USER", "postgres"),
			Password: getenv("DB_PASSWORD"),
			DBName:   get("DB_NAME", "quizonomy"),
			SSLMode:  get("DB_SSLMODE", "disable"),
		},
		Auth: AuthConfig{
			Scheme:        strings.ToLower(get("AUTH_SCHEME", SchemeToken)),
			Issuer:        get("AUTH_ISSUER", ""),
			Audience:      get("AUTH_AUDIENCE", ""),
			Key:           []byte(getenv("AUTH_KEY")),
			AccessCookie:  get("AUTH_ACCESS_COOKIE", "quizonomy_access"),
			RefreshCookie: get("AUTH_REFRESH_COOKIE", "quizonomy_refresh"),
		},
	}

	for _, origin := range strings.Split(get("CORS_ORIGINS", "*"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
		}
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(get("LOG_LEVEL", "info"))); err != nil {
		return Config{}, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	secure, err := strconv.ParseBool(get("AUTH_COOKIE_SECURE", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("AUTH_COOKIE_SECURE: %w", err)
	}
	cfg.Auth.CookieSecure = secure

	maxAge, err := time.ParseDuration(get("AUTH_COOKIE_MAX_AGE", "1h"))
	if err != nil {
		return Config{}, fmt.Errorf("AUTH_COOKIE_MAX_AGE: %w", err)
	}
	cfg.Auth.CookieMaxAge = maxAge

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	switch c.Auth.Scheme {
	case SchemeSession, SchemeToken:
	default:
		errs = append(errs, fmt.Errorf("AUTH_SCHEME must be %q or %q, got %q", SchemeSession, SchemeToken, c.Auth.Scheme))
	}
	if c.Auth.Scheme == SchemeToken {
		if c.Auth.Issuer == "" {
			errs = append(errs, errors.New("AUTH_ISSUER is required"))
		}
		if c.Auth.Audience == "" {
			errs = append(errs, errors.New("AUTH_AUDIENCE is required"))
		}
		if len(c.Auth.Key) < MinKeyLength {
			errs = append(errs, fmt.Errorf("AUTH_KEY must be at least %d bytes, got %d", MinKeyLength, len(c.Auth.Key)))
		}
	}
	if c.Auth.CookieMaxAge <= 0 {
		errs = append(errs, errors.New("AUTH_COOKIE_MAX_AGE must be positive"))
	}
	return errors.Join(errs...)
}

// DSN is the postgres connection string for gorm.
func (d DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		d.Host, d.User, d.Password, d.DBName, d.Port, d.SSLMode,
	)
}
