// Package config loads server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds server and worker configuration.
type Config struct {
	DBPath    string
	Port      int
	JWTSecret string
	DevMode   bool
	LogLevel  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	BidTTL        time.Duration
	ClientTimeout time.Duration
}

// SMTPEnabled reports whether outgoing mail is configured.
func (c Config) SMTPEnabled() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}

// QueueEnabled reports whether notifications go through Redis.
func (c Config) QueueEnabled() bool {
	return c.RedisAddr != ""
}

// LoadDotEnv reads the given .env files (".env" when none are named) into
// the process environment. Variables already set win. Missing files are
// not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// FromEnv creates a Config from environment variables.
func FromEnv() (Config, error) {
	cfg := Config{
		DBPath:        os.Getenv("EB_DB_PATH"),
		JWTSecret:     os.Getenv("EB_JWT_SECRET"),
		DevMode:       os.Getenv("EB_DEV_MODE") == "true",
		LogLevel:      envOrDefault("EB_LOG_LEVEL", ""),
		RedisAddr:     os.Getenv("EB_REDIS_ADDR"),
		RedisPassword: os.Getenv("EB_REDIS_PASSWORD"),
		SMTPHost:      os.Getenv("EB_SMTP_HOST"),
		SMTPPort:      envOrDefault("EB_SMTP_PORT", "587"),
		SMTPUser:      os.Getenv("EB_SMTP_USER"),
		SMTPPass:      os.Getenv("EB_SMTP_PASS"),
		SMTPFrom:      os.Getenv("EB_SMTP_FROM"),
	}

	var err error
	if cfg.Port, err = envInt("EB_PORT", 8080); err != nil {
		return Config{}, err
	}
	if cfg.RedisDB, err = envInt("EB_REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.BidTTL, err = envDuration("EB_BID_TTL", 72*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.ClientTimeout, err = envDuration("EB_CLIENT_TIMEOUT", 30*time.Second); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", key, v)
	}
	return n, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}
