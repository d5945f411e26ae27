// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config is the full service configuration.
type Config struct {
	Port        string
	StoreDriver string
	CORSOrigins []string

	Database Database
	Redis    Redis
	Log      Log
}

// Database holds PostgreSQL connection and call-policy settings.
type Database struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string

	MaxConns     int32
	MinConns     int32
	QueryTimeout time.Duration
	ReadRetries  int
	Migrate      bool
}

// DSN builds a libpq-compatible connection string.
func (c Database) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// URL builds a postgres URL, as golang-migrate expects.
func (c Database) URL(scheme string) string {
	u := url.URL{
		Scheme:   scheme,
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

// Redis configures the optional municipality cache. An empty URL disables it.
type Redis struct {
	URL      string
	CacheTTL time.Duration
}

// Log configures the slog handler.
type Log struct {
	Level  string
	Format string
}

// Load reads an optional .env file and then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from environment variables, falling back to
// local-development defaults.
func FromEnv() (Config, error) {
	var c Config
	c.Port = getEnv("PORT", "8080")
	c.StoreDriver = strings.ToLower(getEnv("STORE_DRIVER", DriverPostgres))
	if c.StoreDriver != DriverPostgres && c.StoreDriver != DriverMemory {
		return c, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverMemory, c.StoreDriver)
	}
	c.CORSOrigins = splitList(getEnv("CORS_ORIGINS", "*"))

	c.Database = Database{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", "postgres"),
		DBName:   getEnv("DB_NAME", "sorteio"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	var err error
	if c.Database.MaxConns, err = int32Env("DB_MAX_CONNS", 20); err != nil {
		return c, err
	}
	if c.Database.MinConns, err = int32Env("DB_MIN_CONNS", 2); err != nil {
		return c, err
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return c, fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.Database.MinConns, c.Database.MaxConns)
	}
	if c.Database.QueryTimeout, err = durationEnv("DB_QUERY_TIMEOUT", 5*time.Second); err != nil {
		return c, err
	}
	retries, err := strconv.Atoi(getEnv("DB_READ_RETRIES", "3"))
	if err != nil || retries < 0 {
		return c, fmt.Errorf("DB_READ_RETRIES must be a non-negative integer")
	}
	c.Database.ReadRetries = retries
	if c.Database.Migrate, err = strconv.ParseBool(getEnv("DB_MIGRATE", "true")); err != nil {
		return c, fmt.Errorf("DB_MIGRATE: %w", err)
	}

	c.Redis.URL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	if c.Redis.CacheTTL, err = durationEnv("GEO_CACHE_TTL", 24*time.Hour); err != nil {
		return c, err
	}

	c.Log = Log{
		Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
	}
	return c, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func int32Env(key string, fallback int32) (int32, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 32)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, raw)
	}
	return int32(v), nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", key, raw)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
