package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration values.
type Config struct {
	Secret          string
	HTTPPort        string
	DatabaseDriver  string
	DatabaseDSN     string
	DatabaseMaxConn int
	LogLevel        string
	LogFormat       string
	SaleCacheSize   int
	SeedFile        string
	TokenTTL        time.Duration
	ShutdownTimeout time.Duration
}

// Load reads a .env file when one exists and then the environment, falling
// back to reasonable defaults. Invalid values are logged and replaced by the
// default.
func Load() Config {
	_ = godotenv.Load()
	return fromEnv(os.Getenv)
}

func fromEnv(getenv func(string) string) Config {
	get := func(key, fallback string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return fallback
	}

	port := get("HTTP_PORT", "8080")
	// Validate that port is numeric.
	if _, err := strconv.Atoi(port); err != nil {
		log.Printf("invalid HTTP_PORT value %q, defaulting to 8080", port)
		port = "8080"
	}

	driver := get("DATABASE_DRIVER", "sqlite")
	if driver != "sqlite" && driver != "pgx" {
		log.Printf("unknown DATABASE_DRIVER %q, defaulting to sqlite", driver)
		driver = "sqlite"
	}
	defaultConns := 10
	if driver == "sqlite" {
		defaultConns = 1
	}

	return Config{
		Secret:          get("SECRET", "dev_secret"),
		HTTPPort:        port,
		DatabaseDriver:  driver,
		DatabaseDSN:     get("DATABASE_DSN", "file:sales.db?_pragma=foreign_keys(1)"),
		DatabaseMaxConn: intValue(getenv, "DATABASE_MAX_CONNS", defaultConns),
		LogLevel:        get("LOG_LEVEL", "info"),
		LogFormat:       get("LOG_FORMAT", "json"),
		SaleCacheSize:   intValue(getenv, "SALE_CACHE_SIZE", 256),
		SeedFile:        getenv("SEED_FILE"),
		TokenTTL:        durationValue(getenv, "TOKEN_TTL", 24*time.Hour),
		ShutdownTimeout: durationValue(getenv, "SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func intValue(getenv func(string) string, key string, fallback int) int {
	raw := getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		log.Printf("invalid %s value %q, defaulting to %d", key, raw, fallback)
		return fallback
	}
	return n
}

func durationValue(getenv func(string) string, key string, fallback time.Duration) time.Duration {
	raw := getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("invalid %s value %q, defaulting to %s", key, raw, fallback)
		return fallback
	}
	return d
}
