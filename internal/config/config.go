package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config collects everything the server reads from the environment. A
// .env file in the working directory is loaded first when present.
type Config struct {
	Port          string
	DBPath        string
	AllowedOrigin string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AuthSecret     string
	AccessTokenTTL time.Duration

	LowStockThreshold int
	SeedAdminPIN      string
}

// DevAuthSecret is the fallback signing key. Startup warns loudly when it
// is still in use.
const DevAuthSecret = "dev-secret-change-me"

func Load() (*Config, error) {
	// Missing .env is fine; real deployments set variables directly.
	_ = godotenv.Load()

	cfg := &Config{
		Port:          envOr("PORT", "8980"),
		DBPath:        envOr("POS_DB_PATH", "kadaipos.db"),
		AllowedOrigin: envOr("ALLOWED_ORIGIN", "*"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		AuthSecret:    envOr("AUTH_SECRET", DevAuthSecret),
		SeedAdminPIN:  os.Getenv("SEED_ADMIN_PIN"),
	}

	redisDB, err := envInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	cfg.RedisDB = redisDB

	ttlMinutes, err := envInt("ACCESS_TOKEN_TTL_MINUTES", 12*60)
	if err != nil {
		return nil, err
	}
	if ttlMinutes < 1 {
		return nil, fmt.Errorf("ACCESS_TOKEN_TTL_MINUTES must be positive, got %d", ttlMinutes)
	}
	cfg.AccessTokenTTL = time.Duration(ttlMinutes) * time.Minute

	lowStock, err := envInt("LOW_STOCK_THRESHOLD", 10)
	if err != nil {
		return nil, err
	}
	if lowStock < 0 {
		return nil, fmt.Errorf("LOW_STOCK_THRESHOLD must not be negative, got %d", lowStock)
	}
	cfg.LowStockThreshold = lowStock

	return cfg, nil
}

// Address returns the listen address for the HTTP server.
func (c *Config) Address() string {
	return ":" + c.Port
}

func envOr(key, fallback string) string {
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
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}
