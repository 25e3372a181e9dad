package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "POS_DB_PATH", "ALLOWED_ORIGIN", "REDIS_ADDR", "REDIS_DB",
		"AUTH_SECRET", "ACCESS_TOKEN_TTL_MINUTES", "LOW_STOCK_THRESHOLD", "SEED_ADMIN_PIN",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8980" {
		t.Errorf("port = %q", cfg.Port)
	}
	if cfg.DBPath != "kadaipos.db" {
		t.Errorf("db path = %q", cfg.DBPath)
	}
	if cfg.AuthSecret != DevAuthSecret {
		t.Errorf("auth secret = %q, want the dev fallback", cfg.AuthSecret)
	}
	if cfg.AccessTokenTTL != 12*time.Hour {
		t.Errorf("token ttl = %v", cfg.AccessTokenTTL)
	}
	if cfg.LowStockThreshold != 10 {
		t.Errorf("low stock threshold = %d", cfg.LowStockThreshold)
	}
	if cfg.Address() != ":8980" {
		t.Errorf("address = %q", cfg.Address())
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("POS_DB_PATH", "/data/shop.db")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "30")
	t.Setenv("LOW_STOCK_THRESHOLD", "3")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9000" || cfg.DBPath != "/data/shop.db" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.AccessTokenTTL != 30*time.Minute {
		t.Errorf("token ttl = %v", cfg.AccessTokenTTL)
	}
	if cfg.LowStockThreshold != 3 {
		t.Errorf("low stock threshold = %d", cfg.LowStockThreshold)
	}
	if cfg.RedisAddr != "localhost:6379" || cfg.RedisDB != 2 {
		t.Errorf("redis config = %q/%d", cfg.RedisAddr, cfg.RedisDB)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-numeric TTL")
	}

	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "0")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for zero TTL")
	}

	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "60")
	t.Setenv("LOW_STOCK_THRESHOLD", "-1")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for negative threshold")
	}
}
