package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kadaipos/engine/internal/cache"
	"kadaipos/engine/internal/config"
	"kadaipos/engine/internal/httpapi"
	"kadaipos/engine/internal/service"
	"kadaipos/engine/internal/store"
	"kadaipos/engine/internal/store/memory"
	"kadaipos/engine/internal/store/sqlite"
)

// defaultSeedAdminPIN matches the memory store's dev seed so both store
// backends come up with the same first-boot credentials.
const defaultSeedAdminPIN = "908172"

// seedAdminPIN picks the PIN for the first super_admin. An empty users
// table must always end up with one account, so an unset SEED_ADMIN_PIN
// falls back to the dev default rather than skipping the bootstrap.
func seedAdminPIN(configured string) (pin string, usedDefault bool) {
	if configured != "" {
		return configured, false
	}
	return defaultSeedAdminPIN, true
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmsgprefix)
	log.SetPrefix("[kadaipos] ")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.AuthSecret == config.DevAuthSecret {
		log.Println("WARNING: AUTH_SECRET is unset, tokens are signed with the dev key")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []io.Closer

	var repo store.Repository
	if cfg.DBPath == ":memory-seeded:" {
		log.Println("running on the seeded in-memory store, nothing will persist")
		repo = memory.NewSeeded()
	} else {
		db, err := sqlite.New(ctx, cfg.DBPath)
		if err != nil {
			log.Fatalf("open database %s: %v", cfg.DBPath, err)
		}
		closers = append(closers, db)
		repo = db
		log.Printf("database ready at %s", cfg.DBPath)
	}

	var products cache.ProductCache = cache.NewNoopProductCache()
	if cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedisProductCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Printf("WARNING: redis at %s unavailable, continuing without cache: %v", cfg.RedisAddr, err)
		} else {
			closers = append(closers, redisCache)
			products = redisCache
			log.Printf("product cache on redis at %s", cfg.RedisAddr)
		}
	}

	svc := service.New(repo, products, cfg.LowStockThreshold)

	pin, usedDefault := seedAdminPIN(cfg.SeedAdminPIN)
	if usedDefault {
		log.Println("WARNING: using default dev PIN for the first super_admin. Set SEED_ADMIN_PIN to override.")
	}
	if err := svc.EnsureSuperAdmin(ctx, "owner", pin); err != nil {
		log.Fatalf("bootstrap super_admin: %v", err)
	}

	auth := httpapi.NewAuthManager(repo, cfg.AuthSecret, cfg.AccessTokenTTL)
	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           httpapi.NewServer(svc, auth, cfg.AllowedOrigin),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("WARNING: shutdown: %v", err)
	}
	for _, c := range closers {
		if err := c.Close(); err != nil {
			log.Printf("WARNING: close: %v", err)
		}
	}
	log.Println("bye")
}
