package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Jzephh/whop-chat-app/internal/blob"
	"github.com/Jzephh/whop-chat-app/internal/config"
	"github.com/Jzephh/whop-chat-app/internal/database"
	"github.com/Jzephh/whop-chat-app/internal/domain"
	"github.com/Jzephh/whop-chat-app/internal/identity"
	"github.com/Jzephh/whop-chat-app/internal/logging"
	"github.com/Jzephh/whop-chat-app/internal/redis"
	"github.com/Jzephh/whop-chat-app/internal/registry"
	"github.com/Jzephh/whop-chat-app/internal/server"
)

func setupConfig() *config.Config {
	// Local development reads a .env file; deployments set real env vars.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.RunMigrations(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupRedis(cfg *config.Config) *goredis.Client {
	if cfg.RedisURL == "" {
		slog.Info("Redis not configured, credential verification cache disabled")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func runGracefulShutdown(srv *server.Server, hub *registry.Hub) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		hub.Stop()
		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	// Initialize structured logging
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	pool := setupDB(cfg)
	defer pool.Close()

	redisClient := setupRedis(cfg)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	// Pass nil explicitly to avoid typed-nil interfaces.
	var verificationCache *redis.VerificationCache
	if redisClient != nil {
		verificationCache = redis.NewVerificationCache(redisClient)
	}

	var verifier domain.IdentityVerifier
	if verificationCache != nil {
		verifier = identity.NewClient(cfg.AuthProviderURL, cfg.AuthAPIKey, verificationCache)
	} else {
		verifier = identity.NewClient(cfg.AuthProviderURL, cfg.AuthAPIKey, nil)
	}

	var blobs domain.BlobStore
	if cfg.BlobStoreURL != "" {
		blobs = blob.NewClient(cfg.BlobStoreURL, cfg.BlobAPIKey)
	} else {
		slog.Info("Blob store not configured, image uploads disabled")
	}

	messages := database.NewMessageRepo(pool, clock)
	hub := registry.NewHub(clock, cfg.KeepaliveInterval)

	var srv *server.Server
	if verificationCache != nil {
		srv = server.NewServer(cfg, hub, messages, verifier, blobs, pool, verificationCache)
	} else {
		srv = server.NewServer(cfg, hub, messages, verifier, blobs, pool, nil)
	}

	done := runGracefulShutdown(srv, hub)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
