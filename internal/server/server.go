package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Jzephh/whop-chat-app/internal/config"
	"github.com/Jzephh/whop-chat-app/internal/domain"
	"github.com/Jzephh/whop-chat-app/internal/errors"
	"github.com/Jzephh/whop-chat-app/internal/registry"
)

const (
	maxUploadBytes = 10 << 20

	// Per-IP allowance for new delivery connections.
	connectionsPerIP     = 20
	connectionRatePerSec = 10.0
	connectionRateBurst  = 10

	// Per-IP allowance for message posts.
	postsPerSecond = 5.0
	postBurst      = 10
)

// postgresHealthChecker is the minimal surface needed for readiness checks.
type postgresHealthChecker interface {
	Ping(ctx context.Context) error
}

// redisHealthChecker reports whether the optional verification cache is up.
type redisHealthChecker interface {
	Healthcheck(ctx context.Context) error
}

type Server struct {
	echo      *echo.Echo
	config    *config.Config
	hub       *registry.Hub
	messages  domain.MessageRepository
	verifier  domain.IdentityVerifier
	blobs     domain.BlobStore
	db        postgresHealthChecker
	redis     redisHealthChecker
	limits    *ConnectionLimits
	postLimit *ipRateLimiter
	startTime time.Time
}

// NewServer assembles the HTTP surface. blobs and redis may be nil; the
// corresponding endpoints degrade instead of failing startup.
func NewServer(
	cfg *config.Config,
	hub *registry.Hub,
	messages domain.MessageRepository,
	verifier domain.IdentityVerifier,
	blobs domain.BlobStore,
	db postgresHealthChecker,
	redis redisHealthChecker,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(errors.Middleware())

	srv := &Server{
		echo:      e,
		config:    cfg,
		hub:       hub,
		messages:  messages,
		verifier:  verifier,
		blobs:     blobs,
		db:        db,
		redis:     redis,
		limits:    NewConnectionLimits(cfg.MaxConnections, connectionsPerIP, connectionRatePerSec, connectionRateBurst),
		postLimit: newIPRateLimiter(postsPerSecond, postBurst),
		startTime: time.Now(),
	}

	srv.registerRoutes()
	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
