package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints (no auth required)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Chat API (authenticated)
	s.echo.GET("/api/chat/messages", s.handleListMessages, s.requireAuth)
	s.echo.POST("/api/chat/messages", s.handleCreateMessage, s.requireAuth, s.postRateLimit)
	s.echo.POST("/api/upload", s.handleUpload, s.requireAuth, s.postRateLimit)
	s.echo.GET("/api/auth/verify", s.handleVerify)

	// Bot ingress (no caller credential; the posted-for user is verified
	// against the identity provider instead)
	s.echo.POST("/api/bot/messages", s.handleBotCreateMessage, s.postRateLimit)
	s.echo.POST("/api/bot/upload", s.handleBotUpload, s.postRateLimit)

	// Live delivery (authenticated; credential arrives via query parameter
	// because browsers cannot set headers on WebSocket or EventSource)
	s.echo.GET("/ws", s.handleWebSocket, s.requireAuth)
	s.echo.GET("/api/chat/stream", s.handleStream, s.requireAuth)
}
