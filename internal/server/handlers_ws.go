package server

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Embedded clients connect from arbitrary origins
	},
}

// handleWebSocket registers a bidirectional delivery connection. The request
// must actually ask for an upgrade; plain GETs get 426 so a misconfigured
// client sees a diagnosable status instead of a hung response.
func (s *Server) handleWebSocket(c echo.Context) error {
	if !strings.EqualFold(c.Request().Header.Get("Upgrade"), "websocket") {
		return echo.NewHTTPError(http.StatusUpgradeRequired, "websocket upgrade required")
	}

	ip := c.RealIP()
	ok, reason := s.limits.Acquire(ip)
	if !ok {
		slog.Warn("WebSocket connection rejected", "ip", ip, "reason", reason)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "connection limit reached")
	}
	defer s.limits.Release(ip)

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote its own error response.
		return nil
	}

	if err := s.hub.Register(conn); err != nil {
		_ = conn.Close()
		return nil
	}
	defer s.hub.Unregister(conn)

	slog.Debug("WebSocket client connected", "ip", ip, "user_id", s.userID(c))

	// Read pump. Clients do not send application frames; reading drains
	// control frames and detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("WebSocket read ended", "error", err)
			}
			return nil
		}
	}
}
