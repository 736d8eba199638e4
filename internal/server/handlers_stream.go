package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// handleStream serves the SSE fallback. The first event on the wire is
// always the ready acknowledgment the hub queued at subscription time, so a
// client knows its subscription is live before any message arrives.
func (s *Server) handleStream(c echo.Context) error {
	ip := c.RealIP()
	ok, reason := s.limits.Acquire(ip)
	if !ok {
		slog.Warn("Stream connection rejected", "ip", ip, "reason", reason)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "connection limit reached")
	}
	defer s.limits.Release(ip)

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set(echo.HeaderConnection, "keep-alive")
	resp.WriteHeader(http.StatusOK)

	sub := s.hub.Subscribe()
	defer s.hub.Unsubscribe(sub.ID)

	slog.Debug("Stream client connected", "ip", ip, "stream_id", sub.ID, "user_id", s.userID(c))

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case data, open := <-sub.Events:
			if !open {
				return nil
			}
			if _, err := fmt.Fprintf(resp, "data: %s\n\n", data); err != nil {
				return nil
			}
			resp.Flush()
		}
	}
}
