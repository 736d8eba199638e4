package server

import (
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Jzephh/whop-chat-app/internal/domain"
	"github.com/Jzephh/whop-chat-app/internal/errors"
)

const contextKeyUserID = "userID"

// credentialFrom extracts the caller's credential. The Authorization header
// wins; the token query parameter exists for WebSocket and EventSource
// clients, which cannot set headers.
func credentialFrom(c echo.Context) string {
	header := c.Request().Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok && token != "" {
		return token
	}
	return c.QueryParam("token")
}

// requireAuth verifies the caller's credential with the auth provider and
// stores the verified user id in the request context.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		identity, err := s.verify(c)
		if err != nil {
			return err
		}
		c.Set(contextKeyUserID, identity.UserID)
		return next(c)
	}
}

func (s *Server) verify(c echo.Context) (*domain.Identity, error) {
	credential := credentialFrom(c)
	if credential == "" {
		return nil, errors.UnauthorizedError("missing credential")
	}

	identity, err := s.verifier.Verify(c.Request().Context(), credential)
	if err != nil {
		if stderrors.Is(err, domain.ErrUnauthorized) {
			return nil, errors.UnauthorizedError("invalid credential")
		}
		return nil, errors.ExternalError("auth provider unavailable", err)
	}
	return identity, nil
}

func (s *Server) userID(c echo.Context) string {
	id, _ := c.Get(contextKeyUserID).(string)
	return id
}

// handleVerify lets a client check its credential without side effects. The
// profile is included when the provider has it; its absence is not an error.
func (s *Server) handleVerify(c echo.Context) error {
	identity, err := s.verify(c)
	if err != nil {
		return err
	}

	resp := map[string]any{"userId": identity.UserID}
	if profile, err := s.verifier.GetUser(c.Request().Context(), identity.UserID); err == nil && profile != nil {
		resp["user"] = profile
	}
	return c.JSON(http.StatusOK, resp)
}
