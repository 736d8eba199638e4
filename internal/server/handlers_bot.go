package server

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Jzephh/whop-chat-app/internal/domain"
	"github.com/Jzephh/whop-chat-app/internal/errors"
)

// Bot ingress: automations post on behalf of a caller-supplied user. There
// is no credential to verify; the gate is that the user must exist at the
// identity provider, and the display fields come from its profile.

type botMessageRequest struct {
	UserID   string           `json:"userId"`
	Content  string           `json:"content"`
	ImageURL string           `json:"imageUrl"`
	Mentions []domain.Mention `json:"mentions"`
}

func (s *Server) handleBotCreateMessage(c echo.Context) error {
	var req botMessageRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError("invalid request body")
	}
	if req.UserID == "" {
		return errors.ValidationError("userId is required")
	}
	if req.Content == "" && req.ImageURL == "" {
		return errors.ValidationError("message content or image is required")
	}

	profile, err := s.lookupUser(c.Request().Context(), req.UserID)
	if err != nil {
		return err
	}

	draft := domain.MessageDraft{
		CompanyID: s.config.CompanyID,
		UserID:    req.UserID,
		Username:  profile.Username,
		Name:      profile.Name,
		AvatarURL: profile.AvatarURL,
		Content:   req.Content,
		ImageURL:  req.ImageURL,
		Mentions:  req.Mentions,
	}
	msg, err := s.createAndBroadcast(c.Request().Context(), draft)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, msg)
}

// handleBotUpload stores one image and immediately posts it as a message
// from the given user.
func (s *Server) handleBotUpload(c echo.Context) error {
	if s.blobs == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "image uploads are not configured")
	}

	userID := c.FormValue("userId")
	if userID == "" {
		return errors.ValidationError("userId is required")
	}

	profile, err := s.lookupUser(c.Request().Context(), userID)
	if err != nil {
		return err
	}

	data, contentType, err := readImageFile(c)
	if err != nil {
		return err
	}

	blob, err := s.blobs.Store(c.Request().Context(), data, contentType)
	if err != nil {
		return errors.ExternalError("blob store unavailable", err)
	}

	draft := domain.MessageDraft{
		CompanyID: s.config.CompanyID,
		UserID:    userID,
		Username:  profile.Username,
		Name:      profile.Name,
		AvatarURL: profile.AvatarURL,
		ImageURL:  blob.URL,
	}
	msg, err := s.createAndBroadcast(c.Request().Context(), draft)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, msg)
}

// lookupUser resolves a user at the identity provider. An unknown user is
// 404; a provider failure means the claim cannot be checked, so the post is
// refused rather than attributed blindly.
func (s *Server) lookupUser(ctx context.Context, userID string) (*domain.UserProfile, error) {
	profile, err := s.verifier.GetUser(ctx, userID)
	if err != nil {
		if stderrors.Is(err, domain.ErrUserNotFound) {
			return nil, errors.NotFoundError("user not found")
		}
		return nil, echo.NewHTTPError(http.StatusForbidden, "user verification failed")
	}
	if profile == nil {
		return nil, errors.NotFoundError("user not found")
	}
	return profile, nil
}
