package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Jzephh/whop-chat-app/internal/domain"
	"github.com/Jzephh/whop-chat-app/internal/errors"
	"github.com/Jzephh/whop-chat-app/internal/logging"
	"github.com/Jzephh/whop-chat-app/internal/metrics"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type createMessageRequest struct {
	Content  string           `json:"content"`
	ImageURL string           `json:"imageUrl"`
	Mentions []domain.Mention `json:"mentions"`
}

type listMessagesResponse struct {
	Messages []domain.Message `json:"messages"`
}

// handleListMessages returns messages in ascending creation order. Without a
// since parameter it serves the most recent window; with one it serves the
// catch-up slice created strictly after that instant.
func (s *Server) handleListMessages(c echo.Context) error {
	ctx := c.Request().Context()

	if raw := c.QueryParam("since"); raw != "" {
		since, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return errors.ValidationError("since must be an RFC 3339 timestamp")
		}
		msgs, err := s.messages.ListSince(ctx, s.config.CompanyID, since)
		if err != nil {
			return errors.InternalError("failed to load messages", err)
		}
		return c.JSON(http.StatusOK, listMessagesResponse{Messages: msgs})
	}

	limit := defaultListLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return errors.ValidationError("limit must be a positive integer")
		}
		limit = min(n, maxListLimit)
	}

	msgs, err := s.messages.ListRecent(ctx, s.config.CompanyID, limit)
	if err != nil {
		return errors.InternalError("failed to load messages", err)
	}

	// ListRecent returns newest first; clients render oldest first.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return c.JSON(http.StatusOK, listMessagesResponse{Messages: msgs})
}

// handleCreateMessage persists a message and fans it out to every live
// subscriber. Fan-out is best-effort; persistence decides success.
func (s *Server) handleCreateMessage(c echo.Context) error {
	var req createMessageRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError("invalid request body")
	}

	userID := s.userID(c)
	draft := domain.MessageDraft{
		CompanyID: s.config.CompanyID,
		UserID:    userID,
		Content:   req.Content,
		ImageURL:  req.ImageURL,
		Mentions:  req.Mentions,
	}

	// Display fields come from the auth provider. A profile lookup failure
	// degrades to a bare message, never a rejected one.
	if profile, err := s.verifier.GetUser(c.Request().Context(), userID); err != nil {
		logging.WithUser(userID).Warn("Profile lookup failed, posting without display fields", "error", err)
	} else {
		draft.Username = profile.Username
		draft.Name = profile.Name
		draft.AvatarURL = profile.AvatarURL
	}

	msg, err := s.createAndBroadcast(c.Request().Context(), draft)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, msg)
}

// createAndBroadcast is the shared ingress tail: persist the draft, then
// fan the persisted record out. Broadcast happens only after a successful
// create, and its outcome never surfaces to the writer.
func (s *Server) createAndBroadcast(ctx context.Context, draft domain.MessageDraft) (*domain.Message, error) {
	msg, err := s.messages.Create(ctx, draft)
	if err != nil {
		switch {
		case stderrors.Is(err, domain.ErrEmptyMessage):
			metrics.MessagesRejectedTotal.WithLabelValues("empty").Inc()
			return nil, errors.ValidationError("message content or image is required")
		case stderrors.Is(err, domain.ErrMissingCompany), stderrors.Is(err, domain.ErrMissingAuthor):
			metrics.MessagesRejectedTotal.WithLabelValues("invalid").Inc()
			return nil, errors.ValidationError(err.Error())
		default:
			return nil, errors.InternalError("failed to create message", err)
		}
	}

	metrics.MessagesCreatedTotal.Inc()
	s.hub.Broadcast(domain.MessageCreated(msg))
	return msg, nil
}
