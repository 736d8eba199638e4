package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Jzephh/whop-chat-app/internal/domain"
)

const fetchTimeout = 10 * time.Second

// APISource reads messages over the chat REST API. Implements MessageSource.
type APISource struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewAPISource(baseURL, token string) *APISource {
	return &APISource{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: fetchTimeout},
	}
}

func (s *APISource) ListRecent(ctx context.Context, limit int) ([]domain.Message, error) {
	return s.fetch(ctx, "?limit="+strconv.Itoa(limit))
}

func (s *APISource) ListSince(ctx context.Context, since time.Time) ([]domain.Message, error) {
	// Zone offsets such as +02:00 must survive URL decoding intact.
	return s.fetch(ctx, "?since="+url.QueryEscape(since.Format(time.RFC3339Nano)))
}

func (s *APISource) fetch(ctx context.Context, query string) ([]domain.Message, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/chat/messages"+query, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("message fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("message fetch returned status %d", resp.StatusCode)
	}

	var body struct {
		Messages []domain.Message `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode message list: %w", err)
	}
	return body.Messages, nil
}
