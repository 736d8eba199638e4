package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jzephh/whop-chat-app/internal/domain"
)

func seedMessages(t *testing.T, repo *mockRepo, n int) []domain.Message {
	t.Helper()
	var out []domain.Message
	for i := 0; i < n; i++ {
		msg, err := repo.Create(context.Background(), domain.MessageDraft{
			CompanyID: testCompanyID,
			UserID:    "user_1",
			Content:   fmt.Sprintf("message %d", i),
		})
		require.NoError(t, err)
		out = append(out, *msg)
		time.Sleep(time.Millisecond) // Distinct CreatedAt per message
	}
	return out
}

func authedRequest(method, target string, body string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set("Authorization", "Bearer test-token")
	return req
}

func TestListMessages_AscendingWindow(t *testing.T) {
	srv, repo := newTestServer(t)
	seeded := seedMessages(t, repo, 5)

	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/chat/messages", ""))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp listMessagesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 5)

	// Oldest first, matching the seed order.
	for i, msg := range resp.Messages {
		assert.Equal(t, seeded[i].ID, msg.ID)
	}
}

func TestListMessages_LimitCapped(t *testing.T) {
	srv, repo := newTestServer(t)
	seedMessages(t, repo, 4)

	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/chat/messages?limit=2", ""))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp listMessagesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 2)

	// The two newest, still oldest first.
	assert.Equal(t, "message 2", resp.Messages[0].Content)
	assert.Equal(t, "message 3", resp.Messages[1].Content)
}

func TestListMessages_InvalidLimit(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/chat/messages?limit=zero", ""))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListMessages_SinceReturnsOnlyNewer(t *testing.T) {
	srv, repo := newTestServer(t)
	seeded := seedMessages(t, repo, 4)
	since := seeded[1].CreatedAt

	target := "/api/chat/messages?since=" + since.Format(time.RFC3339Nano)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, authedRequest(http.MethodGet, target, ""))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp listMessagesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, seeded[2].ID, resp.Messages[0].ID)
	assert.Equal(t, seeded[3].ID, resp.Messages[1].ID)
}

func TestListMessages_InvalidSince(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/chat/messages?since=yesterday", ""))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateMessage_PersistsAndEnriches(t *testing.T) {
	srv, repo := newTestServer(t)

	body := `{"content": "hello", "mentions": [{"userId": "user_2", "username": "bob"}]}`
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/chat/messages", body))

	require.Equal(t, http.StatusCreated, rec.Code)
	var msg domain.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))

	assert.NotEqual(t, "", msg.ID.String())
	assert.Equal(t, testCompanyID, msg.CompanyID)
	assert.Equal(t, "user_1", msg.UserID)
	assert.Equal(t, "alice", msg.Username)
	assert.Equal(t, "Alice", msg.Name)
	assert.Equal(t, "hello", msg.Content)
	require.Len(t, msg.Mentions, 1)
	assert.Equal(t, "user_2", msg.Mentions[0].UserID)

	repo.mu.Lock()
	defer repo.mu.Unlock()
	require.Len(t, repo.messages, 1)
}

func TestCreateMessage_ProfileLookupFailureDegrades(t *testing.T) {
	verifier := &mockVerifier{
		identity:   &domain.Identity{UserID: "user_1"},
		profileErr: errors.New("provider down"),
	}
	srv, _ := newTestServer(t, withVerifier(verifier))

	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/chat/messages", `{"content": "hello"}`))

	require.Equal(t, http.StatusCreated, rec.Code)
	var msg domain.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	assert.Equal(t, "user_1", msg.UserID)
	assert.Equal(t, "", msg.Username)
}

func TestCreateMessage_EmptyRejected(t *testing.T) {
	srv, repo := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/chat/messages", `{"content": ""}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Empty(t, repo.messages)
}

func TestCreateMessage_ImageOnlyAllowed(t *testing.T) {
	srv, _ := newTestServer(t)

	body := `{"imageUrl": "https://cdn.example.com/pic.png"}`
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/chat/messages", body))

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateMessage_StoreFailure(t *testing.T) {
	srv, repo := newTestServer(t)
	repo.createErr = errors.New("connection reset")

	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/chat/messages", `{"content": "hello"}`))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMessages_RequireAuth(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chat/messages", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMessages_RejectedCredential(t *testing.T) {
	srv, _ := newTestServer(t, withVerifier(&mockVerifier{verifyErr: domain.ErrUnauthorized}))

	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/chat/messages", ""))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
