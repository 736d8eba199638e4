package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jzephh/whop-chat-app/internal/domain"
)

func TestVerify_ValidCredential(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/auth/verify", ""))

	require.Equal(t, http.StatusOK, rec.Code)
	expected := `{
		"userId": "user_1",
		"user": {"id": "user_1", "username": "alice", "name": "Alice", "avatarUrl": "https://cdn.example.com/a.png"}
	}`
	assert.JSONEq(t, expected, rec.Body.String())
}

func TestVerify_MissingCredential(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/verify", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVerify_TokenQueryParamAccepted(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/verify?token=query-token", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestVerify_HeaderWinsOverQueryParam(t *testing.T) {
	verifier := &mockVerifier{identity: &domain.Identity{UserID: "user_1"}}
	srv, _ := newTestServer(t, withVerifier(verifier))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/verify?token=query-token", nil)
	req.Header.Set("Authorization", "Bearer header-token")
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, verifier.verified, 1)
	assert.Equal(t, "header-token", verifier.verified[0])
}

func TestVerify_ProviderFailure(t *testing.T) {
	srv, _ := newTestServer(t, withVerifier(&mockVerifier{verifyErr: errors.New("connection refused")}))

	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/auth/verify", ""))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
