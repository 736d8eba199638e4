package server

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/Jzephh/whop-chat-app/internal/config"
	"github.com/Jzephh/whop-chat-app/internal/domain"
	"github.com/Jzephh/whop-chat-app/internal/registry"
)

// --- Mocks ---

type mockVerifier struct {
	mu         sync.Mutex
	identity   *domain.Identity
	verifyErr  error
	profile    *domain.UserProfile
	profileErr error
	verified   []string
}

func (m *mockVerifier) Verify(_ context.Context, credential string) (*domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verified = append(m.verified, credential)
	if m.verifyErr != nil {
		return nil, m.verifyErr
	}
	return m.identity, nil
}

func (m *mockVerifier) GetUser(context.Context, string) (*domain.UserProfile, error) {
	if m.profileErr != nil {
		return nil, m.profileErr
	}
	return m.profile, nil
}

// mockRepo is an in-memory MessageRepository.
type mockRepo struct {
	mu        sync.Mutex
	messages  []domain.Message
	createErr error
}

func (r *mockRepo) Create(_ context.Context, draft domain.MessageDraft) (*domain.Message, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	if r.createErr != nil {
		return nil, r.createErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	msg := domain.Message{
		ID:        uuid.Must(uuid.NewV7()),
		CompanyID: draft.CompanyID,
		UserID:    draft.UserID,
		Username:  draft.Username,
		Name:      draft.Name,
		AvatarURL: draft.AvatarURL,
		Content:   draft.Content,
		ImageURL:  draft.ImageURL,
		Mentions:  draft.Mentions,
		CreatedAt: time.Now().UTC(),
	}
	if msg.Mentions == nil {
		msg.Mentions = []domain.Mention{}
	}
	r.messages = append(r.messages, msg)
	return &msg, nil
}

func (r *mockRepo) ListRecent(_ context.Context, companyID string, limit int) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Message
	for _, m := range r.messages {
		if m.CompanyID == companyID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *mockRepo) ListSince(_ context.Context, companyID string, since time.Time) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Message
	for _, m := range r.messages {
		if m.CompanyID == companyID && m.CreatedAt.After(since) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type mockPgPool struct {
	pingErr error
}

func (m *mockPgPool) Ping(context.Context) error {
	return m.pingErr
}

type mockRedisCache struct {
	healthErr error
}

func (m *mockRedisCache) Healthcheck(context.Context) error {
	return m.healthErr
}

type mockBlobStore struct {
	blob     *domain.StoredBlob
	storeErr error
	gotType  string
	gotSize  int
}

func (m *mockBlobStore) Store(_ context.Context, data []byte, contentType string) (*domain.StoredBlob, error) {
	m.gotType = contentType
	m.gotSize = len(data)
	if m.storeErr != nil {
		return nil, m.storeErr
	}
	return m.blob, nil
}

// --- Test server construction ---

const testCompanyID = "company_1"

type serverOption func(*Server)

func withBlobStore(blobs domain.BlobStore) serverOption {
	return func(s *Server) { s.blobs = blobs }
}

func withRedis(redis redisHealthChecker) serverOption {
	return func(s *Server) { s.redis = redis }
}

func withPostgres(db postgresHealthChecker) serverOption {
	return func(s *Server) { s.db = db }
}

func withVerifier(v domain.IdentityVerifier) serverOption {
	return func(s *Server) { s.verifier = v }
}

func withLimits(limits *ConnectionLimits) serverOption {
	return func(s *Server) { s.limits = limits }
}

func newTestServer(t *testing.T, opts ...serverOption) (*Server, *mockRepo) {
	t.Helper()

	cfg := &config.Config{
		AppEnv:            "test",
		Port:              "0",
		CompanyID:         testCompanyID,
		KeepaliveInterval: time.Minute,
		MaxConnections:    100,
	}

	hub := registry.NewHub(clockwork.NewRealClock(), cfg.KeepaliveInterval)
	t.Cleanup(hub.Stop)

	repo := &mockRepo{}
	verifier := &mockVerifier{
		identity: &domain.Identity{UserID: "user_1"},
		profile:  &domain.UserProfile{ID: "user_1", Username: "alice", Name: "Alice", AvatarURL: "https://cdn.example.com/a.png"},
	}

	srv := NewServer(cfg, hub, repo, verifier, nil, &mockPgPool{}, nil)
	for _, opt := range opts {
		opt(srv)
	}
	return srv, repo
}
