package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Jzephh/whop-chat-app/internal/domain"
	"github.com/Jzephh/whop-chat-app/internal/metrics"
)

const verificationTTL = 60 * time.Second

// VerificationCache stores successful credential checks for a short TTL so a
// chatty client does not hit the auth provider on every request. Only
// successful verifications are cached; failures always go back to the
// provider. Credentials are keyed by digest, never stored.
type VerificationCache struct {
	rdb *goredis.Client
	ttl time.Duration
}

func NewVerificationCache(rdb *goredis.Client) *VerificationCache {
	return &VerificationCache{rdb: rdb, ttl: verificationTTL}
}

func verificationKey(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return "verify:" + hex.EncodeToString(sum[:])
}

// Get returns the cached identity for a credential, or nil on miss.
// Cache errors are logged and reported as misses.
func (c *VerificationCache) Get(ctx context.Context, credential string) *domain.Identity {
	data, err := c.rdb.Get(ctx, verificationKey(credential)).Bytes()
	if errors.Is(err, goredis.Nil) {
		metrics.IdentityCacheHits.WithLabelValues("miss").Inc()
		return nil
	}
	if err != nil {
		slog.Warn("Verification cache read failed", "error", err)
		metrics.IdentityCacheHits.WithLabelValues("miss").Inc()
		return nil
	}

	var identity domain.Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		slog.Warn("Verification cache entry corrupt", "error", err)
		metrics.IdentityCacheHits.WithLabelValues("miss").Inc()
		return nil
	}

	metrics.IdentityCacheHits.WithLabelValues("hit").Inc()
	return &identity
}

// Put stores a successful verification. Best-effort: errors are logged only.
func (c *VerificationCache) Put(ctx context.Context, credential string, identity *domain.Identity) {
	data, err := json.Marshal(identity)
	if err != nil {
		slog.Warn("Failed to marshal identity for cache", "error", err)
		return
	}
	if err := c.rdb.Set(ctx, verificationKey(credential), data, c.ttl).Err(); err != nil {
		slog.Warn("Verification cache write failed", "error", err)
	}
}

// Healthcheck pings the underlying Redis connection.
func (c *VerificationCache) Healthcheck(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}
