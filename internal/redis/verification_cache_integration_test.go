package redis

import (
	"context"
	"flag"
	"fmt"
	"os"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/Jzephh/whop-chat-app/internal/domain"
)

var testClient *goredis.Client

func TestMain(m *testing.M) {
	flag.Parse()

	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()

	redisContainer, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start redis container: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisContainer.Terminate(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to terminate redis container: %v\n", err)
		}
	}()

	connStr, err := redisContainer.ConnectionString(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get connection string: %v\n", err)
		os.Exit(1)
	}

	testClient, err = NewClient(ctx, connStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to test redis: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = testClient.Close() }()

	os.Exit(m.Run())
}

func setupCache(t *testing.T) *VerificationCache {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	t.Cleanup(func() {
		testClient.FlushAll(context.Background())
	})

	return NewVerificationCache(testClient)
}

func TestVerificationCache_RoundTrip(t *testing.T) {
	cache := setupCache(t)
	ctx := context.Background()

	assert.Nil(t, cache.Get(ctx, "token-abc"))

	cache.Put(ctx, "token-abc", &domain.Identity{UserID: "user_1"})

	got := cache.Get(ctx, "token-abc")
	require.NotNil(t, got)
	assert.Equal(t, "user_1", got.UserID)
}

func TestVerificationCache_KeysAreDigestsNotCredentials(t *testing.T) {
	cache := setupCache(t)
	ctx := context.Background()

	cache.Put(ctx, "super-secret-token", &domain.Identity{UserID: "user_1"})

	keys, err := testClient.Keys(ctx, "*").Result()
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.NotContains(t, keys[0], "super-secret-token")
}

func TestVerificationCache_EntriesExpire(t *testing.T) {
	cache := setupCache(t)
	ctx := context.Background()

	cache.Put(ctx, "token-abc", &domain.Identity{UserID: "user_1"})

	ttl, err := testClient.TTL(ctx, verificationKey("token-abc")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl.Seconds(), 0.0)
	assert.LessOrEqual(t, ttl, verificationTTL)
}

func TestVerificationCache_Healthcheck(t *testing.T) {
	cache := setupCache(t)
	assert.NoError(t, cache.Healthcheck(context.Background()))
}
