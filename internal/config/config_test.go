package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/chat")
	t.Setenv("COMPANY_ID", "biz_test")
	t.Setenv("AUTH_PROVIDER_URL", "https://auth.example.com")
	t.Setenv("AUTH_API_KEY", "key")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 25*time.Second, cfg.KeepaliveInterval)
	assert.Equal(t, int64(10000), cfg.MaxConnections)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadMissingRequired(t *testing.T) {
	tests := []struct {
		name  string
		unset string
	}{
		{"missing database url", "DATABASE_URL"},
		{"missing company id", "COMPANY_ID"},
		{"missing auth provider url", "AUTH_PROVIDER_URL"},
		{"missing auth api key", "AUTH_API_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.unset, "")

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.unset)
		})
	}
}

func TestLoadBlobStorePairing(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BLOB_STORE_URL", "https://blobs.example.com")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BLOB_API_KEY")

	t.Setenv("BLOB_API_KEY", "blobkey")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://blobs.example.com", cfg.BlobStoreURL)
}

func TestLoadKeepaliveValidation(t *testing.T) {
	setRequiredEnv(t)

	t.Setenv("KEEPALIVE_INTERVAL", "garbage")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("KEEPALIVE_INTERVAL", "500ms")
	_, err = Load()
	require.Error(t, err)

	t.Setenv("KEEPALIVE_INTERVAL", "10s")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.KeepaliveInterval)
}
