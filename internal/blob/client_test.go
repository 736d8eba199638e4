package blob

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Store_UploadsMultipart(t *testing.T) {
	var gotAPIKey, gotFilePart string
	var gotPartType string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/blobs", r.URL.Path)
		gotAPIKey = r.Header.Get("X-API-Key")

		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		gotPartType = header.Header.Get("Content-Type")
		data, err := io.ReadAll(file)
		require.NoError(t, err)
		gotFilePart = string(data)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"url": "https://cdn.example.com/abc.png", "id": "abc"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-key")
	blob, err := client.Store(context.Background(), []byte("png-bytes"), "image/png")

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/abc.png", blob.URL)
	assert.Equal(t, "abc", blob.ID)
	assert.Equal(t, "secret-key", gotAPIKey)
	assert.Equal(t, "png-bytes", gotFilePart)
	assert.Equal(t, "image/png", gotPartType)
}

func TestClient_Store_StoreError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(server.URL, "key")
	blob, err := client.Store(context.Background(), []byte("x"), "image/png")

	assert.Error(t, err)
	assert.Nil(t, blob)
	assert.Contains(t, err.Error(), "403")
}

func TestClient_Store_EmptyURLRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": "abc"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "key")
	_, err := client.Store(context.Background(), []byte("x"), "image/png")

	assert.Error(t, err)
}
