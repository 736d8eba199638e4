// Package blob implements the client for the external blob store.
//
// Only the resulting URL ends up on a message; object lifecycle stays with
// the store.
package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/Jzephh/whop-chat-app/internal/domain"
	"github.com/Jzephh/whop-chat-app/internal/metrics"
)

const uploadTimeout = 30 * time.Second

// Client talks to the blob store over HTTP. Implements domain.BlobStore.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: uploadTimeout},
	}
}

// Store uploads one image and returns its public handle.
func (c *Client) Store(ctx context.Context, data []byte, contentType string) (*domain.StoredBlob, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="upload"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart body: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/blobs", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("blob store request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("blob store returned status %d: %s", resp.StatusCode, msg)
	}

	var blob domain.StoredBlob
	if err := json.NewDecoder(resp.Body).Decode(&blob); err != nil {
		return nil, fmt.Errorf("failed to decode blob store response: %w", err)
	}
	if blob.URL == "" {
		return nil, fmt.Errorf("blob store returned empty URL")
	}

	metrics.BlobUploadBytes.Observe(float64(len(data)))
	return &blob, nil
}
