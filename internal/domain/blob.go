package domain

import "context"

// StoredBlob is the handle returned by the external blob store. Only the URL
// ends up on a message; object lifecycle stays with the store.
type StoredBlob struct {
	URL string `json:"url"`
	ID  string `json:"id"`
}

type BlobStore interface {
	Store(ctx context.Context, data []byte, contentType string) (*StoredBlob, error)
}
