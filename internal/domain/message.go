package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Mention references a user called out inside a message body.
type Mention struct {
	UserID   string `json:"userId"`
	Username string `json:"username,omitempty"`
}

// Message is a single chat message as persisted by the store.
// ID and CreatedAt are store-assigned; a message is immutable once created.
// The ID is a UUIDv7, so lexical order tracks creation order.
type Message struct {
	ID        uuid.UUID `json:"_id"`
	CompanyID string    `json:"companyId"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username,omitempty"`
	Name      string    `json:"name,omitempty"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	Content   string    `json:"content,omitempty"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	Mentions  []Mention `json:"mentions"`
	CreatedAt time.Time `json:"createdAt"`
}

// MessageDraft is what a writer submits; the store assigns ID and CreatedAt.
type MessageDraft struct {
	CompanyID string
	UserID    string
	Username  string
	Name      string
	AvatarURL string
	Content   string
	ImageURL  string
	Mentions  []Mention
}

// Validate rejects drafts that carry neither text nor an image.
func (d MessageDraft) Validate() error {
	if d.CompanyID == "" {
		return ErrMissingCompany
	}
	if d.UserID == "" {
		return ErrMissingAuthor
	}
	if d.Content == "" && d.ImageURL == "" {
		return ErrEmptyMessage
	}
	return nil
}

type MessageRepository interface {
	// Create validates the draft, assigns ID and CreatedAt, and persists it.
	Create(ctx context.Context, draft MessageDraft) (*Message, error)
	// ListRecent returns up to limit messages, newest first.
	ListRecent(ctx context.Context, companyID string, limit int) ([]Message, error)
	// ListSince returns messages created strictly after since, oldest first.
	ListSince(ctx context.Context, companyID string, since time.Time) ([]Message, error)
}
