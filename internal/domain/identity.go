package domain

import "context"

// Identity is the result of a successful credential check.
type Identity struct {
	UserID string `json:"userId"`
}

// UserProfile carries the display fields attached to outgoing messages.
type UserProfile struct {
	ID        string `json:"id"`
	Username  string `json:"username,omitempty"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// IdentityVerifier is the external auth provider. The service never issues or
// stores credentials; it either receives a verified identity or treats the
// request as unauthenticated.
type IdentityVerifier interface {
	Verify(ctx context.Context, credential string) (*Identity, error)
	GetUser(ctx context.Context, userID string) (*UserProfile, error)
}
