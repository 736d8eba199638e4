package client

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Jzephh/whop-chat-app/internal/domain"
)

// MessageSource is the durable-store read surface the view reconciles
// against. The API scopes results to the caller's room server side.
type MessageSource interface {
	// ListRecent returns up to limit messages in ascending creation order.
	ListRecent(ctx context.Context, limit int) ([]domain.Message, error)
	// ListSince returns messages created strictly after since, ascending.
	ListSince(ctx context.Context, since time.Time) ([]domain.Message, error)
}

// View is the client's local ordered sequence of messages. Pushed events
// merge in directly when they arrive in order; anything suspicious triggers
// one catch-up fetch against the store, which is the source of truth.
type View struct {
	mu       sync.Mutex
	source   MessageSource
	messages []domain.Message
	seen     map[uuid.UUID]struct{}
	lastSeen time.Time
}

func NewView(source MessageSource) *View {
	return &View{
		source: source,
		seen:   make(map[uuid.UUID]struct{}),
	}
}

// Bootstrap replaces the view with the most recent window from the store.
// Called before opening the live subscription so no event outruns the
// initial snapshot.
func (v *View) Bootstrap(ctx context.Context, limit int) error {
	msgs, err := v.source.ListRecent(ctx, limit)
	if err != nil {
		return fmt.Errorf("initial load failed: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.messages = nil
	v.seen = make(map[uuid.UUID]struct{})
	v.lastSeen = time.Time{}
	for _, msg := range msgs {
		v.insertLocked(msg)
	}
	return nil
}

// ApplyEvent merges one broadcast event into the view. Keepalive and ready
// frames are ignored. A message whose timestamp is not strictly newer than
// everything already incorporated signals a possible missed push; the view
// then issues exactly one catch-up fetch and merges the returned batch.
func (v *View) ApplyEvent(ctx context.Context, event domain.Event) error {
	if event.Type != domain.EventMessageCreated || event.Payload == nil {
		return nil
	}
	msg := *event.Payload

	v.mu.Lock()
	if msg.CreatedAt.After(v.lastSeen) {
		v.insertLocked(msg)
		v.mu.Unlock()
		return nil
	}
	since := v.lastSeen
	v.mu.Unlock()

	batch, err := v.source.ListSince(ctx, since)
	if err != nil {
		return fmt.Errorf("catch-up fetch failed: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	for _, m := range batch {
		v.insertLocked(m)
	}
	// The store may not return the triggering message itself when its
	// timestamp predates the fetch window. It is still a real message.
	v.insertLocked(msg)
	return nil
}

// Messages returns a copy of the view in ascending creation order.
func (v *View) Messages() []domain.Message {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]domain.Message, len(v.messages))
	copy(out, v.messages)
	return out
}

// LastSeen returns the creation timestamp of the newest incorporated message.
func (v *View) LastSeen() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastSeen
}

// insertLocked adds one message, deduplicating by identifier and keeping the
// sequence ascending by creation time.
func (v *View) insertLocked(msg domain.Message) {
	if _, dup := v.seen[msg.ID]; dup {
		return
	}
	v.seen[msg.ID] = struct{}{}

	i := sort.Search(len(v.messages), func(i int) bool {
		return v.messages[i].CreatedAt.After(msg.CreatedAt)
	})
	v.messages = append(v.messages, domain.Message{})
	copy(v.messages[i+1:], v.messages[i:])
	v.messages[i] = msg

	if msg.CreatedAt.After(v.lastSeen) {
		v.lastSeen = msg.CreatedAt
	}
}
