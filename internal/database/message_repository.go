package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"github.com/Jzephh/whop-chat-app/internal/domain"
)

// messageColumns must match the Scan order in scanMessage.
const messageColumns = `id, company_id, user_id, username, name, avatar_url, content, image_url, mentions, created_at`

// MessageRepo implements domain.MessageRepository backed by PostgreSQL.
type MessageRepo struct {
	pool  *pgxpool.Pool
	clock clockwork.Clock
}

func NewMessageRepo(pool *pgxpool.Pool, clock clockwork.Clock) *MessageRepo {
	return &MessageRepo{pool: pool, clock: clock}
}

func scanMessage(row pgx.Row) (*domain.Message, error) {
	var msg domain.Message
	err := row.Scan(
		&msg.ID, &msg.CompanyID, &msg.UserID, &msg.Username, &msg.Name,
		&msg.AvatarURL, &msg.Content, &msg.ImageURL, &msg.Mentions, &msg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if msg.Mentions == nil {
		msg.Mentions = []domain.Mention{}
	}
	return &msg, nil
}

// Create validates the draft, assigns ID and CreatedAt, and persists it.
// The UUIDv7 ID keeps identifiers creation-ordered.
func (r *MessageRepo) Create(ctx context.Context, draft domain.MessageDraft) (*domain.Message, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate message id: %w", err)
	}

	mentions := draft.Mentions
	if mentions == nil {
		mentions = []domain.Mention{}
	}
	createdAt := r.clock.Now().UTC()

	msg, err := scanMessage(r.pool.QueryRow(ctx, `
		INSERT INTO messages (id, company_id, user_id, username, name, avatar_url, content, image_url, mentions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+messageColumns,
		id, draft.CompanyID, draft.UserID, draft.Username, draft.Name,
		draft.AvatarURL, draft.Content, draft.ImageURL, mentions, createdAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}
	return msg, nil
}

// ListRecent returns up to limit messages for the company, newest first.
// Callers wanting chronological order reverse the slice.
func (r *MessageRepo) ListRecent(ctx context.Context, companyID string, limit int) ([]domain.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE company_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`,
		companyID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent messages: %w", err)
	}
	defer rows.Close()

	return collectMessages(rows)
}

// ListSince returns messages created strictly after since, oldest first.
func (r *MessageRepo) ListSince(ctx context.Context, companyID string, since time.Time) ([]domain.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE company_id = $1 AND created_at > $2
		ORDER BY created_at ASC, id ASC`,
		companyID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages since %v: %w", since, err)
	}
	defer rows.Close()

	return collectMessages(rows)
}

func collectMessages(rows pgx.Rows) ([]domain.Message, error) {
	messages := []domain.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}
	return messages, nil
}
