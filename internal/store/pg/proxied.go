package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/formrelay/internal/store"
)

// PGProxiedStore implements store.ProxiedStore backed by Postgres.
type PGProxiedStore struct {
	db *sql.DB
}

func NewPGProxiedStore(db *sql.DB) *PGProxiedStore {
	return &PGProxiedStore{db: db}
}

func (s *PGProxiedStore) Insert(ctx context.Context, rec *store.ProxiedMessage) (*store.ProxiedMessage, error) {
	r := *rec
	if r.ID == "" {
		r.ID = uuid.Must(uuid.NewV7()).String()
	}
	r.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO proxied_messages
		 (id, user_id, form_id, guild_id, channel_id, webhook_id, webhook_token, message_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ID, r.UserID, r.FormID, r.GuildID, r.ChannelID, r.WebhookID, r.WebhookToken, r.MessageID, r.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert proxied message: %w", err)
	}
	return &r, nil
}

func (s *PGProxiedStore) GetByMessageID(ctx context.Context, messageID string) (*store.ProxiedMessage, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, form_id, guild_id, channel_id, webhook_id, webhook_token, message_id, created_at
		 FROM proxied_messages WHERE message_id = $1`, messageID)

	var r store.ProxiedMessage
	err := row.Scan(&r.ID, &r.UserID, &r.FormID, &r.GuildID, &r.ChannelID,
		&r.WebhookID, &r.WebhookToken, &r.MessageID, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("scan proxied message: %w", err)
	}
	return &r, nil
}

func (s *PGProxiedStore) DeleteByMessageID(ctx context.Context, messageID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM proxied_messages WHERE message_id = $1`, messageID)
	if err != nil {
		return fmt.Errorf("delete proxied message: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}
