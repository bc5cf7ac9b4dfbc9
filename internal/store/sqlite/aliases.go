package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/formrelay/internal/store"
)

// AliasStore implements store.AliasStore on sqlite. The unique index on
// (user_id, trigger_norm) is the authority on collisions.
type AliasStore struct {
	db *sql.DB
}

func NewAliasStore(db *sql.DB) *AliasStore {
	return &AliasStore{db: db}
}

func (s *AliasStore) Create(ctx context.Context, alias *store.Alias) (*store.Alias, error) {
	a := *alias
	if a.ID == "" {
		a.ID = uuid.Must(uuid.NewV7()).String()
	}
	a.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO aliases (id, user_id, form_id, trigger_raw, trigger_norm, kind, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.FormID, a.TriggerRaw, a.TriggerNorm, string(a.Kind), a.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrCollision
		}
		return nil, fmt.Errorf("insert alias: %w", err)
	}
	return &a, nil
}

func (s *AliasStore) GetByUser(ctx context.Context, userID string) ([]store.Alias, error) {
	return s.query(ctx,
		`SELECT id, user_id, form_id, trigger_raw, trigger_norm, kind, created_at
		 FROM aliases WHERE user_id = ? ORDER BY created_at`, userID)
}

func (s *AliasStore) GetByForm(ctx context.Context, formID string) ([]store.Alias, error) {
	return s.query(ctx,
		`SELECT id, user_id, form_id, trigger_raw, trigger_norm, kind, created_at
		 FROM aliases WHERE form_id = ? ORDER BY created_at`, formID)
}

func (s *AliasStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM aliases WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete alias: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *AliasStore) FindCollision(ctx context.Context, userID, triggerNorm string) (*store.Alias, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, form_id, trigger_raw, trigger_norm, kind, created_at
		 FROM aliases WHERE user_id = ? AND trigger_norm = ?`, userID, triggerNorm)
	return scanAlias(row)
}

func (s *AliasStore) query(ctx context.Context, q string, arg any) ([]store.Alias, error) {
	rows, err := s.db.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, fmt.Errorf("query aliases: %w", err)
	}
	defer rows.Close()

	var aliases []store.Alias
	for rows.Next() {
		a, err := scanAlias(rows)
		if err != nil {
			return nil, err
		}
		aliases = append(aliases, *a)
	}
	return aliases, rows.Err()
}

func scanAlias(row rowScanner) (*store.Alias, error) {
	var a store.Alias
	var kind string
	if err := row.Scan(&a.ID, &a.UserID, &a.FormID, &a.TriggerRaw, &a.TriggerNorm, &kind, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("scan alias: %w", err)
	}
	a.Kind = store.AliasKind(kind)
	return &a, nil
}
