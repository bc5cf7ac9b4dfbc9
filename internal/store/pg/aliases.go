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

// PGAliasStore implements store.AliasStore backed by Postgres. The
// aliases_user_trigger_idx unique index is the authority on collisions.
type PGAliasStore struct {
	db *sql.DB
}

func NewPGAliasStore(db *sql.DB) *PGAliasStore {
	return &PGAliasStore{db: db}
}

func (s *PGAliasStore) Create(ctx context.Context, alias *store.Alias) (*store.Alias, error) {
	a := *alias
	if a.ID == "" {
		a.ID = uuid.Must(uuid.NewV7()).String()
	}
	a.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO aliases (id, user_id, form_id, trigger_raw, trigger_norm, kind, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
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

func (s *PGAliasStore) GetByUser(ctx context.Context, userID string) ([]store.Alias, error) {
	return s.query(ctx,
		`SELECT id, user_id, form_id, trigger_raw, trigger_norm, kind, created_at
		 FROM aliases WHERE user_id = $1 ORDER BY created_at`, userID)
}

func (s *PGAliasStore) GetByForm(ctx context.Context, formID string) ([]store.Alias, error) {
	return s.query(ctx,
		`SELECT id, user_id, form_id, trigger_raw, trigger_norm, kind, created_at
		 FROM aliases WHERE form_id = $1 ORDER BY created_at`, formID)
}

func (s *PGAliasStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM aliases WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete alias: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *PGAliasStore) FindCollision(ctx context.Context, userID, triggerNorm string) (*store.Alias, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, form_id, trigger_raw, trigger_norm, kind, created_at
		 FROM aliases WHERE user_id = $1 AND trigger_norm = $2`, userID, triggerNorm)
	return scanAlias(row)
}

func (s *PGAliasStore) query(ctx context.Context, q string, arg any) ([]store.Alias, error) {
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
