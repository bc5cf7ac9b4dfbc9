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

// PGFormStore implements store.FormStore backed by Postgres.
type PGFormStore struct {
	db *sql.DB
}

func NewPGFormStore(db *sql.DB) *PGFormStore {
	return &PGFormStore{db: db}
}

func (s *PGFormStore) Create(ctx context.Context, form *store.Form) (*store.Form, error) {
	f := *form
	if f.ID == "" {
		f.ID = uuid.Must(uuid.NewV7()).String()
	}
	f.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO forms (id, user_id, name, avatar_url, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		f.ID, f.UserID, f.Name, nullable(f.AvatarURL), f.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert form: %w", err)
	}
	return &f, nil
}

func (s *PGFormStore) GetByID(ctx context.Context, id string) (*store.Form, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, avatar_url, created_at FROM forms WHERE id = $1`, id)
	return scanForm(row)
}

func (s *PGFormStore) GetByUser(ctx context.Context, userID string) ([]store.Form, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, avatar_url, created_at
		 FROM forms WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("query forms: %w", err)
	}
	defer rows.Close()

	var forms []store.Form
	for rows.Next() {
		f, err := scanForm(rows)
		if err != nil {
			return nil, err
		}
		forms = append(forms, *f)
	}
	return forms, rows.Err()
}

func (s *PGFormStore) Update(ctx context.Context, id, name, avatarURL string, setAvatar bool) (*store.Form, error) {
	var res sql.Result
	var err error
	switch {
	case name != "" && setAvatar:
		res, err = s.db.ExecContext(ctx,
			`UPDATE forms SET name = $2, avatar_url = $3 WHERE id = $1`,
			id, name, nullable(avatarURL))
	case name != "":
		res, err = s.db.ExecContext(ctx, `UPDATE forms SET name = $2 WHERE id = $1`, id, name)
	case setAvatar:
		res, err = s.db.ExecContext(ctx,
			`UPDATE forms SET avatar_url = $2 WHERE id = $1`, id, nullable(avatarURL))
	default:
		return s.GetByID(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("update form: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetByID(ctx, id)
}

func (s *PGFormStore) Delete(ctx context.Context, id string) error {
	// Aliases cascade via their foreign key.
	res, err := s.db.ExecContext(ctx, `DELETE FROM forms WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete form: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanForm(row rowScanner) (*store.Form, error) {
	var f store.Form
	var avatar sql.NullString
	if err := row.Scan(&f.ID, &f.UserID, &f.Name, &avatar, &f.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("scan form: %w", err)
	}
	f.AvatarURL = avatar.String
	return &f, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
