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

// FormStore implements store.FormStore on sqlite.
type FormStore struct {
	db *sql.DB
}

func NewFormStore(db *sql.DB) *FormStore {
	return &FormStore{db: db}
}

func (s *FormStore) Create(ctx context.Context, form *store.Form) (*store.Form, error) {
	f := *form
	if f.ID == "" {
		f.ID = uuid.Must(uuid.NewV7()).String()
	}
	f.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO forms (id, user_id, name, avatar_url, created_at) VALUES (?, ?, ?, ?, ?)`,
		f.ID, f.UserID, f.Name, nullable(f.AvatarURL), f.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert form: %w", err)
	}
	return &f, nil
}

func (s *FormStore) GetByID(ctx context.Context, id string) (*store.Form, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, avatar_url, created_at FROM forms WHERE id = ?`, id)
	return scanForm(row)
}

func (s *FormStore) GetByUser(ctx context.Context, userID string) ([]store.Form, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, avatar_url, created_at
		 FROM forms WHERE user_id = ? ORDER BY created_at`, userID)
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

func (s *FormStore) Update(ctx context.Context, id, name, avatarURL string, setAvatar bool) (*store.Form, error) {
	var res sql.Result
	var err error
	switch {
	case name != "" && setAvatar:
		res, err = s.db.ExecContext(ctx,
			`UPDATE forms SET name = ?, avatar_url = ? WHERE id = ?`, name, nullable(avatarURL), id)
	case name != "":
		res, err = s.db.ExecContext(ctx, `UPDATE forms SET name = ? WHERE id = ?`, name, id)
	case setAvatar:
		res, err = s.db.ExecContext(ctx,
			`UPDATE forms SET avatar_url = ? WHERE id = ?`, nullable(avatarURL), id)
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

func (s *FormStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM forms WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete form: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
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
