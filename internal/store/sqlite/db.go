// Package sqlite provides the standalone-mode storage backend. Unlike the
// Postgres backend it manages its own schema on open, so a single-binary
// deployment needs no migration step.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/nextlevelbuilder/formrelay/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS forms (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	name       TEXT NOT NULL,
	avatar_url TEXT,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS forms_user_idx ON forms (user_id);

CREATE TABLE IF NOT EXISTS aliases (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	form_id      TEXT NOT NULL REFERENCES forms (id) ON DELETE CASCADE,
	trigger_raw  TEXT NOT NULL,
	trigger_norm TEXT NOT NULL,
	kind         TEXT NOT NULL,
	created_at   TIMESTAMP NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS aliases_user_trigger_idx ON aliases (user_id, trigger_norm);
CREATE INDEX IF NOT EXISTS aliases_form_idx ON aliases (form_id);

CREATE TABLE IF NOT EXISTS proxied_messages (
	id            TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL,
	form_id       TEXT NOT NULL,
	guild_id      TEXT NOT NULL,
	channel_id    TEXT NOT NULL,
	webhook_id    TEXT NOT NULL,
	webhook_token TEXT NOT NULL,
	message_id    TEXT NOT NULL,
	created_at    TIMESTAMP NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS proxied_message_idx ON proxied_messages (message_id);
`

// NewSQLiteStores opens (creating if needed) the standalone database.
func NewSQLiteStores(cfg store.StoreConfig) (*store.Stores, error) {
	path := cfg.SQLitePath
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// modernc sqlite serializes writes; one connection avoids SQLITE_BUSY
	// churn under concurrent handlers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}

	return &store.Stores{
		Forms:   NewFormStore(db),
		Aliases: NewAliasStore(db),
		Proxied: NewProxiedStore(db),
		Close:   db.Close,
	}, nil
}

func isUniqueViolation(err error) bool {
	// modernc.org/sqlite surfaces SQLITE_CONSTRAINT_UNIQUE in the message;
	// the driver does not export a stable typed error for it.
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
