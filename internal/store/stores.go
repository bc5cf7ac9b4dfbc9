package store

import "context"

// FormStore manages form (persona) records.
type FormStore interface {
	Create(ctx context.Context, form *Form) (*Form, error)
	GetByID(ctx context.Context, id string) (*Form, error)
	GetByUser(ctx context.Context, userID string) ([]Form, error)
	// Update changes name and/or avatar. Empty name means "leave as is";
	// avatar is overwritten as given (empty clears it) when setAvatar is true.
	Update(ctx context.Context, id string, name string, avatarURL string, setAvatar bool) (*Form, error)
	// Delete removes the form and cascades to its aliases.
	Delete(ctx context.Context, id string) error
}

// AliasStore manages alias (trigger) records.
//
// Create must enforce the (user_id, trigger_norm) unique constraint at the
// storage layer and return ErrCollision on violation.
type AliasStore interface {
	Create(ctx context.Context, alias *Alias) (*Alias, error)
	GetByUser(ctx context.Context, userID string) ([]Alias, error)
	GetByForm(ctx context.Context, formID string) ([]Alias, error)
	Delete(ctx context.Context, id string) error
	// FindCollision returns the alias with the given normalized trigger
	// for the user, or ErrNotFound. Advisory only; the unique constraint
	// on Create is authoritative.
	FindCollision(ctx context.Context, userID, triggerNorm string) (*Alias, error)
}

// ProxiedStore manages delivery audit records.
type ProxiedStore interface {
	// Insert persists the record. An empty ID is filled in by the store.
	Insert(ctx context.Context, rec *ProxiedMessage) (*ProxiedMessage, error)
	// GetByMessageID looks up the record for an externally visible
	// webhook message id.
	GetByMessageID(ctx context.Context, messageID string) (*ProxiedMessage, error)
	DeleteByMessageID(ctx context.Context, messageID string) error
}

// Stores is the top-level container for all storage backends.
type Stores struct {
	Forms   FormStore
	Aliases AliasStore
	Proxied ProxiedStore

	// Close releases the underlying database handle.
	Close func() error
}

// StoreConfig carries backend selection for store construction.
type StoreConfig struct {
	PostgresDSN string // managed mode; empty means standalone sqlite
	SQLitePath  string // standalone mode database file
}
