package store

import "errors"

var (
	// ErrNotFound is returned when a form, alias, or proxied-message
	// record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrCollision is returned when an insert violates the per-user
	// trigger uniqueness constraint. The database constraint is the
	// source of truth; callers may pre-check with FindCollision but must
	// still handle this on Create.
	ErrCollision = errors.New("alias trigger already exists for user")
)
