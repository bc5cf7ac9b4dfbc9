package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nextlevelbuilder/formrelay/internal/store"
)

// ErrNotOwner is returned when a user operates on a form they don't own.
var ErrNotOwner = errors.New("form does not belong to user")

// ErrInvalidName is returned for empty form names.
var ErrInvalidName = errors.New("form name is required")

// Service implements form and alias management on top of the stores.
type Service struct {
	forms   store.FormStore
	aliases store.AliasStore
}

func NewService(forms store.FormStore, aliases store.AliasStore) *Service {
	return &Service{forms: forms, aliases: aliases}
}

// SkippedAlias records a default alias that could not be seeded and why.
type SkippedAlias struct {
	TriggerRaw string
	Reason     string
}

// CreateFormResult bundles the created form with the outcome of default
// alias seeding.
type CreateFormResult struct {
	Form           *store.Form
	DefaultAliases []store.Alias
	Skipped        []SkippedAlias
}

// CreateForm creates a form and seeds its default aliases: "<name>:text"
// and, for multi-character names, "<initial>:text". A default alias that
// collides with an existing trigger is skipped, not an error. If form
// creation succeeds but seeding fails hard, the form is deleted again.
func (s *Service) CreateForm(ctx context.Context, userID, name, avatarURL string) (*CreateFormResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	form, err := s.forms.Create(ctx, &store.Form{
		UserID:    userID,
		Name:      name,
		AvatarURL: strings.TrimSpace(avatarURL),
	})
	if err != nil {
		return nil, fmt.Errorf("create form: %w", err)
	}

	result := &CreateFormResult{Form: form}

	candidates := []string{strings.ToLower(name) + ":text"}
	if initial := firstRune(name); len(initial) > 0 && strings.ToLower(initial) != strings.ToLower(name) {
		candidates = append(candidates, strings.ToLower(initial)+":text")
	} else {
		result.Skipped = append(result.Skipped, SkippedAlias{
			TriggerRaw: strings.ToLower(initial) + ":text",
			Reason:     "single character name",
		})
	}

	for _, raw := range candidates {
		alias, addErr := s.addAliasChecked(ctx, userID, form.ID, raw)
		switch {
		case addErr == nil:
			result.DefaultAliases = append(result.DefaultAliases, *alias)
		case errors.Is(addErr, store.ErrCollision):
			result.Skipped = append(result.Skipped, SkippedAlias{TriggerRaw: raw, Reason: "alias already exists"})
		default:
			// Hard failure: roll the form back so a half-seeded form
			// doesn't linger.
			if delErr := s.forms.Delete(ctx, form.ID); delErr != nil {
				slog.Error("form cleanup after alias seed failure failed",
					"form_id", form.ID, "error", delErr)
			}
			return nil, fmt.Errorf("seed default aliases: %w", addErr)
		}
	}

	slog.Info("form created",
		"user_id", userID,
		"form_id", form.ID,
		"default_aliases", len(result.DefaultAliases),
		"skipped", len(result.Skipped),
	)
	return result, nil
}

// EditForm updates a form's name and/or avatar after an ownership check.
func (s *Service) EditForm(ctx context.Context, userID, formID, name, avatarURL string, setAvatar bool) (*store.Form, error) {
	if _, err := s.ownedForm(ctx, userID, formID); err != nil {
		return nil, err
	}
	form, err := s.forms.Update(ctx, formID, strings.TrimSpace(name), strings.TrimSpace(avatarURL), setAvatar)
	if err != nil {
		return nil, fmt.Errorf("update form: %w", err)
	}
	return form, nil
}

// DeleteForm removes a form and all its aliases.
func (s *Service) DeleteForm(ctx context.Context, userID, formID string) error {
	if _, err := s.ownedForm(ctx, userID, formID); err != nil {
		return err
	}
	if err := s.forms.Delete(ctx, formID); err != nil {
		return fmt.Errorf("delete form: %w", err)
	}
	slog.Info("form deleted", "user_id", userID, "form_id", formID)
	return nil
}

// ListForms returns all forms owned by a user.
func (s *Service) ListForms(ctx context.Context, userID string) ([]store.Form, error) {
	return s.forms.GetByUser(ctx, userID)
}

// AddAlias validates, normalizes, and stores a new trigger for a form the
// user owns. Returns store.ErrCollision when the normalized trigger is
// already registered for the user.
func (s *Service) AddAlias(ctx context.Context, userID, formID, trigger string) (*store.Alias, error) {
	if _, err := s.ownedForm(ctx, userID, formID); err != nil {
		return nil, err
	}
	return s.addAliasChecked(ctx, userID, formID, trigger)
}

// RemoveAlias deletes an alias after verifying the caller owns it.
func (s *Service) RemoveAlias(ctx context.Context, userID, aliasID string) error {
	aliases, err := s.aliases.GetByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("load aliases: %w", err)
	}
	for _, a := range aliases {
		if a.ID == aliasID {
			if err := s.aliases.Delete(ctx, aliasID); err != nil {
				return fmt.Errorf("delete alias: %w", err)
			}
			return nil
		}
	}
	return store.ErrNotFound
}

// ListAliases returns the aliases attached to a form the user owns.
func (s *Service) ListAliases(ctx context.Context, userID, formID string) ([]store.Alias, error) {
	if _, err := s.ownedForm(ctx, userID, formID); err != nil {
		return nil, err
	}
	return s.aliases.GetByForm(ctx, formID)
}

func (s *Service) addAliasChecked(ctx context.Context, userID, formID, trigger string) (*store.Alias, error) {
	raw := strings.TrimSpace(trigger)
	norm, err := NormalizeTrigger(raw)
	if err != nil {
		return nil, err
	}

	// Pre-check is an optimization for a friendly error; the unique
	// constraint on Create remains the source of truth.
	if _, err := s.aliases.FindCollision(ctx, userID, norm); err == nil {
		return nil, store.ErrCollision
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("check alias collision: %w", err)
	}

	alias, err := s.aliases.Create(ctx, &store.Alias{
		UserID:      userID,
		FormID:      formID,
		TriggerRaw:  raw,
		TriggerNorm: norm,
		Kind:        ClassifyTrigger(norm),
	})
	if err != nil {
		return nil, err
	}

	slog.Info("alias created",
		"user_id", userID,
		"form_id", formID,
		"alias_id", alias.ID,
		"kind", alias.Kind,
	)
	return alias, nil
}

func (s *Service) ownedForm(ctx context.Context, userID, formID string) (*store.Form, error) {
	form, err := s.forms.GetByID(ctx, formID)
	if err != nil {
		return nil, err
	}
	if form.UserID != userID {
		return nil, ErrNotOwner
	}
	return form, nil
}

func firstRune(s string) string {
	for _, r := range s {
		return string(r)
	}
	return ""
}
