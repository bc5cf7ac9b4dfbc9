package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/nextlevelbuilder/formrelay/internal/store"
)

func openTestStores(t *testing.T) *store.Stores {
	t.Helper()
	stores, err := NewSQLiteStores(store.StoreConfig{
		SQLitePath: filepath.Join(t.TempDir(), "formrelay.db"),
	})
	if err != nil {
		t.Fatalf("open sqlite stores: %v", err)
	}
	t.Cleanup(func() { stores.Close() })
	return stores
}

func TestFormRoundTrip(t *testing.T) {
	stores := openTestStores(t)
	ctx := context.Background()

	created, err := stores.Forms.Create(ctx, &store.Form{UserID: "u1", Name: "Neoli", AvatarURL: "https://cdn.example/a.png"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Errorf("created form missing id/timestamp: %+v", created)
	}

	got, err := stores.Forms.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "Neoli" || got.AvatarURL != created.AvatarURL {
		t.Errorf("got = %+v", got)
	}

	if _, err := stores.Forms.GetByID(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing form error = %v, want ErrNotFound", err)
	}

	updated, err := stores.Forms.Update(ctx, created.ID, "Renamed", "", true)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != "Renamed" || updated.AvatarURL != "" {
		t.Errorf("updated = %+v", updated)
	}
}

func TestAliasCollisionAndCascade(t *testing.T) {
	stores := openTestStores(t)
	ctx := context.Background()

	form, err := stores.Forms.Create(ctx, &store.Form{UserID: "u1", Name: "Neoli"})
	if err != nil {
		t.Fatalf("create form: %v", err)
	}
	other, err := stores.Forms.Create(ctx, &store.Form{UserID: "u1", Name: "Other"})
	if err != nil {
		t.Fatalf("create form: %v", err)
	}

	alias := &store.Alias{UserID: "u1", FormID: form.ID, TriggerRaw: "n:text", TriggerNorm: "n:text", Kind: store.KindPrefix}
	if _, err := stores.Aliases.Create(ctx, alias); err != nil {
		t.Fatalf("create alias: %v", err)
	}

	// Same normalized trigger for the same user, even on another form.
	dup := &store.Alias{UserID: "u1", FormID: other.ID, TriggerRaw: "N:text", TriggerNorm: "n:text", Kind: store.KindPrefix}
	if _, err := stores.Aliases.Create(ctx, dup); !errors.Is(err, store.ErrCollision) {
		t.Fatalf("duplicate create error = %v, want ErrCollision", err)
	}

	// A different user may reuse the trigger.
	foreign := &store.Alias{UserID: "u2", FormID: other.ID, TriggerRaw: "n:text", TriggerNorm: "n:text", Kind: store.KindPrefix}
	if _, err := stores.Aliases.Create(ctx, foreign); err != nil {
		t.Fatalf("foreign create: %v", err)
	}

	if hit, err := stores.Aliases.FindCollision(ctx, "u1", "n:text"); err != nil || hit.FormID != form.ID {
		t.Errorf("FindCollision = %+v, %v", hit, err)
	}
	if _, err := stores.Aliases.FindCollision(ctx, "u1", "x:text"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("FindCollision miss error = %v, want ErrNotFound", err)
	}

	// Deleting the form cascades to its aliases.
	if err := stores.Forms.Delete(ctx, form.ID); err != nil {
		t.Fatalf("delete form: %v", err)
	}
	left, err := stores.Aliases.GetByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("GetByUser: %v", err)
	}
	if len(left) != 0 {
		t.Errorf("aliases after cascade = %+v, want none", left)
	}
}

func TestProxiedMessageAudit(t *testing.T) {
	stores := openTestStores(t)
	ctx := context.Background()

	rec := &store.ProxiedMessage{
		UserID:       "u1",
		FormID:       "f1",
		GuildID:      "g1",
		ChannelID:    "c1",
		WebhookID:    "wh1",
		WebhookToken: "tok",
		MessageID:    "m1",
	}
	inserted, err := stores.Proxied.Insert(ctx, rec)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if inserted.ID == "" {
		t.Error("id must be generated when absent")
	}

	got, err := stores.Proxied.GetByMessageID(ctx, "m1")
	if err != nil {
		t.Fatalf("GetByMessageID: %v", err)
	}
	if got.UserID != "u1" || got.WebhookToken != "tok" {
		t.Errorf("got = %+v", got)
	}

	if err := stores.Proxied.DeleteByMessageID(ctx, "m1"); err != nil {
		t.Fatalf("DeleteByMessageID: %v", err)
	}
	if _, err := stores.Proxied.GetByMessageID(ctx, "m1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("after delete error = %v, want ErrNotFound", err)
	}
}
