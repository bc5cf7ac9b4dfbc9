package proxy

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/nextlevelbuilder/formrelay/internal/store"
)

func TestBuildMessage(t *testing.T) {
	form := &store.Form{ID: "f1", UserID: "u1", Name: "Neoli", AvatarURL: "https://cdn.example/a.png"}

	p := BuildMessage(form, "  hello   world  ", nil)
	if p.Username != "Neoli" {
		t.Errorf("username = %q", p.Username)
	}
	if p.AvatarURL != form.AvatarURL {
		t.Errorf("avatar = %q", p.AvatarURL)
	}
	if p.Content != "hello   world" {
		t.Errorf("content = %q, internal whitespace must survive", p.Content)
	}
	if p.Mentions != DefaultMentions {
		t.Errorf("mentions = %+v, want deny-all default", p.Mentions)
	}
}

func TestBuildMessage_NoAvatar(t *testing.T) {
	p := BuildMessage(&store.Form{Name: "n"}, "hi", nil)
	if p.AvatarURL != "" {
		t.Errorf("avatar = %q, want empty", p.AvatarURL)
	}
}

func TestBuildMessage_Truncates(t *testing.T) {
	p := BuildMessage(&store.Form{Name: "n"}, strings.Repeat("a", 4096), nil)
	if n := utf8.RuneCountInString(p.Content); n != messageCharLimit {
		t.Errorf("content length = %d, want %d", n, messageCharLimit)
	}
}

func TestBuildMessage_AttachmentsPassThrough(t *testing.T) {
	atts := []Attachment{{Name: "cat.png", URL: "https://cdn.example/cat.png", ContentType: "image/png"}}
	p := BuildMessage(&store.Form{Name: "n"}, "hi", atts)
	if len(p.Attachments) != 1 || p.Attachments[0] != atts[0] {
		t.Errorf("attachments = %+v, want unchanged pass-through", p.Attachments)
	}
}

func TestApplyReplyStyle(t *testing.T) {
	p := BuildMessage(&store.Form{Name: "n"}, "body", nil)
	ApplyReplyStyle(&p, ReplyStyle{HeaderLine: "-# header", Mentions: ReplyMentions})

	if p.Content != "-# header\nbody" {
		t.Errorf("content = %q", p.Content)
	}
	if p.Mentions != ReplyMentions {
		t.Errorf("mentions = %+v, want reply policy", p.Mentions)
	}
}
