package proxy

import (
	"strings"
	"unicode/utf8"

	"github.com/nextlevelbuilder/formrelay/internal/store"
)

// Attachment is a platform attachment passed through to the webhook layer
// untouched; re-uploading is the adapter's concern.
type Attachment struct {
	Name        string
	URL         string
	ContentType string
}

// Payload is the outbound webhook message assembled for a form.
type Payload struct {
	Username    string
	AvatarURL   string // empty means the webhook default
	Content     string
	Mentions    MentionPolicy
	Attachments []Attachment
}

// BuildMessage assembles the webhook payload for proxying body as form.
// Content is trimmed and hard-truncated to the platform limit; mentions
// default to the deny-all policy.
func BuildMessage(form *store.Form, body string, attachments []Attachment) Payload {
	content := trimToLimit(body)
	return Payload{
		Username:    form.Name,
		AvatarURL:   form.AvatarURL,
		Content:     content,
		Mentions:    DefaultMentions,
		Attachments: attachments,
	}
}

// ApplyReplyStyle prepends a reply header to the payload and switches to
// the header's scoped mention policy. The body keeps its own truncation;
// the dispatch layer enforces the final ceiling.
func ApplyReplyStyle(p *Payload, style ReplyStyle) {
	p.Content = style.HeaderLine + "\n" + p.Content
	p.Mentions = style.Mentions
}

func trimToLimit(body string) string {
	content := strings.TrimSpace(body)
	if utf8.RuneCountInString(content) > messageCharLimit {
		content = string([]rune(content)[:messageCharLimit])
	}
	return content
}
