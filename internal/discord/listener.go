package discord

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/nextlevelbuilder/formrelay/internal/proxy"
)

// handleMessage watches guild messages for alias triggers and proxies
// matches. Failures are logged, never re-raised: one bad proxy attempt
// must not take the bot down.
func (b *Bot) handleMessage(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.Author.ID == b.botUserID {
		return
	}
	if m.Content == "" {
		return
	}
	// Alias proxying is a guild affordance; ignore DMs.
	if m.GuildID == "" {
		return
	}

	ctx := context.Background()

	aliases, err := b.stores.Aliases.GetByUser(ctx, m.Author.ID)
	if err != nil {
		slog.Error("alias lookup failed",
			"user_id", m.Author.ID, "channel_id", m.ChannelID, "error", err)
		return
	}

	match := proxy.Match(aliases, m.Content)
	if match == nil {
		return
	}

	if !b.allowProxy(m.Author.ID) {
		slog.Debug("proxy attempt rate limited", "user_id", m.Author.ID)
		return
	}

	slog.Debug("alias matched",
		"user_id", m.Author.ID,
		"alias_id", match.Alias.ID,
		"form_id", match.Alias.FormID,
		"channel_id", m.ChannelID,
	)

	req := proxy.Request{
		UserID:      m.Author.ID,
		FormID:      match.Alias.FormID,
		GuildID:     m.GuildID,
		ChannelID:   m.ChannelID,
		Body:        match.RenderedText,
		Attachments: convertAttachments(m.Attachments),
		ReplyTo:     replyRef(m.Message),
	}

	if _, err := b.coord.Proxy(ctx, req); err != nil {
		switch {
		case errors.Is(err, proxy.ErrPermissionDenied):
			// Silent skip: the user gets no feedback on ACL denial.
			slog.Debug("proxy denied by channel permissions",
				"user_id", m.Author.ID, "channel_id", m.ChannelID)
		default:
			slog.Error("proxy dispatch failed",
				"user_id", m.Author.ID,
				"form_id", match.Alias.FormID,
				"channel_id", m.ChannelID,
				"error", err,
			)
		}
		return
	}

	// Replace, don't duplicate: drop the triggering message once the
	// proxied copy is out.
	if err := b.session.ChannelMessageDelete(m.ChannelID, m.ID); err != nil {
		slog.Warn("original message delete failed",
			"channel_id", m.ChannelID, "message_id", m.ID, "error", err)
	}
}

func convertAttachments(atts []*discordgo.MessageAttachment) []proxy.Attachment {
	var out []proxy.Attachment
	for _, a := range atts {
		if a == nil {
			continue
		}
		out = append(out, proxy.Attachment{
			Name:        a.Filename,
			URL:         a.URL,
			ContentType: a.ContentType,
		})
	}
	return out
}

// replyRef extracts the reply target when the triggering message was
// itself a reply in the same channel.
func replyRef(m *discordgo.Message) *proxy.ReplyRef {
	ref := m.MessageReference
	if ref == nil || ref.MessageID == "" {
		return nil
	}
	if ref.ChannelID != "" && ref.ChannelID != m.ChannelID {
		return nil
	}
	return &proxy.ReplyRef{MessageID: ref.MessageID}
}
