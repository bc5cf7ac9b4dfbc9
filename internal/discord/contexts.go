package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/nextlevelbuilder/formrelay/internal/store"
)

// handleWhoSent reveals the acting user behind a proxied message. Gated
// on Manage Messages so provenance stays a moderation tool, not a way to
// unmask players casually.
func (b *Bot) handleWhoSent(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	user := interactionUser(i)
	if user == nil {
		return
	}
	if !b.guard.CanManageMessages(user.ID, i.ChannelID) {
		respondText(s, i, "You need the Manage Messages permission to use this.")
		return
	}

	rec, ok := b.lookupProxied(ctx, s, i, data.TargetID)
	if !ok {
		return
	}

	line := fmt.Sprintf("Sent by <@%s>", rec.UserID)
	if form, err := b.stores.Forms.GetByID(ctx, rec.FormID); err == nil {
		line += fmt.Sprintf(" as **%s**", form.Name)
	}
	line += fmt.Sprintf(" on <t:%d:f>.", rec.CreatedAt.Unix())
	respondText(s, i, line)
}

// handleDeleteProxied deletes a proxied message. Allowed for the acting
// user who sent it or for anyone with Manage Messages.
func (b *Bot) handleDeleteProxied(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	user := interactionUser(i)
	if user == nil {
		return
	}

	rec, ok := b.lookupProxied(ctx, s, i, data.TargetID)
	if !ok {
		return
	}
	if rec.UserID != user.ID && !b.guard.CanManageMessages(user.ID, i.ChannelID) {
		respondText(s, i, "Only the original sender or a moderator can delete this.")
		return
	}

	if err := b.channel.Delete(ctx, rec.WebhookID, rec.WebhookToken, rec.MessageID); err != nil {
		slog.Error("proxied message delete failed",
			"message_id", rec.MessageID, "webhook_id", rec.WebhookID, "error", err)
		respondText(s, i, "Could not delete the message. Try again later.")
		return
	}
	if err := b.stores.Proxied.DeleteByMessageID(ctx, rec.MessageID); err != nil {
		slog.Warn("proxied record cleanup failed", "message_id", rec.MessageID, "error", err)
	}
	respondText(s, i, "Message deleted.")
}

func (b *Bot) lookupProxied(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, messageID string) (*store.ProxiedMessage, bool) {
	rec, err := b.stores.Proxied.GetByMessageID(ctx, messageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondText(s, i, "That message was not proxied through this bot.")
			return nil, false
		}
		slog.Error("proxied record lookup failed", "message_id", messageID, "error", err)
		respondText(s, i, "Could not look up that message. Try again later.")
		return nil, false
	}
	return rec, true
}
