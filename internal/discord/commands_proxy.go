package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/nextlevelbuilder/formrelay/internal/proxy"
	"github.com/nextlevelbuilder/formrelay/internal/store"
)

func (b *Bot) handleProxyCommand(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	user := interactionUser(i)
	if user == nil {
		return
	}
	sub := data.Options[0]
	if sub.Name != "send" {
		return
	}
	if i.GuildID == "" {
		respondText(s, i, "Proxying only works in server channels.")
		return
	}
	if !b.allowProxy(user.ID) {
		respondText(s, i, "You are sending too quickly. Wait a moment and try again.")
		return
	}

	opts := optionMap(sub.Options)
	formID := stringOption(opts, "form")
	text := stringOption(opts, "text")
	attachments := resolvedAttachments(data, opts)

	if text == "" && len(attachments) == 0 {
		respondText(s, i, "Nothing to send. Provide text or an attachment.")
		return
	}

	res, err := b.coord.Proxy(ctx, proxy.Request{
		UserID:      user.ID,
		FormID:      formID,
		GuildID:     i.GuildID,
		ChannelID:   i.ChannelID,
		Body:        text,
		Attachments: attachments,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			respondText(s, i, "No such form. Pick one from the autocomplete list.")
		case errors.Is(err, proxy.ErrPermissionDenied):
			respondText(s, i, "You cannot send messages in this channel.")
		case errors.Is(err, proxy.ErrInvalidChannel):
			respondText(s, i, "This channel cannot receive proxied messages.")
		default:
			slog.Error("manual proxy failed",
				"user_id", user.ID, "form_id", formID, "channel_id", i.ChannelID, "error", err)
			respondText(s, i, "Could not send the message. Try again later.")
		}
		return
	}

	link := fmt.Sprintf("https://discord.com/channels/%s/%s/%s", i.GuildID, i.ChannelID, res.MessageID)
	respondText(s, i, "Sent: "+link)
}

func (b *Bot) handleProxyAutocomplete(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	user := interactionUser(i)
	if user == nil {
		return
	}
	sub := data.Options[0]
	if focused := focusedOption(sub.Options); focused != nil && focused.Name == "form" {
		respondChoices(s, i, b.formChoices(ctx, user.ID, focused.StringValue()))
		return
	}
	respondChoices(s, i, nil)
}

// resolvedAttachments maps the attachment options through the
// interaction's resolved data.
func resolvedAttachments(data discordgo.ApplicationCommandInteractionData, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) []proxy.Attachment {
	if data.Resolved == nil || len(data.Resolved.Attachments) == 0 {
		return nil
	}
	var out []proxy.Attachment
	for _, name := range []string{"attachment", "attachment2", "attachment3"} {
		o, ok := opts[name]
		if !ok {
			continue
		}
		id, ok := o.Value.(string)
		if !ok {
			continue
		}
		att, ok := data.Resolved.Attachments[id]
		if !ok || att == nil {
			continue
		}
		out = append(out, proxy.Attachment{
			Name:        att.Filename,
			URL:         att.URL,
			ContentType: att.ContentType,
		})
	}
	return out
}
