package discord

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// Application command names. The context menu labels double as command
// names on the Discord side.
const (
	cmdForm        = "form"
	cmdProxy       = "proxy"
	ctxWhoSent     = "Who sent this?"
	ctxDeleteProxy = "Delete proxied message"
)

// handleInteraction routes slash commands, context menus, and
// autocomplete. Unknown commands are logged and dropped.
func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		switch data.Name {
		case cmdForm:
			b.handleFormCommand(ctx, s, i, data)
		case cmdProxy:
			b.handleProxyCommand(ctx, s, i, data)
		case ctxWhoSent:
			b.handleWhoSent(ctx, s, i, data)
		case ctxDeleteProxy:
			b.handleDeleteProxied(ctx, s, i, data)
		default:
			slog.Warn("unknown application command", "name", data.Name)
		}
	case discordgo.InteractionApplicationCommandAutocomplete:
		data := i.ApplicationCommandData()
		switch data.Name {
		case cmdForm:
			b.handleFormAutocomplete(ctx, s, i, data)
		case cmdProxy:
			b.handleProxyAutocomplete(ctx, s, i, data)
		}
	}
}

// interactionUser resolves the invoking user for both guild and DM
// interactions.
func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

// respondText sends an ephemeral text response. Management commands
// never post publicly on the caller's behalf.
func respondText(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		slog.Error("interaction response failed", "error", err)
	}
}

func respondChoices(s *discordgo.Session, i *discordgo.InteractionCreate, choices []*discordgo.ApplicationCommandOptionChoice) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	})
	if err != nil {
		slog.Error("autocomplete response failed", "error", err)
	}
}

// optionMap flattens a subcommand's options by name.
func optionMap(opts []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, o := range opts {
		m[o.Name] = o
	}
	return m
}

func stringOption(m map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if o, ok := m[name]; ok {
		return o.StringValue()
	}
	return ""
}
