package discord

import (
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// commandDefinitions returns the full application command set. Bulk
// overwrite keeps Discord's view in sync with this list; commands removed
// here disappear on the next registration run.
func commandDefinitions() []*discordgo.ApplicationCommand {
	formOption := func(desc string) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:         discordgo.ApplicationCommandOptionString,
			Name:         "form",
			Description:  desc,
			Required:     true,
			Autocomplete: true,
		}
	}
	attachmentOption := func(name string) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionAttachment,
			Name:        name,
			Description: "File to send with the message",
		}
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:        cmdForm,
			Description: "Manage your proxy forms and their aliases",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "create",
					Description: "Create a new form",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "name",
							Description: "Display name for the form",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "avatar",
							Description: "Avatar image URL",
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "edit",
					Description: "Change a form's name or avatar",
					Options: []*discordgo.ApplicationCommandOption{
						formOption("Form to edit"),
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "name",
							Description: "New display name",
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "avatar",
							Description: "New avatar URL (empty clears it)",
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "delete",
					Description: "Delete a form and all its aliases",
					Options: []*discordgo.ApplicationCommandOption{
						formOption("Form to delete"),
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "List your forms and their aliases",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommandGroup,
					Name:        "alias",
					Description: "Manage the text triggers attached to a form",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionSubCommand,
							Name:        "add",
							Description: "Attach a trigger to a form",
							Options: []*discordgo.ApplicationCommandOption{
								formOption("Form to attach the trigger to"),
								{
									Type:        discordgo.ApplicationCommandOptionString,
									Name:        "trigger",
									Description: "Trigger containing the word text, e.g. n:text or {text}",
									Required:    true,
								},
							},
						},
						{
							Type:        discordgo.ApplicationCommandOptionSubCommand,
							Name:        "remove",
							Description: "Remove a trigger",
							Options: []*discordgo.ApplicationCommandOption{
								{
									Type:         discordgo.ApplicationCommandOptionString,
									Name:         "trigger",
									Description:  "Trigger to remove",
									Required:     true,
									Autocomplete: true,
								},
							},
						},
						{
							Type:        discordgo.ApplicationCommandOptionSubCommand,
							Name:        "list",
							Description: "List the triggers attached to a form",
							Options: []*discordgo.ApplicationCommandOption{
								formOption("Form to list triggers for"),
							},
						},
					},
				},
			},
		},
		{
			Name:        cmdProxy,
			Description: "Send a message as one of your forms",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "send",
					Description: "Send a message in this channel as a form",
					Options: []*discordgo.ApplicationCommandOption{
						formOption("Form to send as"),
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "text",
							Description: "Message text",
						},
						attachmentOption("attachment"),
						attachmentOption("attachment2"),
						attachmentOption("attachment3"),
					},
				},
			},
		},
		{
			Name: ctxWhoSent,
			Type: discordgo.MessageApplicationCommand,
		},
		{
			Name: ctxDeleteProxy,
			Type: discordgo.MessageApplicationCommand,
		},
	}
}

// registerCommands bulk-overwrites the application commands. A dev guild
// id scopes them to that guild for instant availability; otherwise they
// register globally and roll out on Discord's schedule.
func registerCommands(s *discordgo.Session, appID, guildID string) error {
	defs := commandDefinitions()
	created, err := s.ApplicationCommandBulkOverwrite(appID, guildID, defs)
	if err != nil {
		return fmt.Errorf("register application commands: %w", err)
	}
	scope := "global"
	if guildID != "" {
		scope = "guild " + guildID
	}
	slog.Info("application commands registered", "count", len(created), "scope", scope)
	return nil
}
