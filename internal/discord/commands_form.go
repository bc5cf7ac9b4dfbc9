package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/mattn/go-runewidth"

	"github.com/nextlevelbuilder/formrelay/internal/identity"
	"github.com/nextlevelbuilder/formrelay/internal/store"
)

const autocompleteLimit = 25 // Discord caps choices at 25

func (b *Bot) handleFormCommand(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	user := interactionUser(i)
	if user == nil {
		return
	}

	sub := data.Options[0]
	switch sub.Name {
	case "create":
		b.formCreate(ctx, s, i, user.ID, optionMap(sub.Options))
	case "edit":
		b.formEdit(ctx, s, i, user.ID, optionMap(sub.Options))
	case "delete":
		b.formDelete(ctx, s, i, user.ID, optionMap(sub.Options))
	case "list":
		b.formList(ctx, s, i, user.ID)
	case "alias":
		aliasSub := sub.Options[0]
		switch aliasSub.Name {
		case "add":
			b.aliasAdd(ctx, s, i, user.ID, optionMap(aliasSub.Options))
		case "remove":
			b.aliasRemove(ctx, s, i, user.ID, optionMap(aliasSub.Options))
		case "list":
			b.aliasList(ctx, s, i, user.ID, optionMap(aliasSub.Options))
		}
	}
}

func (b *Bot) formCreate(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, userID string, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	name := stringOption(opts, "name")
	avatar := stringOption(opts, "avatar")

	res, err := b.identity.CreateForm(ctx, userID, name, avatar)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidName) {
			respondText(s, i, "Form name cannot be empty.")
			return
		}
		slog.Error("form create failed", "user_id", userID, "error", err)
		respondText(s, i, "Could not create the form. Try again later.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Created form **%s**.", res.Form.Name)
	for _, a := range res.DefaultAliases {
		fmt.Fprintf(&sb, "\nAdded alias `%s`.", a.TriggerRaw)
	}
	for _, sk := range res.Skipped {
		if sk.Reason == "alias already exists" {
			fmt.Fprintf(&sb, "\nSkipped alias `%s`: already in use.", sk.TriggerRaw)
		}
	}
	respondText(s, i, sb.String())
}

func (b *Bot) formEdit(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, userID string, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	formID := stringOption(opts, "form")
	name := stringOption(opts, "name")
	avatar, setAvatar := "", false
	if o, ok := opts["avatar"]; ok {
		avatar, setAvatar = o.StringValue(), true
	}
	if name == "" && !setAvatar {
		respondText(s, i, "Nothing to change. Provide a new name or avatar.")
		return
	}

	form, err := b.identity.EditForm(ctx, userID, formID, name, avatar, setAvatar)
	if err != nil {
		respondText(s, i, formErrorMessage(err, userID, "edit"))
		return
	}
	respondText(s, i, fmt.Sprintf("Updated form **%s**.", form.Name))
}

func (b *Bot) formDelete(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, userID string, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	formID := stringOption(opts, "form")
	if err := b.identity.DeleteForm(ctx, userID, formID); err != nil {
		respondText(s, i, formErrorMessage(err, userID, "delete"))
		return
	}
	respondText(s, i, "Form deleted, along with its aliases.")
}

func (b *Bot) formList(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, userID string) {
	forms, err := b.identity.ListForms(ctx, userID)
	if err != nil {
		slog.Error("form list failed", "user_id", userID, "error", err)
		respondText(s, i, "Could not load your forms. Try again later.")
		return
	}
	if len(forms) == 0 {
		respondText(s, i, "You have no forms yet. Use `/form create` to make one.")
		return
	}

	aliases, err := b.stores.Aliases.GetByUser(ctx, userID)
	if err != nil {
		slog.Error("alias list failed", "user_id", userID, "error", err)
		respondText(s, i, "Could not load your forms. Try again later.")
		return
	}
	byForm := make(map[string][]string)
	for _, a := range aliases {
		byForm[a.FormID] = append(byForm[a.FormID], a.TriggerRaw)
	}

	nameWidth := 0
	for _, f := range forms {
		if w := runewidth.StringWidth(f.Name); w > nameWidth {
			nameWidth = w
		}
	}

	var sb strings.Builder
	sb.WriteString("```\n")
	for _, f := range forms {
		triggers := "(no aliases)"
		if t := byForm[f.ID]; len(t) > 0 {
			triggers = strings.Join(t, ", ")
		}
		fmt.Fprintf(&sb, "%s  %s\n", runewidth.FillRight(f.Name, nameWidth), triggers)
	}
	sb.WriteString("```")
	respondText(s, i, sb.String())
}

func (b *Bot) aliasAdd(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, userID string, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	formID := stringOption(opts, "form")
	trigger := stringOption(opts, "trigger")

	alias, err := b.identity.AddAlias(ctx, userID, formID, trigger)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidTrigger):
			respondText(s, i, "A trigger must contain the word `text`, e.g. `n:text` or `{text}`.")
		case errors.Is(err, store.ErrCollision):
			respondText(s, i, fmt.Sprintf("You already have an alias matching `%s`.", trigger))
		default:
			respondText(s, i, formErrorMessage(err, userID, "add an alias to"))
		}
		return
	}
	respondText(s, i, fmt.Sprintf("Added alias `%s` (%s).", alias.TriggerRaw, alias.Kind))
}

func (b *Bot) aliasRemove(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, userID string, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	aliasID := stringOption(opts, "trigger")
	if err := b.identity.RemoveAlias(ctx, userID, aliasID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondText(s, i, "No such alias. Pick one from the autocomplete list.")
			return
		}
		slog.Error("alias remove failed", "user_id", userID, "error", err)
		respondText(s, i, "Could not remove the alias. Try again later.")
		return
	}
	respondText(s, i, "Alias removed.")
}

func (b *Bot) aliasList(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, userID string, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	formID := stringOption(opts, "form")
	aliases, err := b.identity.ListAliases(ctx, userID, formID)
	if err != nil {
		respondText(s, i, formErrorMessage(err, userID, "list aliases for"))
		return
	}
	if len(aliases) == 0 {
		respondText(s, i, "This form has no aliases. Use `/form alias add` to attach one.")
		return
	}

	var sb strings.Builder
	sb.WriteString("```\n")
	width := 0
	for _, a := range aliases {
		if w := runewidth.StringWidth(a.TriggerRaw); w > width {
			width = w
		}
	}
	for _, a := range aliases {
		fmt.Fprintf(&sb, "%s  %s\n", runewidth.FillRight(a.TriggerRaw, width), a.Kind)
	}
	sb.WriteString("```")
	respondText(s, i, sb.String())
}

// handleFormAutocomplete fills form pickers (choice value is the form ID)
// and, for alias removal, alias pickers (choice value is the alias ID).
func (b *Bot) handleFormAutocomplete(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	user := interactionUser(i)
	if user == nil {
		return
	}

	sub := data.Options[0]
	opts := sub.Options
	if sub.Name == "alias" {
		aliasSub := sub.Options[0]
		opts = aliasSub.Options
		if aliasSub.Name == "remove" {
			if focused := focusedOption(opts); focused != nil && focused.Name == "trigger" {
				respondChoices(s, i, b.aliasChoices(ctx, user.ID, focused.StringValue()))
				return
			}
		}
	}
	if focused := focusedOption(opts); focused != nil && focused.Name == "form" {
		respondChoices(s, i, b.formChoices(ctx, user.ID, focused.StringValue()))
		return
	}
	respondChoices(s, i, nil)
}

func (b *Bot) formChoices(ctx context.Context, userID, partial string) []*discordgo.ApplicationCommandOptionChoice {
	forms, err := b.identity.ListForms(ctx, userID)
	if err != nil {
		slog.Warn("form autocomplete failed", "user_id", userID, "error", err)
		return nil
	}
	partial = strings.ToLower(partial)
	var choices []*discordgo.ApplicationCommandOptionChoice
	for _, f := range forms {
		if partial != "" && !strings.Contains(strings.ToLower(f.Name), partial) {
			continue
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  f.Name,
			Value: f.ID,
		})
		if len(choices) == autocompleteLimit {
			break
		}
	}
	return choices
}

func (b *Bot) aliasChoices(ctx context.Context, userID, partial string) []*discordgo.ApplicationCommandOptionChoice {
	aliases, err := b.stores.Aliases.GetByUser(ctx, userID)
	if err != nil {
		slog.Warn("alias autocomplete failed", "user_id", userID, "error", err)
		return nil
	}
	partial = strings.ToLower(partial)
	var choices []*discordgo.ApplicationCommandOptionChoice
	for _, a := range aliases {
		if partial != "" && !strings.Contains(a.TriggerNorm, partial) {
			continue
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  a.TriggerRaw,
			Value: a.ID,
		})
		if len(choices) == autocompleteLimit {
			break
		}
	}
	return choices
}

func focusedOption(opts []*discordgo.ApplicationCommandInteractionDataOption) *discordgo.ApplicationCommandInteractionDataOption {
	for _, o := range opts {
		if o.Focused {
			return o
		}
	}
	return nil
}

func formErrorMessage(err error, userID, verb string) string {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return "No such form. Pick one from the autocomplete list."
	case errors.Is(err, identity.ErrNotOwner):
		return "That form belongs to someone else."
	default:
		slog.Error("form command failed", "user_id", userID, "verb", verb, "error", err)
		return fmt.Sprintf("Could not %s the form. Try again later.", verb)
	}
}
