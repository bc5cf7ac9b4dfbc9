package discord

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// permissionAPI is the slice of discordgo.Session the guard needs.
type permissionAPI interface {
	UserChannelPermissions(userID, channelID string, fetchOptions ...discordgo.RequestOption) (int64, error)
}

// PermissionGuard answers channel ACL questions for acting users. A
// failed permission fetch denies rather than errors: an unknown member
// must not be allowed to proxy.
type PermissionGuard struct {
	api permissionAPI
}

func NewPermissionGuard(api permissionAPI) *PermissionGuard {
	return &PermissionGuard{api: api}
}

// CanProxy reports whether the user may have a message proxied into the
// channel: view + send, plus attach-files when attachments are present.
func (g *PermissionGuard) CanProxy(_ context.Context, userID, channelID string, hasAttachments bool) (bool, error) {
	perms, err := g.api.UserChannelPermissions(userID, channelID)
	if err != nil {
		slog.Debug("permission fetch failed, denying proxy",
			"user_id", userID, "channel_id", channelID, "error", err)
		return false, nil
	}

	if perms&discordgo.PermissionViewChannel == 0 {
		return false, nil
	}
	if perms&discordgo.PermissionSendMessages == 0 {
		return false, nil
	}
	if hasAttachments && perms&discordgo.PermissionAttachFiles == 0 {
		return false, nil
	}
	return true, nil
}

// CanManageMessages reports whether the user holds Manage Messages in the
// channel (moderator affordances: audit lookup, foreign delete).
func (g *PermissionGuard) CanManageMessages(userID, channelID string) bool {
	perms, err := g.api.UserChannelPermissions(userID, channelID)
	if err != nil {
		return false
	}
	return perms&discordgo.PermissionManageMessages != 0
}
