package discord

import (
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"

	"github.com/alfredjeanlab/guildkeeper/internal/command"
	"github.com/alfredjeanlab/guildkeeper/internal/model"
)

// formatID renders a snowflake the way the REST API expects it.
func formatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

// parseID parses a snowflake. The empty string is the zero id.
func parseID(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid snowflake %q: %w", s, err)
	}
	return id, nil
}

func emojiKey(e discordgo.Emoji) (model.EmojiKey, error) {
	id, err := parseID(e.ID)
	if err != nil {
		return model.EmojiKey{}, err
	}
	return model.EmojiKey{ID: id, Name: e.Name, Animated: e.Animated}, nil
}

func messageFromEvent(m *discordgo.Message) (command.Message, error) {
	var (
		msg command.Message
		err error
	)
	if msg.ID, err = parseID(m.ID); err != nil {
		return msg, err
	}
	if msg.ChannelID, err = parseID(m.ChannelID); err != nil {
		return msg, err
	}
	if msg.TenantID, err = parseID(m.GuildID); err != nil {
		return msg, err
	}
	msg.HasTenant = msg.TenantID != 0
	if m.Author != nil {
		if msg.AuthorID, err = parseID(m.Author.ID); err != nil {
			return msg, err
		}
		msg.AuthorBot = m.Author.Bot
	}
	msg.Content = m.Content
	return msg, nil
}

func reactionFromEvent(kind model.ReactionKind, r *discordgo.MessageReaction) (model.ReactionEvent, error) {
	ev := model.ReactionEvent{Kind: kind}
	var err error
	if ev.TenantID, err = parseID(r.GuildID); err != nil {
		return ev, err
	}
	ev.HasTenant = ev.TenantID != 0
	if ev.ChannelID, err = parseID(r.ChannelID); err != nil {
		return ev, err
	}
	if ev.MessageID, err = parseID(r.MessageID); err != nil {
		return ev, err
	}
	if ev.UserID, err = parseID(r.UserID); err != nil {
		return ev, err
	}
	if ev.Emoji, err = emojiKey(r.Emoji); err != nil {
		return ev, err
	}
	return ev, nil
}

func memberFromDiscord(tenantID uint64, m *discordgo.Member) (*model.Member, error) {
	out := &model.Member{TenantID: tenantID}
	if m.User != nil {
		id, err := parseID(m.User.ID)
		if err != nil {
			return nil, err
		}
		out.UserID = id
		out.Bot = m.User.Bot
	}
	for _, r := range m.Roles {
		id, err := parseID(r)
		if err != nil {
			return nil, err
		}
		out.RoleIDs = append(out.RoleIDs, id)
	}
	return out, nil
}

func permissionsFromDiscord(p int64) command.Permission {
	var out command.Permission
	if p&discordgo.PermissionAdministrator != 0 {
		out |= command.PermAdministrator
	}
	if p&discordgo.PermissionManageRoles != 0 {
		out |= command.PermManageRoles
	}
	return out
}
