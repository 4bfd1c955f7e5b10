// Package discord connects the bot to the Discord gateway and REST API.
// Client implements the platform interfaces used by the command router and
// the reaction-role engine.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/alfredjeanlab/guildkeeper/internal/command"
	"github.com/alfredjeanlab/guildkeeper/internal/model"
	"github.com/alfredjeanlab/guildkeeper/internal/reactionrole"
)

// Intents requested when connecting to the gateway.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildMessageReactions |
	discordgo.IntentsDirectMessages |
	discordgo.IntentMessageContent

// Client wraps a discordgo session.
type Client struct {
	session *discordgo.Session
	logger  *slog.Logger
}

var (
	_ command.Platform            = (*Client)(nil)
	_ reactionrole.MemberLookup   = (*Client)(nil)
	_ reactionrole.RoleMutator    = (*Client)(nil)
	_ reactionrole.ReactionSeeder = (*Client)(nil)
)

// New creates a client for the bot token. The gateway is not opened until
// Open is called.
func New(token string, logger *slog.Logger) (*Client, error) {
	if token == "" {
		return nil, errors.New("discord token is required")
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	s.Identify.Intents = Intents
	s.StateEnabled = true
	return &Client{session: s, logger: logger}, nil
}

// Open connects to the gateway.
func (c *Client) Open() error {
	if err := c.session.Open(); err != nil {
		return fmt.Errorf("opening discord gateway: %w", err)
	}
	c.logger.Info("connected to discord", "user", c.session.State.User.Username, "id", c.session.State.User.ID)
	return nil
}

// Close disconnects from the gateway.
func (c *Client) Close() error {
	return c.session.Close()
}

// BotUserID returns the bot's own user id, or 0 before the gateway is ready.
func (c *Client) BotUserID() uint64 {
	if c.session.State == nil || c.session.State.User == nil {
		return 0
	}
	id, _ := parseID(c.session.State.User.ID)
	return id
}

func (c *Client) Reply(ctx context.Context, channelID uint64, content string) error {
	_, err := c.session.ChannelMessageSend(formatID(channelID), content, discordgo.WithContext(ctx))
	return err
}

func (c *Client) MemberPermissions(ctx context.Context, _, channelID, userID uint64) (command.Permission, error) {
	p, err := c.session.UserChannelPermissions(formatID(userID), formatID(channelID), discordgo.WithContext(ctx))
	if err != nil {
		return 0, fmt.Errorf("permissions for user %d: %w", userID, err)
	}
	return permissionsFromDiscord(p), nil
}

func (c *Client) GuildName(ctx context.Context, tenantID uint64) (string, error) {
	if g, err := c.session.State.Guild(formatID(tenantID)); err == nil {
		return g.Name, nil
	}
	g, err := c.session.Guild(formatID(tenantID), discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return g.Name, nil
}

func (c *Client) GuildRole(ctx context.Context, tenantID, roleID uint64) (*command.Role, error) {
	if r, err := c.session.State.Role(formatID(tenantID), formatID(roleID)); err == nil {
		return &command.Role{ID: roleID, Name: r.Name}, nil
	}
	roles, err := c.session.GuildRoles(formatID(tenantID), discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	want := formatID(roleID)
	for _, r := range roles {
		if r.ID == want {
			return &command.Role{ID: roleID, Name: r.Name}, nil
		}
	}
	return nil, fmt.Errorf("role %d: %w", roleID, command.ErrUnknownRole)
}

func (c *Client) LookupMember(ctx context.Context, tenantID, userID uint64) (*model.Member, error) {
	m, err := c.session.GuildMember(formatID(tenantID), formatID(userID), discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return memberFromDiscord(tenantID, m)
}

func (c *Client) GrantRole(ctx context.Context, tenantID, userID, roleID uint64) error {
	return c.session.GuildMemberRoleAdd(formatID(tenantID), formatID(userID), formatID(roleID), discordgo.WithContext(ctx))
}

func (c *Client) RevokeRole(ctx context.Context, tenantID, userID, roleID uint64) error {
	return c.session.GuildMemberRoleRemove(formatID(tenantID), formatID(userID), formatID(roleID), discordgo.WithContext(ctx))
}

func (c *Client) AddMessageReaction(ctx context.Context, channelID, messageID uint64, emoji model.EmojiKey) error {
	return c.session.MessageReactionAdd(formatID(channelID), formatID(messageID), emoji.APIName(), discordgo.WithContext(ctx))
}
