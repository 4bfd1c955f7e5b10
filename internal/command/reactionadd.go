package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alfredjeanlab/guildkeeper/internal/model"
	"github.com/alfredjeanlab/guildkeeper/internal/reactionrole"
)

func (rt *Router) reactionAddCommand() *Command {
	return &Command{
		Name:      "reaction_add",
		Aliases:   []string{"rr"},
		Usage:     "reaction_add <emoji> <role> <message link>",
		Summary:   "Give a role to members who react to a message with an emoji.",
		Require:   PermAdministrator,
		GuildOnly: true,
		Run:       rt.runReactionAdd,
	}
}

func (rt *Router) runReactionAdd(ctx context.Context, inv *Invocation) (string, error) {
	usage := fmt.Sprintf("Usage: ``%s%s``", inv.Prefix, "reaction_add <emoji> <role> <message link>")
	if len(inv.Args) != 3 {
		return "", usagef(model.ErrMalformedEmoji, "%s", usage)
	}

	emoji, err := model.ParseEmoji(inv.Args[0])
	if err != nil {
		return "", usagef(err, "I couldn't read that emoji. Use a server emoji or a standard emoji.\n%s", usage)
	}
	roleID, err := model.ParseRoleRef(inv.Args[1])
	if err != nil {
		return "", usagef(err, "I couldn't read that role. Use a role id or mention the role.\n%s", usage)
	}
	ref, err := model.ParseMessageLink(inv.Args[2])
	if err != nil {
		return "", usagef(err, "I couldn't read that message link. Copy it from the message's menu.\n%s", usage)
	}
	if ref.TenantID != inv.Msg.TenantID {
		return "", usagef(model.ErrMalformedMessageRef, "That message is not in this server.")
	}

	roleLabel := fmt.Sprintf("<@&%d>", roleID)
	role, err := rt.platform.GuildRole(ctx, inv.Msg.TenantID, roleID)
	switch {
	case errors.Is(err, ErrUnknownRole):
		return "", usagef(model.ErrMalformedRole, "That role doesn't exist in this server.")
	case err != nil:
		inv.Logger.Warn("resolving role name", "role", roleID, "err", err)
	default:
		roleLabel = role.Name
	}

	res, err := rt.registrar.Register(ctx, reactionrole.Registration{
		TenantID:     inv.Msg.TenantID,
		RoleID:       roleID,
		ChannelID:    ref.ChannelID,
		MessageID:    ref.MessageID,
		Emoji:        emoji,
		RegisteredBy: inv.Msg.AuthorID,
	})
	if err != nil {
		if errors.Is(err, model.ErrMalformedEmoji) || errors.Is(err, model.ErrMalformedRole) ||
			errors.Is(err, model.ErrMalformedMessageRef) {
			return "", usagef(err, "%s", usage)
		}
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Successfully added the role `%s`, with the emoji %s, to the message:\n%s", roleLabel, emoji, ref.URL())
	if res.SeedErr != nil {
		fmt.Fprintf(&b, "\nI couldn't react to that message myself. React with %s there so members have something to click.", emoji)
	}
	return b.String(), nil
}
