package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alfredjeanlab/guildkeeper/internal/events"
	"github.com/alfredjeanlab/guildkeeper/internal/model"
)

func (rt *Router) prefixCommand() *Command {
	return &Command{
		Name:      "prefix",
		Aliases:   []string{"pre"},
		Usage:     "prefix [new prefix]",
		Summary:   "Show or change this server's command prefix.",
		Require:   PermManageRoles,
		GuildOnly: true,
		Run:       rt.runPrefix,
	}
}

func (rt *Router) runPrefix(ctx context.Context, inv *Invocation) (string, error) {
	tenant := inv.Msg.TenantID

	if len(inv.Args) == 0 {
		p, _, err := rt.prefixes.Get(ctx, tenant)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("This server's prefix is ``%s``", p), nil
	}

	newPrefix := strings.Join(inv.Args, " ")
	if err := model.ValidatePrefix(newPrefix); err != nil {
		return "", usagef(err, "That prefix can't be used: it must be 1 to %d characters with no spaces.", model.MaxPrefixLength)
	}

	name, err := rt.platform.GuildName(ctx, tenant)
	if err != nil {
		// The display name is informational; keep going without it.
		inv.Logger.Warn("resolving guild name", "err", err)
	}
	if err := rt.prefixes.Set(ctx, tenant, name, newPrefix); err != nil {
		if errors.Is(err, model.ErrInvalidPrefix) {
			return "", usagef(err, "That prefix can't be used.")
		}
		return "", err
	}

	ev := events.PrefixChanged{TenantID: tenant, Prefix: newPrefix, ChangedBy: inv.Msg.AuthorID}
	if err := rt.publisher.Publish(ctx, events.TopicPrefixChanged, ev); err != nil {
		inv.Logger.Warn("publishing prefix event", "err", err)
	}
	return fmt.Sprintf("Changed the server's prefix to ``%s``", newPrefix), nil
}
