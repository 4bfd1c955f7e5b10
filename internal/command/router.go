// Package command parses chat messages into bot commands and runs them.
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/alfredjeanlab/guildkeeper/internal/events"
	"github.com/alfredjeanlab/guildkeeper/internal/idgen"
	"github.com/alfredjeanlab/guildkeeper/internal/metrics"
	"github.com/alfredjeanlab/guildkeeper/internal/model"
	"github.com/alfredjeanlab/guildkeeper/internal/prefix"
	"github.com/alfredjeanlab/guildkeeper/internal/reactionrole"
)

// Reply texts shared by several commands.
const (
	replyDatabaseError = "Database error, try again later."
	replyInternalError = "Something went wrong, try again later."
	replyGuildOnly     = "This command only works in a server."
)

// Prefixes is the tenant prefix cache as seen by the router.
type Prefixes interface {
	Get(ctx context.Context, tenantID uint64) (string, prefix.Source, error)
	Set(ctx context.Context, tenantID uint64, displayName, newPrefix string) error
	Default() string
}

// Registrar creates reaction-role bindings.
type Registrar interface {
	Register(ctx context.Context, reg reactionrole.Registration) (reactionrole.Result, error)
}

// Invocation is one parsed command call.
type Invocation struct {
	ID     string
	Msg    Message
	Prefix string
	Name   string
	Args   []string
	Logger *slog.Logger
}

// Command is a named handler. Run returns the reply text.
type Command struct {
	Name      string
	Aliases   []string
	Usage     string
	Summary   string
	Require   Permission
	GuildOnly bool
	Run       func(ctx context.Context, inv *Invocation) (string, error)
}

// usageError is returned by commands for bad input; its text is shown to
// the user as is.
type usageError struct {
	msg string
	err error
}

func (e *usageError) Error() string { return e.msg }
func (e *usageError) Unwrap() error { return e.err }

func usagef(err error, format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...), err: err}
}

// Router resolves prefixes and dispatches commands.
type Router struct {
	prefixes  Prefixes
	registrar Registrar
	platform  Platform
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger

	commands map[string]*Command
	names    []string
}

// NewRouter creates a Router with the built-in commands registered.
func NewRouter(p Prefixes, r Registrar, platform Platform, publisher events.Publisher, m *metrics.Metrics, logger *slog.Logger) *Router {
	if publisher == nil {
		publisher = &events.NoopPublisher{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	rt := &Router{
		prefixes:  p,
		registrar: r,
		platform:  platform,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		commands:  make(map[string]*Command),
	}
	rt.add(rt.prefixCommand())
	rt.add(rt.reactionAddCommand())
	rt.add(rt.helpCommand())
	return rt
}

func (rt *Router) add(c *Command) {
	rt.names = append(rt.names, c.Name)
	sort.Strings(rt.names)
	rt.commands[c.Name] = c
	for _, a := range c.Aliases {
		rt.commands[a] = c
	}
}

// Lookup returns the command registered under name or alias.
func (rt *Router) Lookup(name string) (*Command, bool) {
	c, ok := rt.commands[strings.ToLower(name)]
	return c, ok
}

// Handle processes one message. Messages that are not commands are
// ignored. Errors are reported to the user and logged; the returned error
// is only for platform failures while replying.
func (rt *Router) Handle(ctx context.Context, msg Message) error {
	if msg.AuthorBot {
		return nil
	}

	usedPrefix, body, ok := rt.strip(ctx, msg)
	if !ok {
		return nil
	}
	fields := strings.Fields(body)
	if len(fields) == 0 {
		return nil
	}
	cmd, ok := rt.Lookup(fields[0])
	if !ok {
		return nil
	}

	inv := &Invocation{
		ID:     idgen.Correlation(idgen.CommandPrefix),
		Msg:    msg,
		Prefix: usedPrefix,
		Name:   cmd.Name,
		Args:   fields[1:],
	}
	inv.Logger = rt.logger.With(
		"command_id", inv.ID, "command", cmd.Name,
		"tenant", msg.TenantID, "channel", msg.ChannelID, "user", msg.AuthorID,
	)

	reply, outcome := rt.run(ctx, cmd, inv)
	rt.metrics.Command(cmd.Name, outcome)
	if reply == "" {
		return nil
	}
	if err := rt.platform.Reply(ctx, msg.ChannelID, reply); err != nil {
		inv.Logger.Warn("sending reply", "err", err)
		return fmt.Errorf("reply to %s: %w", cmd.Name, err)
	}
	return nil
}

func (rt *Router) run(ctx context.Context, cmd *Command, inv *Invocation) (string, string) {
	if cmd.GuildOnly && !inv.Msg.HasTenant {
		return replyGuildOnly, "guild_only"
	}
	if cmd.Require != 0 && inv.Msg.HasTenant {
		perms, err := rt.platform.MemberPermissions(ctx, inv.Msg.TenantID, inv.Msg.ChannelID, inv.Msg.AuthorID)
		if err != nil {
			inv.Logger.Error("resolving permissions", "err", err)
			return replyInternalError, "error"
		}
		if !perms.Has(cmd.Require) {
			return fmt.Sprintf("You need the %s permission to use this command.", cmd.Require), "forbidden"
		}
	}

	reply, err := cmd.Run(ctx, inv)
	if err == nil {
		return reply, "ok"
	}

	var ue *usageError
	switch {
	case errors.As(err, &ue):
		return ue.msg, "usage"
	case model.IsTransient(err):
		inv.Logger.Error("command failed", "err", err)
		return replyDatabaseError, "store_error"
	default:
		inv.Logger.Error("command failed", "err", err)
		return replyInternalError, "error"
	}
}

// strip removes the tenant prefix or a bot mention from the message. A
// mention always works, so the bot stays reachable when the prefix cannot
// be loaded.
func (rt *Router) strip(ctx context.Context, msg Message) (string, string, bool) {
	content := strings.TrimSpace(msg.Content)

	if bot := rt.platform.BotUserID(); bot != 0 {
		id := strconv.FormatUint(bot, 10)
		for _, m := range []string{"<@" + id + ">", "<@!" + id + ">"} {
			if rest, ok := strings.CutPrefix(content, m); ok {
				return m + " ", strings.TrimSpace(rest), true
			}
		}
	}

	p := rt.prefixes.Default()
	if msg.HasTenant {
		var err error
		p, _, err = rt.prefixes.Get(ctx, msg.TenantID)
		if err != nil {
			rt.logger.Warn("resolving prefix; only mentions accepted", "tenant", msg.TenantID, "err", err)
			return "", "", false
		}
	}
	rest, ok := strings.CutPrefix(content, p)
	if !ok {
		return "", "", false
	}
	return p, rest, true
}
