package discord

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/alfredjeanlab/guildkeeper/internal/command"
	"github.com/alfredjeanlab/guildkeeper/internal/model"
	"github.com/alfredjeanlab/guildkeeper/internal/workerpool"
)

// MessageHandler handles chat messages (the command router).
type MessageHandler interface {
	Handle(ctx context.Context, msg command.Message) error
}

// ReactionHandler handles reaction events (the reaction-role engine).
type ReactionHandler interface {
	Handle(ctx context.Context, ev model.ReactionEvent) error
}

// Dispatch controls how gateway events are handed to the worker pool.
type Dispatch struct {
	Pool *workerpool.Pool

	// SubmitWait bounds how long a gateway callback waits for a queue slot
	// before the event is dropped.
	SubmitWait time.Duration

	// TaskTimeout bounds the handling of a single event.
	TaskTimeout time.Duration
}

// Register installs the gateway handlers. Call before Open.
func (c *Client) Register(messages MessageHandler, reactions ReactionHandler, d Dispatch) {
	c.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		c.onMessage(messages, d, m.Message)
	})
	c.session.AddHandler(func(_ *discordgo.Session, r *discordgo.MessageReactionAdd) {
		c.onReaction(reactions, d, model.ReactionAdded, r.MessageReaction)
	})
	c.session.AddHandler(func(_ *discordgo.Session, r *discordgo.MessageReactionRemove) {
		c.onReaction(reactions, d, model.ReactionRemoved, r.MessageReaction)
	})
}

func (c *Client) onMessage(h MessageHandler, d Dispatch, m *discordgo.Message) {
	msg, err := messageFromEvent(m)
	if err != nil {
		c.logger.Warn("dropping malformed message event", "err", err)
		return
	}
	if msg.AuthorBot || msg.AuthorID == c.BotUserID() {
		return
	}
	c.submit(d, "message:"+m.ID, func(ctx context.Context) error {
		return h.Handle(ctx, msg)
	})
}

func (c *Client) onReaction(h ReactionHandler, d Dispatch, kind model.ReactionKind, r *discordgo.MessageReaction) {
	ev, err := reactionFromEvent(kind, r)
	if err != nil {
		c.logger.Warn("dropping malformed reaction event", "err", err)
		return
	}
	// Seeding a bound message makes the bot react itself.
	if ev.UserID == c.BotUserID() {
		return
	}
	c.submit(d, "reaction:"+r.MessageID, func(ctx context.Context) error {
		err := h.Handle(ctx, ev)
		if errors.Is(err, model.ErrNoBinding) || errors.Is(err, model.ErrNoTenant) {
			return nil
		}
		// The engine logs its own failures with full context.
		return err
	})
}

func (c *Client) submit(d Dispatch, id string, fn func(context.Context) error) {
	task := workerpool.Task{ID: id, Fn: fn}
	if d.TaskTimeout > 0 {
		task.Fn = func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, d.TaskTimeout)
			defer cancel()
			return fn(ctx)
		}
	}
	if err := d.Pool.SubmitWithin(d.SubmitWait, task); err != nil {
		c.logger.Warn("dropping gateway event", "task_id", id, "err", err)
	}
}
