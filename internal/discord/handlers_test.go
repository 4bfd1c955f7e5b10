package discord

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/alfredjeanlab/guildkeeper/internal/command"
	"github.com/alfredjeanlab/guildkeeper/internal/model"
	"github.com/alfredjeanlab/guildkeeper/internal/workerpool"
)

type recorder struct {
	mu        sync.Mutex
	messages  []command.Message
	reactions []model.ReactionEvent
	done      chan struct{}
}

func newRecorder() *recorder {
	return &recorder{done: make(chan struct{}, 16)}
}

func (r *recorder) Handle(_ context.Context, msg command.Message) error {
	r.mu.Lock()
	r.messages = append(r.messages, msg)
	r.mu.Unlock()
	r.done <- struct{}{}
	return nil
}

type reactionRecorder struct{ *recorder }

func (r reactionRecorder) Handle(_ context.Context, ev model.ReactionEvent) error {
	r.mu.Lock()
	r.reactions = append(r.reactions, ev)
	r.mu.Unlock()
	r.done <- struct{}{}
	return model.ErrNoBinding
}

func newTestClient(t *testing.T) (*Client, Dispatch) {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	c, err := New("test-token", logger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.session.State.User = &discordgo.User{ID: "900"}

	pool := workerpool.New(workerpool.Config{Name: "test", MaxWorkers: 2, QueueSize: 4, Logger: logger})
	t.Cleanup(func() { pool.Stop(time.Second) })
	return c, Dispatch{Pool: pool, SubmitWait: time.Second, TaskTimeout: time.Second}
}

func waitHandled(t *testing.T, r *recorder) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		t.Fatal("event was not handled")
	}
}

func TestNew_RequiresToken(t *testing.T) {
	if _, err := New("", slog.New(slog.DiscardHandler)); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestOnMessage(t *testing.T) {
	c, d := newTestClient(t)
	rec := newRecorder()

	c.onMessage(rec, d, &discordgo.Message{ID: "7", ChannelID: "2", GuildID: "1", Content: "a.help", Author: &discordgo.User{ID: "50"}})
	waitHandled(t, rec)

	// Own and bot messages never reach the router.
	c.onMessage(rec, d, &discordgo.Message{ID: "8", ChannelID: "2", Author: &discordgo.User{ID: "900"}})
	c.onMessage(rec, d, &discordgo.Message{ID: "9", ChannelID: "2", Author: &discordgo.User{ID: "51", Bot: true}})
	time.Sleep(20 * time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.messages) != 1 || rec.messages[0].Content != "a.help" {
		t.Fatalf("messages = %+v", rec.messages)
	}
}

func TestOnReaction_IgnoresOwnReactions(t *testing.T) {
	c, d := newTestClient(t)
	rec := newRecorder()
	h := reactionRecorder{rec}

	c.onReaction(h, d, model.ReactionAdded, &discordgo.MessageReaction{
		UserID: "900", MessageID: "3", ChannelID: "2", GuildID: "1", Emoji: discordgo.Emoji{Name: "💙"},
	})
	c.onReaction(h, d, model.ReactionAdded, &discordgo.MessageReaction{
		UserID: "50", MessageID: "3", ChannelID: "2", GuildID: "1", Emoji: discordgo.Emoji{Name: "💙"},
	})
	waitHandled(t, rec)

	rec.mu.Lock()
	got := append([]model.ReactionEvent(nil), rec.reactions...)
	rec.mu.Unlock()
	if len(got) != 1 || got[0].UserID != 50 {
		t.Fatalf("reactions = %+v", got)
	}

	// ErrNoBinding is a normal outcome and not counted as a failed task.
	deadline := time.Now().Add(time.Second)
	for d.Pool.Stats().CompletedTasks != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s := d.Pool.Stats(); s.CompletedTasks != 1 || s.FailedTasks != 0 {
		t.Fatalf("pool stats = %+v", s)
	}
}
