package reactionrole

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alfredjeanlab/guildkeeper/internal/events"
	"github.com/alfredjeanlab/guildkeeper/internal/metrics"
	"github.com/alfredjeanlab/guildkeeper/internal/model"
)

// Registration is a request to bind Emoji on a message to RoleID.
type Registration struct {
	TenantID     uint64
	RoleID       uint64
	ChannelID    uint64
	MessageID    uint64
	Emoji        model.EmojiKey
	RegisteredBy uint64
}

// Result describes a committed registration. SeedErr is set when the
// binding was stored but the bot could not add its reaction to the message;
// the binding stays in place either way.
type Result struct {
	Binding *model.ReactionBinding
	SeedErr error
}

// Registry creates reaction bindings.
type Registry struct {
	store     BindingStore
	seeder    ReactionSeeder
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewRegistry creates a Registry. publisher and m may be nil.
func NewRegistry(s BindingStore, seeder ReactionSeeder, publisher events.Publisher, m *metrics.Metrics, logger *slog.Logger) *Registry {
	if publisher == nil {
		publisher = &events.NoopPublisher{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{store: s, seeder: seeder, publisher: publisher, metrics: m, logger: logger}
}

// Register stores the binding, replacing any existing binding for the same
// role, and then seeds the reaction on the message.
func (r *Registry) Register(ctx context.Context, reg Registration) (Result, error) {
	b := &model.ReactionBinding{
		RoleID:    reg.RoleID,
		TenantID:  reg.TenantID,
		MessageID: reg.MessageID,
		Emoji:     reg.Emoji,
	}
	if err := model.ValidateBinding(b); err != nil {
		r.metrics.Registration("invalid")
		return Result{}, err
	}
	if reg.ChannelID == 0 {
		r.metrics.Registration("invalid")
		return Result{}, fmt.Errorf("%w: channel id is required", model.ErrMalformedMessageRef)
	}

	if err := r.store.UpsertBinding(ctx, b); err != nil {
		r.metrics.Registration("store_error")
		r.logger.Error("storing reaction binding",
			"tenant", reg.TenantID, "role", reg.RoleID, "message", reg.MessageID,
			"emoji", reg.Emoji.String(), "err", err)
		if !model.IsTransient(err) {
			err = fmt.Errorf("%w: %w", model.ErrStore, err)
		}
		return Result{}, fmt.Errorf("register binding for role %d: %w", reg.RoleID, err)
	}

	res := Result{Binding: b}
	if err := r.seeder.AddMessageReaction(ctx, reg.ChannelID, reg.MessageID, reg.Emoji); err != nil {
		res.SeedErr = err
		r.logger.Warn("adding reaction to bound message",
			"tenant", reg.TenantID, "channel", reg.ChannelID, "message", reg.MessageID,
			"emoji", reg.Emoji.String(), "err", err)
	}

	r.metrics.Registration("ok")
	r.logger.Info("reaction binding registered",
		"tenant", reg.TenantID, "role", reg.RoleID, "message", reg.MessageID,
		"emoji", reg.Emoji.String(), "seeded", res.SeedErr == nil)

	ev := events.BindingRegistered{
		Binding:      b,
		ChannelID:    reg.ChannelID,
		RegisteredBy: reg.RegisteredBy,
		Seeded:       res.SeedErr == nil,
	}
	if err := r.publisher.Publish(ctx, events.TopicBindingRegistered, ev); err != nil {
		r.logger.Warn("publishing binding event", "role", reg.RoleID, "err", err)
	}
	return res, nil
}
