package reactionrole

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alfredjeanlab/guildkeeper/internal/events"
	"github.com/alfredjeanlab/guildkeeper/internal/idgen"
	"github.com/alfredjeanlab/guildkeeper/internal/metrics"
	"github.com/alfredjeanlab/guildkeeper/internal/model"
	"github.com/alfredjeanlab/guildkeeper/internal/store"
)

// Engine turns reaction events into role grants and revokes. It keeps no
// state of its own: every event is resolved against the store and applied
// once, without retries.
type Engine struct {
	store     BindingStore
	members   MemberLookup
	roles     RoleMutator
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewEngine creates an Engine. publisher and m may be nil.
func NewEngine(s BindingStore, members MemberLookup, roles RoleMutator, publisher events.Publisher, m *metrics.Metrics, logger *slog.Logger) *Engine {
	if publisher == nil {
		publisher = &events.NoopPublisher{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{store: s, members: members, roles: roles, publisher: publisher, metrics: m, logger: logger}
}

// Handle applies one reaction event. It returns model.ErrNoTenant or
// model.ErrNoBinding when there is nothing to do; callers should treat
// those as normal outcomes.
func (e *Engine) Handle(ctx context.Context, ev model.ReactionEvent) error {
	id := idgen.Correlation(idgen.ReactionPrefix)
	log := e.logger.With(
		"event_id", id,
		"kind", string(ev.Kind),
		"tenant", ev.TenantID,
		"message", ev.MessageID,
		"emoji", ev.Emoji.String(),
		"user", ev.UserID,
	)

	if !ev.HasTenant || ev.TenantID == 0 {
		log.Debug("reaction outside a guild")
		e.metrics.ReactionEvent(string(ev.Kind), "no_tenant")
		return model.ErrNoTenant
	}
	if ev.Kind != model.ReactionAdded && ev.Kind != model.ReactionRemoved {
		e.metrics.ReactionEvent(string(ev.Kind), "bad_kind")
		return fmt.Errorf("unknown reaction kind %q", ev.Kind)
	}

	b, err := e.store.FindBinding(ctx, ev.TenantID, ev.MessageID, ev.Emoji)
	switch {
	case errors.Is(err, store.ErrNotFound):
		log.Debug("no binding for reaction")
		e.metrics.ReactionEvent(string(ev.Kind), "no_binding")
		return model.ErrNoBinding
	case err != nil:
		log.Error("looking up reaction binding", "err", err)
		e.metrics.ReactionEvent(string(ev.Kind), "store_error")
		if !model.IsTransient(err) {
			err = fmt.Errorf("%w: %w", model.ErrStore, err)
		}
		return fmt.Errorf("find binding: %w", err)
	}
	log = log.With("role", b.RoleID)

	// The lookup confirms the user is still a member; role calls use the
	// gateway's user id, which is set even when the member payload has no user.
	if _, err := e.members.LookupMember(ctx, ev.TenantID, ev.UserID); err != nil {
		log.Error("resolving member", "err", err)
		e.metrics.ReactionEvent(string(ev.Kind), "member_error")
		return fmt.Errorf("%w: %w", model.ErrMemberResolution, err)
	}

	var (
		topic   string
		outcome string
	)
	if ev.Kind == model.ReactionAdded {
		err = e.roles.GrantRole(ctx, ev.TenantID, ev.UserID, b.RoleID)
		topic, outcome = events.TopicRoleGranted, "granted"
	} else {
		err = e.roles.RevokeRole(ctx, ev.TenantID, ev.UserID, b.RoleID)
		topic, outcome = events.TopicRoleRevoked, "revoked"
	}
	if err != nil {
		log.Error("updating member roles", "err", err)
		e.metrics.ReactionEvent(string(ev.Kind), "role_error")
		return fmt.Errorf("%w: %w", model.ErrRoleMutation, err)
	}

	log.Info("member role " + outcome)
	e.metrics.ReactionEvent(string(ev.Kind), outcome)

	pub := events.RoleChanged{
		EventID:   id,
		TenantID:  ev.TenantID,
		UserID:    ev.UserID,
		RoleID:    b.RoleID,
		MessageID: ev.MessageID,
		Emoji:     ev.Emoji.String(),
	}
	if err := e.publisher.Publish(ctx, topic, pub); err != nil {
		log.Warn("publishing role event", "err", err)
	}
	return nil
}
