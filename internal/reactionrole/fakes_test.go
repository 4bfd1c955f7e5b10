package reactionrole

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alfredjeanlab/guildkeeper/internal/model"
	"github.com/alfredjeanlab/guildkeeper/internal/store"
)

// memStore keeps bindings keyed by role id, like the unique key in Postgres.
type memStore struct {
	mu        sync.Mutex
	bindings  map[uint64]model.ReactionBinding
	clock     time.Time
	upsertErr error
	findErr   error
	finds     int
}

func newMemStore() *memStore {
	return &memStore{
		bindings: make(map[uint64]model.ReactionBinding),
		clock:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *memStore) UpsertBinding(_ context.Context, b *model.ReactionBinding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.clock = s.clock.Add(time.Second)
	b.UpdatedAt = s.clock
	s.bindings[b.RoleID] = *b
	return nil
}

func (s *memStore) FindBinding(_ context.Context, tenantID, messageID uint64, emoji model.EmojiKey) (*model.ReactionBinding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finds++
	if s.findErr != nil {
		return nil, s.findErr
	}
	var best *model.ReactionBinding
	for _, b := range s.bindings {
		if b.TenantID != tenantID || b.MessageID != messageID {
			continue
		}
		if emoji.IsCustom() && b.Emoji.ID != emoji.ID {
			continue
		}
		if !emoji.IsCustom() && (b.Emoji.IsCustom() || b.Emoji.Name != emoji.Name) {
			continue
		}
		if best == nil || b.UpdatedAt.After(best.UpdatedAt) {
			b := b
			best = &b
		}
	}
	if best == nil {
		return nil, fmt.Errorf("find binding: %w", store.ErrNotFound)
	}
	return best, nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bindings)
}

type roleCall struct {
	Op       string
	TenantID uint64
	UserID   uint64
	RoleID   uint64
}

// fakePlatform records every collaborator call.
type fakePlatform struct {
	mu        sync.Mutex
	calls     []roleCall
	seeded    []model.EmojiKey
	lookupErr error
	roleErr   error
	seedErr   error
	lookups   int

	// userless makes LookupMember return a member without a user id, as
	// the gateway does when the member payload carries no user object.
	userless bool
}

func (p *fakePlatform) LookupMember(_ context.Context, tenantID, userID uint64) (*model.Member, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lookups++
	if p.lookupErr != nil {
		return nil, p.lookupErr
	}
	if p.userless {
		return &model.Member{TenantID: tenantID}, nil
	}
	return &model.Member{TenantID: tenantID, UserID: userID}, nil
}

func (p *fakePlatform) GrantRole(_ context.Context, tenantID, userID, roleID uint64) error {
	return p.record("grant", tenantID, userID, roleID)
}

func (p *fakePlatform) RevokeRole(_ context.Context, tenantID, userID, roleID uint64) error {
	return p.record("revoke", tenantID, userID, roleID)
}

func (p *fakePlatform) record(op string, tenantID, userID, roleID uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.roleErr != nil {
		return p.roleErr
	}
	p.calls = append(p.calls, roleCall{op, tenantID, userID, roleID})
	return nil
}

func (p *fakePlatform) AddMessageReaction(_ context.Context, _, _ uint64, emoji model.EmojiKey) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seedErr != nil {
		return p.seedErr
	}
	p.seeded = append(p.seeded, emoji)
	return nil
}

func (p *fakePlatform) roleCalls() []roleCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]roleCall(nil), p.calls...)
}

type published struct {
	Topic string
	Event any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (r *recordingPublisher) Publish(_ context.Context, topic string, event any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, published{topic, event})
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func (r *recordingPublisher) topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		out = append(out, e.Topic)
	}
	return out
}
