// Package reactionrole maps reactions on messages to role grants and
// revokes, and registers the mappings.
package reactionrole

import (
	"context"

	"github.com/alfredjeanlab/guildkeeper/internal/model"
)

// BindingStore is the subset of store.Store used by the registry and engine.
type BindingStore interface {
	UpsertBinding(ctx context.Context, b *model.ReactionBinding) error
	FindBinding(ctx context.Context, tenantID, messageID uint64, emoji model.EmojiKey) (*model.ReactionBinding, error)
}

// MemberLookup resolves a guild member through the platform.
type MemberLookup interface {
	LookupMember(ctx context.Context, tenantID, userID uint64) (*model.Member, error)
}

// RoleMutator adds and removes roles on guild members.
type RoleMutator interface {
	GrantRole(ctx context.Context, tenantID, userID, roleID uint64) error
	RevokeRole(ctx context.Context, tenantID, userID, roleID uint64) error
}

// ReactionSeeder puts the bot's own reaction on a message so users have
// something to click.
type ReactionSeeder interface {
	AddMessageReaction(ctx context.Context, channelID, messageID uint64, emoji model.EmojiKey) error
}
