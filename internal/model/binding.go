package model

import (
	"strconv"
	"time"
)

// EmojiKey identifies the emoji of a binding or reaction. A custom emoji has
// a non-zero ID and is matched on it; a standard emoji has ID == 0 and is
// matched on its literal unicode Name.
type EmojiKey struct {
	ID       uint64 `json:"id,omitempty"`
	Name     string `json:"name,omitempty"`
	Animated bool   `json:"animated,omitempty"`
}

// IsCustom reports whether the key refers to a guild custom emoji.
func (e EmojiKey) IsCustom() bool {
	return e.ID != 0
}

// APIName returns the form the platform expects when adding a reaction:
// "name:id" for custom emoji, the literal for unicode.
func (e EmojiKey) APIName() string {
	if !e.IsCustom() {
		return e.Name
	}
	return e.Name + ":" + strconv.FormatUint(e.ID, 10)
}

// String renders the emoji as chat markup.
func (e EmojiKey) String() string {
	if !e.IsCustom() {
		return e.Name
	}
	if e.Animated {
		return "<a:" + e.APIName() + ">"
	}
	return "<:" + e.APIName() + ">"
}

// ReactionBinding maps a reaction (tenant, message, emoji) to a role.
// RoleID is unique: registering it again re-points the whole tuple.
type ReactionBinding struct {
	RoleID    uint64    `json:"role_id"`
	TenantID  uint64    `json:"tenant_id"`
	MessageID uint64    `json:"message_id"`
	Emoji     EmojiKey  `json:"emoji"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReactionKind distinguishes reaction-add from reaction-remove events.
type ReactionKind string

const (
	ReactionAdded   ReactionKind = "added"
	ReactionRemoved ReactionKind = "removed"
)

// ReactionEvent is an inbound reaction from the gateway. HasTenant is false
// for reactions outside a guild.
type ReactionEvent struct {
	Kind      ReactionKind
	TenantID  uint64
	HasTenant bool
	ChannelID uint64
	MessageID uint64
	UserID    uint64
	Emoji     EmojiKey
}

// Member is a guild member as resolved through the platform.
type Member struct {
	TenantID uint64
	UserID   uint64
	RoleIDs  []uint64
	Bot      bool
}

// HasRole reports whether the member currently holds roleID.
func (m *Member) HasRole(roleID uint64) bool {
	for _, r := range m.RoleIDs {
		if r == roleID {
			return true
		}
	}
	return false
}
