package command

import (
	"context"
	"errors"
)

// ErrUnknownRole is returned by Platform.GuildRole when the role does not
// exist in the guild.
var ErrUnknownRole = errors.New("unknown role")

// Permission is a bit set of guild permissions, using the platform's bit
// values.
type Permission uint64

const (
	PermAdministrator Permission = 1 << 3
	PermManageRoles   Permission = 1 << 28
)

// Has reports whether p grants want. Administrator grants everything.
func (p Permission) Has(want Permission) bool {
	return p&PermAdministrator != 0 || p&want == want
}

func (p Permission) String() string {
	switch p {
	case PermAdministrator:
		return "Administrator"
	case PermManageRoles:
		return "Manage Roles"
	case 0:
		return "none"
	default:
		return "custom"
	}
}

// Message is an inbound chat message.
type Message struct {
	ID        uint64
	TenantID  uint64
	HasTenant bool
	ChannelID uint64
	AuthorID  uint64
	AuthorBot bool
	Content   string
}

// Role is a guild role as reported by the platform.
type Role struct {
	ID   uint64
	Name string
}

// Platform is what the router needs from the chat platform.
type Platform interface {
	// BotUserID is the bot's own user id, used to accept mentions as a prefix.
	BotUserID() uint64
	Reply(ctx context.Context, channelID uint64, content string) error
	MemberPermissions(ctx context.Context, tenantID, channelID, userID uint64) (Permission, error)
	GuildName(ctx context.Context, tenantID uint64) (string, error)
	GuildRole(ctx context.Context, tenantID, roleID uint64) (*Role, error)
}
