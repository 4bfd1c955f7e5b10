// Package events publishes bot activity to the event bus so other services
// (and `guildkeeper watch`) can follow prefix changes and role updates.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/alfredjeanlab/guildkeeper/internal/model"
)

// Event topic constants
const (
	TopicPrefixChanged     = "guildkeeper.prefix.changed"
	TopicBindingRegistered = "guildkeeper.binding.registered"
	TopicRoleGranted       = "guildkeeper.role.granted"
	TopicRoleRevoked       = "guildkeeper.role.revoked"

	// TopicAll matches every topic above.
	TopicAll = "guildkeeper.>"
)

// Envelope is the wire form of every published event.
type Envelope struct {
	Topic string          `json:"topic"`
	At    time.Time       `json:"at"`
	Data  json.RawMessage `json:"data"`
}

// Event types

type PrefixChanged struct {
	TenantID  uint64 `json:"tenant_id"`
	Prefix    string `json:"prefix"`
	ChangedBy uint64 `json:"changed_by,omitempty"`
}

type BindingRegistered struct {
	Binding      *model.ReactionBinding `json:"binding"`
	ChannelID    uint64                 `json:"channel_id"`
	RegisteredBy uint64                 `json:"registered_by,omitempty"`
	Seeded       bool                   `json:"seeded"`
}

// RoleChanged is published on both TopicRoleGranted and TopicRoleRevoked.
type RoleChanged struct {
	EventID   string `json:"event_id"`
	TenantID  uint64 `json:"tenant_id"`
	UserID    uint64 `json:"user_id"`
	RoleID    uint64 `json:"role_id"`
	MessageID uint64 `json:"message_id"`
	Emoji     string `json:"emoji"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// Encode wraps event in an Envelope for topic.
func Encode(topic string, event any) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Topic: topic, At: time.Now().UTC(), Data: data})
}

// Decode parses an Envelope received from the bus.
func Decode(payload []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, err
	}
	return &env, nil
}
