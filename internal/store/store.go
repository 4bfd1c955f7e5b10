package store

import (
	"context"
	"errors"

	"github.com/alfredjeanlab/guildkeeper/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the persistence interface for tenant settings and reaction bindings.
// Implementations return ErrNotFound for absent rows and errors wrapping
// model.ErrLockUnavailable or model.ErrStore for access failures.
type Store interface {
	// Tenant configuration
	GetTenantConfig(ctx context.Context, tenantID uint64) (*model.TenantConfig, error)
	UpsertTenantConfig(ctx context.Context, cfg *model.TenantConfig) error
	ListTenantConfigs(ctx context.Context) ([]*model.TenantConfig, error)

	// Reaction bindings
	UpsertBinding(ctx context.Context, b *model.ReactionBinding) error
	FindBinding(ctx context.Context, tenantID, messageID uint64, emoji model.EmojiKey) (*model.ReactionBinding, error)
	ListBindings(ctx context.Context, tenantID uint64) ([]*model.ReactionBinding, error) // tenantID 0 lists all

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}
