// Package prefix implements the per-tenant command prefix cache: a
// read-through, write-through map in front of the tenant_config table.
//
// Concurrency: a single mutex guards the map, and a per-tenant lock
// serializes every store access for that tenant. The tenant lock is held
// across the store read on a miss and across the store write on a set, so
// a slow read-through can never clobber a value committed after it began.
// Different tenants never wait on each other.
package prefix

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alfredjeanlab/guildkeeper/internal/metrics"
	"github.com/alfredjeanlab/guildkeeper/internal/model"
	"github.com/alfredjeanlab/guildkeeper/internal/store"
)

// Source reports where a prefix came from.
type Source int

const (
	SourceCache Source = iota
	SourceStore
	SourceDefault
)

func (s Source) String() string {
	switch s {
	case SourceCache:
		return "cache"
	case SourceStore:
		return "store"
	case SourceDefault:
		return "default"
	default:
		return "unknown"
	}
}

// Store is the subset of store.Store the cache needs.
type Store interface {
	GetTenantConfig(ctx context.Context, tenantID uint64) (*model.TenantConfig, error)
	UpsertTenantConfig(ctx context.Context, cfg *model.TenantConfig) error
}

// Config tunes a Cache.
type Config struct {
	// Default is returned for tenants without a stored prefix.
	Default string

	// LockTimeout bounds the wait for a tenant lock when the caller's
	// context carries no deadline. Zero means wait for ctx only.
	LockTimeout time.Duration

	Metrics *metrics.Metrics
}

// Cache is safe for concurrent use.
type Cache struct {
	store       Store
	logger      *slog.Logger
	metrics     *metrics.Metrics
	def         string
	lockTimeout time.Duration

	mu      sync.Mutex
	entries map[uint64]string
	locks   *keyLocks
}

// New creates an empty cache over s.
func New(s Store, cfg Config, logger *slog.Logger) *Cache {
	if cfg.Default == "" {
		cfg.Default = model.DefaultPrefix
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Cache{
		store:       s,
		logger:      logger,
		metrics:     cfg.Metrics,
		def:         cfg.Default,
		lockTimeout: cfg.LockTimeout,
		entries:     make(map[uint64]string),
		locks:       newKeyLocks(),
	}
}

// Default returns the prefix used for tenants with no stored value.
func (c *Cache) Default() string {
	return c.def
}

// Get returns the tenant's prefix. A cache hit never touches the store. On
// a miss the stored value is loaded and cached; if there is none the
// default is returned and nothing is cached. Store failures are returned
// as errors, never masked by the default.
func (c *Cache) Get(ctx context.Context, tenantID uint64) (string, Source, error) {
	if p, ok := c.lookup(tenantID); ok {
		c.metrics.PrefixLookup(SourceCache.String())
		return p, SourceCache, nil
	}

	unlock, err := c.lock(ctx, tenantID)
	if err != nil {
		c.metrics.PrefixError("get")
		return "", 0, err
	}
	defer unlock()

	// Someone may have filled the entry while we waited.
	if p, ok := c.lookup(tenantID); ok {
		c.metrics.PrefixLookup(SourceCache.String())
		return p, SourceCache, nil
	}

	cfg, err := c.store.GetTenantConfig(ctx, tenantID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.metrics.PrefixLookup(SourceDefault.String())
		return c.def, SourceDefault, nil
	case err != nil:
		c.metrics.PrefixError("get")
		return "", 0, storeError("get prefix", tenantID, err)
	}

	c.put(tenantID, cfg.Prefix)
	c.metrics.PrefixLookup(SourceStore.String())
	return cfg.Prefix, SourceStore, nil
}

// Set validates and persists newPrefix, then updates the cache. If the
// store write fails the cache is left as it was.
func (c *Cache) Set(ctx context.Context, tenantID uint64, displayName, newPrefix string) error {
	if err := model.ValidatePrefix(newPrefix); err != nil {
		return err
	}

	unlock, err := c.lock(ctx, tenantID)
	if err != nil {
		c.metrics.PrefixError("set")
		return err
	}
	defer unlock()

	cfg := &model.TenantConfig{
		TenantID:    tenantID,
		DisplayName: displayName,
		Prefix:      newPrefix,
	}
	if err := c.store.UpsertTenantConfig(ctx, cfg); err != nil {
		c.metrics.PrefixError("set")
		return storeError("set prefix", tenantID, err)
	}

	c.put(tenantID, newPrefix)
	c.metrics.PrefixChanged()
	c.logger.Info("prefix changed", "tenant", tenantID, "prefix", newPrefix)
	return nil
}

// GetOrSet reads the prefix when newPrefix is nil and sets it otherwise,
// returning the effective prefix.
func (c *Cache) GetOrSet(ctx context.Context, tenantID uint64, displayName string, newPrefix *string) (string, error) {
	if newPrefix == nil {
		p, _, err := c.Get(ctx, tenantID)
		return p, err
	}
	if err := c.Set(ctx, tenantID, displayName, *newPrefix); err != nil {
		return "", err
	}
	return *newPrefix, nil
}

// Invalidate drops the cached prefix so the next Get reads the store. It
// takes the tenant lock, so a read-through already in flight cannot put
// back the value it loaded before the drop.
func (c *Cache) Invalidate(ctx context.Context, tenantID uint64) error {
	unlock, err := c.lock(ctx, tenantID)
	if err != nil {
		c.metrics.PrefixError("invalidate")
		return err
	}
	defer unlock()

	c.mu.Lock()
	delete(c.entries, tenantID)
	c.mu.Unlock()
	return nil
}

func (c *Cache) lookup(tenantID uint64) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.entries[tenantID]
	return p, ok
}

func (c *Cache) put(tenantID uint64, p string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[tenantID] = p
}

func (c *Cache) lock(ctx context.Context, tenantID uint64) (func(), error) {
	if _, ok := ctx.Deadline(); !ok && c.lockTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.lockTimeout)
		defer cancel()
	}
	return c.locks.lock(ctx, tenantID)
}

// storeError makes sure err carries one of the transient sentinels so
// callers can tell a store outage from bad input.
func storeError(op string, tenantID uint64, err error) error {
	if model.IsTransient(err) {
		return fmt.Errorf("%s for tenant %d: %w", op, tenantID, err)
	}
	return fmt.Errorf("%s for tenant %d: %w: %w", op, tenantID, model.ErrStore, err)
}
