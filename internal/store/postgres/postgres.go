// Package postgres implements the store.Store interface backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/alfredjeanlab/guildkeeper/internal/model"
	"github.com/alfredjeanlab/guildkeeper/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Options bounds the connection pool and every individual store operation.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// OpTimeout fails a single query instead of letting it hold a
	// connection indefinitely. Zero disables the per-operation deadline.
	OpTimeout time.Duration
}

// DefaultOptions returns the pool settings used when none are configured.
func DefaultOptions() Options {
	return Options{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		OpTimeout:       5 * time.Second,
	}
}

// PostgresStore implements store.Store backed by a PostgreSQL database.
type PostgresStore struct {
	db        *sql.DB
	opTimeout time.Duration
}

// Compile-time check that PostgresStore implements store.Store.
var _ store.Store = (*PostgresStore)(nil)

// New opens a connection to the PostgreSQL database at the given URL,
// configures the connection pool, and runs any pending migrations.
func New(databaseURL string, opts Options) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	s := &PostgresStore{db: db, opTimeout: opts.OpTimeout}

	if err := s.Ping(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return s, nil
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Ping verifies a connection can be checked out of the pool.
func (s *PostgresStore) Ping(ctx context.Context) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	return classify(ctx, "ping", s.db.PingContext(ctx))
}

func (s *PostgresStore) GetTenantConfig(ctx context.Context, tenantID uint64) (*model.TenantConfig, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	c, err := queryGetTenantConfig(ctx, s.db, tenantID)
	if err != nil {
		return nil, classify(ctx, "get tenant config", err)
	}
	return c, nil
}

func (s *PostgresStore) UpsertTenantConfig(ctx context.Context, cfg *model.TenantConfig) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	return classify(ctx, "upsert tenant config", queryUpsertTenantConfig(ctx, s.db, cfg))
}

func (s *PostgresStore) ListTenantConfigs(ctx context.Context) ([]*model.TenantConfig, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	cfgs, err := queryListTenantConfigs(ctx, s.db)
	if err != nil {
		return nil, classify(ctx, "list tenant configs", err)
	}
	return cfgs, nil
}

func (s *PostgresStore) UpsertBinding(ctx context.Context, b *model.ReactionBinding) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	return classify(ctx, "upsert binding", queryUpsertBinding(ctx, s.db, b))
}

func (s *PostgresStore) FindBinding(ctx context.Context, tenantID, messageID uint64, emoji model.EmojiKey) (*model.ReactionBinding, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	b, err := queryFindBinding(ctx, s.db, tenantID, messageID, emoji)
	if err != nil {
		return nil, classify(ctx, "find binding", err)
	}
	return b, nil
}

func (s *PostgresStore) ListBindings(ctx context.Context, tenantID uint64) ([]*model.ReactionBinding, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	bs, err := queryListBindings(ctx, s.db, tenantID)
	if err != nil {
		return nil, classify(ctx, "list bindings", err)
	}
	return bs, nil
}
