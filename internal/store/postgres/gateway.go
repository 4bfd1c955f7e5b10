package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/alfredjeanlab/guildkeeper/internal/model"
	"github.com/alfredjeanlab/guildkeeper/internal/store"
)

// opContext bounds a single store operation by the configured timeout.
func (s *PostgresStore) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

// classify maps a driver error onto the store error taxonomy. A failure
// while the operation context is done, or on a dead connection, means the
// pool could not serve us in time; everything else is a plain store error.
func classify(ctx context.Context, op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	case ctx.Err() != nil,
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, driver.ErrBadConn):
		return fmt.Errorf("%s: %w: %w", op, model.ErrLockUnavailable, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, model.ErrStore, err)
	}
}
