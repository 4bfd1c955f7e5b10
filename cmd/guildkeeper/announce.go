package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alfredjeanlab/guildkeeper/internal/events"
	"github.com/alfredjeanlab/guildkeeper/internal/model"
	gksync "github.com/alfredjeanlab/guildkeeper/internal/sync"
)

// announcePrefixes tells a running bot that prefixes changed underneath
// its cache. Without a bus the bot keeps serving the old prefixes until it
// restarts, and the operator is warned.
func announcePrefixes(ctx context.Context, natsURL string, logger *slog.Logger, changes []events.PrefixChanged) error {
	if len(changes) == 0 {
		return nil
	}
	if natsURL == "" {
		logger.Warn("GUILDKEEPER_NATS_URL not set; restart a running bot to pick up the new prefixes", "tenants", len(changes))
		return nil
	}
	pub, err := events.NewNATSPublisher(natsURL)
	if err != nil {
		return fmt.Errorf("connecting to announce prefix changes: %w", err)
	}
	if err := publishPrefixes(ctx, pub, changes); err != nil {
		pub.Close()
		return err
	}
	return pub.Close()
}

func publishPrefixes(ctx context.Context, pub events.Publisher, changes []events.PrefixChanged) error {
	for _, ev := range changes {
		if err := pub.Publish(ctx, events.TopicPrefixChanged, ev); err != nil {
			return fmt.Errorf("announcing prefix for tenant %d: %w", ev.TenantID, err)
		}
	}
	return nil
}

// prefixRecorder remembers every tenant config written through it.
type prefixRecorder struct {
	gksync.Sink
	changes []events.PrefixChanged
}

func (r *prefixRecorder) UpsertTenantConfig(ctx context.Context, cfg *model.TenantConfig) error {
	if err := r.Sink.UpsertTenantConfig(ctx, cfg); err != nil {
		return err
	}
	r.changes = append(r.changes, events.PrefixChanged{TenantID: cfg.TenantID, Prefix: cfg.Prefix})
	return nil
}
