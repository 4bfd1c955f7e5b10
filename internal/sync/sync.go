package sync

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alfredjeanlab/guildkeeper/internal/idgen"
	"github.com/alfredjeanlab/guildkeeper/internal/metrics"
)

// Destination is the interface for a backup target.
type Destination interface {
	// Write sends the JSONL payload to the destination.
	Write(ctx context.Context, data []byte) error
	// Name identifies the destination in logs.
	Name() string
}

// Scheduler runs periodic exports to one or more destinations.
type Scheduler struct {
	source       Source
	destinations []Destination
	interval     time.Duration
	metrics      *metrics.Metrics
	logger       *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler that exports from source to the given
// destinations at the specified interval. m may be nil.
func NewScheduler(source Source, destinations []Destination, interval time.Duration, m *metrics.Metrics, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		source:       source,
		destinations: destinations,
		interval:     interval,
		metrics:      m,
		logger:       logger,
	}
}

// Start begins periodic export. It runs an initial export immediately, then
// on each tick.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop cancels the scheduler and waits for the current export (if any) to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	_ = s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.RunOnce(ctx)
		}
	}
}

// RunOnce exports once and writes to every destination. It returns the
// export error or the first destination error; later destinations are
// still attempted.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()
	log := s.logger.With("export_id", idgen.Correlation(idgen.ExportPrefix))

	var buf bytes.Buffer
	if err := ExportJSONL(ctx, s.source, &buf); err != nil {
		log.Error("export failed", "err", err)
		s.metrics.Export("export_error", time.Since(start).Seconds())
		return err
	}
	data := buf.Bytes()

	var firstErr error
	for _, dest := range s.destinations {
		if err := dest.Write(ctx, data); err != nil {
			log.Error("backup destination write failed", "destination", dest.Name(), "err", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", dest.Name(), err)
			}
		}
	}

	if firstErr != nil {
		s.metrics.Export("write_error", time.Since(start).Seconds())
		return firstErr
	}
	s.metrics.Export("ok", time.Since(start).Seconds())
	log.Info("backup completed", "destinations", len(s.destinations), "bytes", len(data))
	return nil
}
