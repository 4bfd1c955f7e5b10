package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/alfredjeanlab/guildkeeper/internal/command"
	"github.com/alfredjeanlab/guildkeeper/internal/discord"
	"github.com/alfredjeanlab/guildkeeper/internal/events"
	"github.com/alfredjeanlab/guildkeeper/internal/metrics"
	"github.com/alfredjeanlab/guildkeeper/internal/prefix"
	"github.com/alfredjeanlab/guildkeeper/internal/reactionrole"
	gksync "github.com/alfredjeanlab/guildkeeper/internal/sync"
	"github.com/alfredjeanlab/guildkeeper/internal/workerpool"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Connect to Discord and run the bot",
	GroupID: "bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.DiscordToken == "" {
			return errors.New("GUILDKEEPER_DISCORD_TOKEN is required")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// Connect to Postgres.
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Error("error closing store", "err", err)
			}
		}()

		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m := metrics.New(reg)

		// Create event publisher.
		var publisher events.Publisher
		if cfg.NATSURL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				return err
			}
			publisher = pub
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		} else {
			publisher = &events.NoopPublisher{Logger: logger}
			logger.Info("events disabled (GUILDKEEPER_NATS_URL not set)")
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Error("error closing publisher", "err", err)
			}
		}()

		pool := workerpool.New(workerpool.Config{
			Name:       "gateway",
			MaxWorkers: cfg.Workers,
			QueueSize:  cfg.QueueSize,
			Logger:     logger,
		})
		m.WatchPool(pool)

		dc, err := discord.New(cfg.DiscordToken, logger)
		if err != nil {
			return err
		}

		// Wire the bot components.
		prefixes := prefix.New(store, prefix.Config{
			Default:     cfg.DefaultPrefix,
			LockTimeout: cfg.PrefixLockTimeout,
			Metrics:     m,
		}, logger)
		registry := reactionrole.NewRegistry(store, dc, publisher, m, logger)
		engine := reactionrole.NewEngine(store, dc, dc, publisher, m, logger)
		router := command.NewRouter(prefixes, registry, dc, publisher, m, logger)
		dc.Register(router, engine, discord.Dispatch{
			Pool:        pool,
			SubmitWait:  cfg.SubmitWait,
			TaskTimeout: cfg.TaskTimeout,
		})

		// Start the backup scheduler if a destination is configured.
		var scheduler *gksync.Scheduler
		if cfg.SyncInterval > 0 && cfg.SyncS3Bucket != "" {
			dest, err := gksync.NewS3Destination(ctx, cfg.SyncS3Bucket, cfg.SyncS3Key, cfg.SyncS3Region, cfg.SyncS3Endpoint)
			if err != nil {
				logger.Error("failed to create S3 backup destination", "err", err)
			} else {
				scheduler = gksync.NewScheduler(store, []gksync.Destination{dest}, cfg.SyncInterval, m, logger)
				scheduler.Start(ctx)
				logger.Info("backup scheduler started", "destination", dest.Name(), "interval", cfg.SyncInterval)
			}
		}

		// Prefix writes from the admin CLI arrive on the bus.
		var follower *events.NATSSubscriber
		if cfg.NATSURL != "" {
			follower, err = events.NewNATSSubscriber(cfg.NATSURL)
			if err != nil {
				return err
			}
			defer follower.Close()
		}

		httpServer := metrics.NewServer(cfg.HTTPAddr, reg, store.Ping, logger)

		if err := dc.Open(); err != nil {
			return err
		}
		logger.Info("guildkeeper started", "http_addr", cfg.HTTPAddr, "default_prefix", prefixes.Default())

		g, gctx := errgroup.WithContext(ctx)
		g.Go(httpServer.ListenAndServe)
		if follower != nil {
			g.Go(func() error { return prefixes.Follow(gctx, follower) })
		}
		g.Go(func() error {
			<-gctx.Done()
			logger.Info("shutting down")

			// Stop intake first so no new tasks reach the pool.
			if err := dc.Close(); err != nil {
				logger.Error("error closing discord session", "err", err)
			}
			if err := pool.Stop(shutdownTimeout); err != nil {
				logger.Error("worker pool stop", "err", err)
			}
			if scheduler != nil {
				scheduler.Stop()
				logger.Info("backup scheduler stopped")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		})

		if err := g.Wait(); err != nil {
			return err
		}
		logger.Info("shutdown complete")
		return nil
	},
}
