package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/guildkeeper/internal/events"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Stream bot events from the event bus",
	GroupID: "bot",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		natsURL, _ := cmd.Flags().GetString("nats-url")
		topic, _ := cmd.Flags().GetString("topic")
		if natsURL == "" {
			return fmt.Errorf("--nats-url or GUILDKEEPER_NATS_URL is required")
		}

		level := logLevel
		if level == "" {
			level = "info"
		}
		logger, err := newLogger(level)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		sub, err := events.NewNATSSubscriber(natsURL,
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				logger.Warn("nats disconnected", "err", err)
			}),
			nats.ReconnectHandler(func(_ *nats.Conn) {
				logger.Info("nats reconnected")
			}),
		)
		if err != nil {
			return fmt.Errorf("connecting to NATS: %w", err)
		}
		defer sub.Close()

		return streamEvents(ctx, sub, topic)
	},
}

// streamEvents subscribes to topic and prints what arrives.
func streamEvents(ctx context.Context, sub events.Subscriber, topic string) error {
	ch, cancel, err := sub.Subscribe(topic)
	if err != nil {
		return fmt.Errorf("subscribing to events: %w", err)
	}
	defer cancel()
	return watchEvents(ctx, ch)
}

// watchEvents prints envelopes until ctx is done or ch closes. Payloads
// that fail to decode are reported and skipped.
func watchEvents(ctx context.Context, ch <-chan []byte) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case payload, ok := <-ch:
			if !ok {
				return nil
			}
			env, err := events.Decode(payload)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error decoding event: %v\n", err)
				continue
			}
			if jsonOutput {
				fmt.Println(string(payload))
				continue
			}
			printEnvelope(env)
		}
	}
}

func init() {
	watchCmd.Flags().String("nats-url", os.Getenv("GUILDKEEPER_NATS_URL"), "NATS server URL")
	watchCmd.Flags().String("topic", events.TopicAll, "subject to subscribe to")
}
