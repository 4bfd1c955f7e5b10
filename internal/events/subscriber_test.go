package events

import (
	"context"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"github.com/alfredjeanlab/guildkeeper/internal/model"
)

// startTestNATS starts an embedded NATS server and returns its client URL.
func startTestNATS(t *testing.T) string {
	t.Helper()
	opts := &natsserver.Options{Host: "127.0.0.1", Port: -1}
	srv, err := natsserver.NewServer(opts)
	if err != nil {
		t.Fatalf("starting embedded NATS: %v", err)
	}
	srv.Start()
	t.Cleanup(srv.Shutdown)
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("embedded NATS not ready")
	}
	return srv.ClientURL()
}

// newBus returns a connected publisher and subscriber on a fresh server.
func newBus(t *testing.T) (*NATSPublisher, *NATSSubscriber) {
	t.Helper()
	url := startTestNATS(t)
	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	t.Cleanup(func() { pub.Close() })
	sub, err := NewNATSSubscriber(url)
	if err != nil {
		t.Fatalf("creating subscriber: %v", err)
	}
	t.Cleanup(func() { sub.Close() })
	return pub, sub
}

func receive(t *testing.T, ch <-chan []byte) *Envelope {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatal("subscription closed")
		}
		env, err := Decode(msg)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return nil
}

func TestNATS_EventsRoundTrip(t *testing.T) {
	pub, sub := newBus(t)
	ch, cancel, err := sub.Subscribe(TopicAll)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer cancel()

	ctx := context.Background()
	sent := []struct {
		topic string
		event any
	}{
		{TopicPrefixChanged, PrefixChanged{TenantID: 1, Prefix: "!"}},
		{TopicBindingRegistered, BindingRegistered{
			Binding:   &model.ReactionBinding{RoleID: 5, TenantID: 1, MessageID: 9, Emoji: model.EmojiKey{Name: "🎉"}},
			ChannelID: 3,
			Seeded:    true,
		}},
		{TopicRoleGranted, RoleChanged{EventID: "rx-a", TenantID: 1, UserID: 7, RoleID: 5}},
	}
	for _, s := range sent {
		if err := pub.Publish(ctx, s.topic, s.event); err != nil {
			t.Fatalf("publishing %s: %v", s.topic, err)
		}
	}
	if err := pub.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	for _, s := range sent {
		env := receive(t, ch)
		if env.Topic != s.topic {
			t.Errorf("topic = %q, want %q", env.Topic, s.topic)
		}
	}
}

func TestNATS_TopicFilter(t *testing.T) {
	pub, sub := newBus(t)
	ch, cancel, err := sub.Subscribe("guildkeeper.role.*")
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer cancel()

	ctx := context.Background()
	_ = pub.Publish(ctx, TopicPrefixChanged, PrefixChanged{TenantID: 1, Prefix: "?"})
	_ = pub.Publish(ctx, TopicRoleRevoked, RoleChanged{EventID: "rx-b", TenantID: 1})
	pub.Flush()

	env := receive(t, ch)
	if env.Topic != TopicRoleRevoked {
		t.Fatalf("topic = %q, want only role events", env.Topic)
	}
	select {
	case extra := <-ch:
		t.Fatalf("unexpected extra event %s", extra)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestNATSSubscriber_Cancel(t *testing.T) {
	_, sub := newBus(t)
	ch, cancel, err := sub.Subscribe(TopicAll)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}

	cancel()
	cancel() // second call is a no-op

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected channel to be closed after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestNATSSubscriber_CancelDuringMessages(t *testing.T) {
	pub, sub := newBus(t)
	ch, cancel, err := sub.Subscribe(TopicAll)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			_ = pub.Publish(context.Background(), TopicRoleGranted, RoleChanged{EventID: "rx-c"})
		}
		pub.Flush()
	}()

	cancel()
	<-done

	// Drain whatever was in flight; the channel must end up closed.
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after cancel")
		}
	}
}

func TestNATSSubscriber_ExtraOptions(t *testing.T) {
	url := startTestNATS(t)

	sub, err := NewNATSSubscriber(url,
		nats.Name("custom-watch"),
		nats.ReconnectHandler(func(_ *nats.Conn) {}),
	)
	if err != nil {
		t.Fatalf("creating subscriber: %v", err)
	}
	defer sub.Close()

	if !sub.conn.IsConnected() {
		t.Fatal("expected subscriber to be connected")
	}
	if got := sub.conn.Opts.Name; got != "custom-watch" {
		t.Errorf("connection name = %q, want the caller's override", got)
	}
}
