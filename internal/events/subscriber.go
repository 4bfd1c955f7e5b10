package events

// Subscriber receives raw envelopes from the event bus.
type Subscriber interface {
	// Subscribe delivers payloads for topic (wildcards allowed) on the
	// returned channel. The cancel function unsubscribes and closes it.
	Subscribe(topic string) (<-chan []byte, func(), error)
	Close() error
}

var _ Subscriber = (*NATSSubscriber)(nil)
