package prefix

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alfredjeanlab/guildkeeper/internal/events"
)

// Follow keeps the cache in step with prefix writes made by other
// processes, such as `guildkeeper prefix` and `guildkeeper import`. Every
// PrefixChanged event on the bus drops that tenant's entry. It returns
// when ctx is done or the subscription closes.
func (c *Cache) Follow(ctx context.Context, sub events.Subscriber) error {
	ch, cancel, err := sub.Subscribe(events.TopicPrefixChanged)
	if err != nil {
		return fmt.Errorf("following prefix changes: %w", err)
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case payload, ok := <-ch:
			if !ok {
				return nil
			}
			c.applyChange(ctx, payload)
		}
	}
}

func (c *Cache) applyChange(ctx context.Context, payload []byte) {
	env, err := events.Decode(payload)
	if err != nil {
		c.logger.Warn("ignoring undecodable prefix event", "err", err)
		return
	}
	var ev events.PrefixChanged
	if err := json.Unmarshal(env.Data, &ev); err != nil || ev.TenantID == 0 {
		c.logger.Warn("ignoring malformed prefix event", "data", string(env.Data), "err", err)
		return
	}
	if err := c.Invalidate(ctx, ev.TenantID); err != nil {
		c.logger.Error("dropping cached prefix after external change", "tenant", ev.TenantID, "err", err)
		return
	}
	c.logger.Debug("cached prefix dropped after external change", "tenant", ev.TenantID)
}
