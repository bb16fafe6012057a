package cart

import (
	"sync"

	"github.com/angelmondragon/storefront/pkg/enums"
	"github.com/angelmondragon/storefront/pkg/types"
)

// Notifier receives shopper-facing messages produced by cart mutations.
type Notifier interface {
	Notify(level enums.NotificationLevel, message string)
}

// Collector buffers notifications for one request so they can be returned in
// the response envelope.
type Collector struct {
	mu    sync.Mutex
	items []types.Notification
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Notify(level enums.NotificationLevel, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, types.Notification{Level: level, Message: message})
}

// Drain returns the buffered notifications and resets the collector.
func (c *Collector) Drain() []types.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.items
	c.items = nil
	return out
}

type discard struct{}

func (discard) Notify(enums.NotificationLevel, string) {}

// Discard drops every notification.
var Discard Notifier = discard{}
