package feedback

import (
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/ayusman/mudra/internal/command"
)

// DefaultDisplayTTL is how long a response stays on screen.
const DefaultDisplayTTL = 5 * time.Second

const displayKey = "response"

// Display holds the response currently on screen. Entries expire on their
// own after the TTL.
type Display struct {
	c *cache.Cache
}

// NewDisplay creates a Display. A non-positive ttl uses DefaultDisplayTTL.
func NewDisplay(ttl time.Duration) *Display {
	if ttl <= 0 {
		ttl = DefaultDisplayTTL
	}
	return &Display{c: cache.New(ttl, ttl)}
}

// Show replaces the current response and restarts the clear timer.
func (d *Display) Show(e command.Event) {
	d.c.Set(displayKey, e, cache.DefaultExpiration)
}

// Current returns the response on screen, if any.
func (d *Display) Current() (command.Event, bool) {
	v, ok := d.c.Get(displayKey)
	if !ok {
		return command.Event{}, false
	}
	return v.(command.Event), true
}

// Clear removes the response immediately.
func (d *Display) Clear() {
	d.c.Delete(displayKey)
}
