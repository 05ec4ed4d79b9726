// Package notify holds the queue of ephemeral alerts shown across all
// views: incoming messages for unfocused contacts, terminal delivery
// updates, connection and device state changes.
package notify

import (
	"sync"
	"time"

	"github.com/sms-terminal/smsterm/internal/bus"
)

// Kind classifies a notification.
type Kind string

const (
	KindNewMessage      Kind = "new-message"
	KindDeliveryUpdate  Kind = "delivery-update"
	KindConnectionState Kind = "connection-state-change"
	KindDeviceStatus    Kind = "device-status"
)

// DefaultTTL matches the on-screen display duration of the original
// notification overlay.
const DefaultTTL = 15 * time.Second

// DefaultMaxLive bounds the number of simultaneously live entries.
const DefaultMaxLive = 6

// Notification is one ephemeral alert.
type Notification struct {
	Kind        Kind
	PhoneNumber string // originating contact, if any
	MessageID   string // affected message, if any
	Title       string
	Body        string
	CreatedAt   time.Time
	TTL         time.Duration
}

func (n *Notification) expired(now time.Time) bool {
	return now.After(n.CreatedAt.Add(n.TTL))
}

func (n *Notification) dedupeKey() [3]string {
	return [3]string{string(n.Kind), n.PhoneNumber, n.MessageID}
}

// Center owns the notification queue. Expiry is evaluated lazily on
// Enqueue and Current; there is no background timer.
type Center struct {
	mu      sync.Mutex
	entries []Notification
	maxLive int
	bus     *bus.Bus
	now     func() time.Time
}

// NewCenter creates a notification center publishing enqueue events on
// the bus for UI refresh.
func NewCenter(b *bus.Bus) *Center {
	return &Center{
		maxLive: DefaultMaxLive,
		bus:     b,
		now:     time.Now,
	}
}

// Enqueue adds a notification, merging it into an existing live entry
// with the same (kind, contact, message id) instead of queueing twice.
func (c *Center) Enqueue(n Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	if n.TTL == 0 {
		n.TTL = DefaultTTL
	}

	c.prune(now)

	key := n.dedupeKey()
	for i := range c.entries {
		if c.entries[i].dedupeKey() == key {
			// Merge: refresh the entry in place.
			c.entries[i] = n
			c.publish(n)
			return
		}
	}

	c.entries = append(c.entries, n)
	if len(c.entries) > c.maxLive {
		c.entries = c.entries[len(c.entries)-c.maxLive:]
	}
	c.publish(n)
}

// Current returns the live, non-expired notifications in insertion
// order.
func (c *Center) Current() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prune(c.now())
	return append([]Notification(nil), c.entries...)
}

// Dismiss drops the oldest live notification.
func (c *Center) Dismiss() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prune(c.now())
	if len(c.entries) > 0 {
		c.entries = c.entries[1:]
	}
}

// DismissAll clears the queue.
func (c *Center) DismissAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
}

func (c *Center) prune(now time.Time) {
	live := c.entries[:0]
	for _, n := range c.entries {
		if !n.expired(now) {
			live = append(live, n)
		}
	}
	c.entries = live
}

func (c *Center) publish(n Notification) {
	if c.bus != nil {
		c.bus.Publish(bus.Event{Kind: bus.KindNotification, Timestamp: c.now(), Payload: n})
	}
}
