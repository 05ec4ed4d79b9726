// Package cache is the in-memory, paginated store of contacts and
// per-contact message sequences. It is the single mutation authority
// for both: every write goes through the dispatch loop, and readers
// (the UI) only ever get copies.
//
// Messages inside a window are kept ordered by timestamp ascending and
// the window is always contiguous: older pages extend it downward, live
// merges newer than the upper bound extend it upward, and a merge
// inside the loaded range inserts at the ordered position.
package cache

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

// ErrFetchInFlight is returned when an older-page load is requested for
// a contact that already has one outstanding.
var ErrFetchInFlight = errors.New("fetch already in progress")

type window struct {
	messages []Message // ascending by CreatedAt
	hasMore  bool
	loaded   bool
	fetching bool
}

// Cache holds contacts and their loaded message windows.
type Cache struct {
	mu       sync.RWMutex
	contacts map[string]*Contact
	windows  map[string]*window
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		contacts: make(map[string]*Contact),
		windows:  make(map[string]*window),
	}
}

// UpsertContacts merges a contact listing from the server. Server
// values win for friendly name and last activity; locally tracked
// unread counts are preserved.
func (c *Cache) UpsertContacts(contacts []Contact) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, in := range contacts {
		cur, ok := c.contacts[in.PhoneNumber]
		if !ok {
			copied := in
			c.contacts[in.PhoneNumber] = &copied
			continue
		}
		if in.FriendlyName != "" {
			cur.FriendlyName = in.FriendlyName
		}
		if in.LastActivity > cur.LastActivity {
			cur.LastActivity = in.LastActivity
		}
	}
}

// SetFriendlyName records a server-confirmed friendly name change.
func (c *Cache) SetFriendlyName(phone, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureContact(phone).FriendlyName = name
}

// ClearUnread zeroes the unread count for a contact.
func (c *Cache) ClearUnread(phone string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ct, ok := c.contacts[phone]; ok {
		ct.UnreadCount = 0
	}
}

// BeginFetch marks a contact's window as having an older-page load in
// flight. A second call before EndFetch fails with ErrFetchInFlight.
func (c *Cache) BeginFetch(phone string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := c.ensureWindow(phone)
	if w.fetching {
		return ErrFetchInFlight
	}
	w.fetching = true
	return nil
}

// EndFetch clears the in-flight mark regardless of outcome.
func (c *Cache) EndFetch(phone string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureWindow(phone).fetching = false
}

// ApplyInitialPage replaces the contact's window with the newest page.
// msgs must be ascending by timestamp. Local sends that have no server
// id yet cannot appear in the fetched page, so they are carried over
// instead of dropped mid-send.
func (c *Cache) ApplyInitialPage(phone string, msgs []Message, hasMore bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := c.ensureWindow(phone)
	next := append([]Message(nil), msgs...)
	for _, m := range w.messages {
		if m.ServerID == "" {
			next = append(next, m)
		}
	}
	sort.SliceStable(next, func(i, j int) bool {
		return next[i].CreatedAt < next[j].CreatedAt
	})
	w.messages = next
	w.hasMore = hasMore
	w.loaded = true
	c.touchContact(phone, newestTimestamp(msgs))
}

// ApplyOlderPage extends the window downward with an older page. msgs
// must be ascending and strictly older than the current window bottom.
func (c *Cache) ApplyOlderPage(phone string, msgs []Message, hasMore bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := c.ensureWindow(phone)
	w.messages = append(append([]Message(nil), msgs...), w.messages...)
	w.hasMore = hasMore
	w.loaded = true
}

// MergeResult describes what MergeIncoming did.
type MergeResult struct {
	Inserted  bool // a new record was added
	Confirmed bool // a pending outbound entry was replaced in place
	Extended  bool // the window's upper bound moved
}

// MergeIncoming merges a live or fetched message into the contact's
// sequence. The merge rule is idempotent: a message whose server id is
// already present is a no-op. A message matching a pending outbound
// temp id replaces that entry in place (status advances to sent) rather
// than appending a duplicate. Inbound inserts bump the unread count.
func (c *Cache) MergeIncoming(msg Message) MergeResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	w := c.ensureWindow(msg.PhoneNumber)

	// Pending outbound confirmation by temp id. Part sends go out as
	// "tempid#index" while the cache tracks the logical message under
	// the bare temp id, so a server echo of either form must match.
	if base := baseTempID(msg.TempID); base != "" {
		for i := range w.messages {
			if w.messages[i].TempID == base && w.messages[i].ServerID == "" {
				w.messages[i].ServerID = msg.ServerID
				if w.messages[i].Status == StatusPending {
					w.messages[i].Status = StatusSent
				}
				c.touchContact(msg.PhoneNumber, msg.CreatedAt)
				return MergeResult{Confirmed: true}
			}
		}
	}

	// Idempotence on server id.
	if msg.ServerID != "" {
		for i := range w.messages {
			if w.messages[i].ServerID == msg.ServerID {
				return MergeResult{}
			}
		}
	}

	res := MergeResult{Inserted: true}
	if n := len(w.messages); n == 0 || msg.CreatedAt >= w.messages[n-1].CreatedAt {
		// Newer than the upper bound: extend the window upward.
		w.messages = append(w.messages, msg)
		res.Extended = true
	} else {
		at := sort.Search(len(w.messages), func(i int) bool {
			return w.messages[i].CreatedAt > msg.CreatedAt
		})
		w.messages = append(w.messages, Message{})
		copy(w.messages[at+1:], w.messages[at:])
		w.messages[at] = msg
	}

	ct := c.ensureContact(msg.PhoneNumber)
	if msg.CreatedAt > ct.LastActivity {
		ct.LastActivity = msg.CreatedAt
	}
	if msg.Direction == Inbound {
		ct.UnreadCount++
	}
	return res
}

// InsertPending optimistically inserts an outbound message before any
// network round trip.
func (c *Cache) InsertPending(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := c.ensureWindow(msg.PhoneNumber)
	w.messages = append(w.messages, msg)
	c.touchContact(msg.PhoneNumber, msg.CreatedAt)
}

// ConfirmSent pairs a pending outbound message with its server id and
// advances it to sent.
func (c *Cache) ConfirmSent(phone, tempID, serverID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := c.ensureWindow(phone)
	for i := range w.messages {
		if w.messages[i].TempID == tempID {
			w.messages[i].ServerID = serverID
			w.messages[i].Status = StatusSent
			return true
		}
	}
	return false
}

// MarkFailed moves an outbound message to failed.
func (c *Cache) MarkFailed(phone, tempID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := c.ensureWindow(phone)
	for i := range w.messages {
		if w.messages[i].TempID == tempID {
			w.messages[i].Status = StatusFailed
			return true
		}
	}
	return false
}

// AttachReport attaches or replaces the delivery report on the outbound
// message with the given server id. Returns the message's previous
// status and whether a matching message was found, so the caller can
// decide if the transition is worth a notification.
func (c *Cache) AttachReport(messageID string, report DeliveryReport) (Status, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, w := range c.windows {
		for i := range w.messages {
			m := &w.messages[i]
			if m.ServerID != messageID || m.Direction != Outbound {
				continue
			}
			prev := m.Status
			m.Report = &report
			switch report.Status {
			case "delivered":
				m.Status = StatusDelivered
			case "failed":
				m.Status = StatusFailed
			}
			return prev, true
		}
	}
	return "", false
}

// Contacts returns the contact list ordered by last activity descending.
func (c *Cache) Contacts() []Contact {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Contact, 0, len(c.contacts))
	for _, ct := range c.contacts {
		out = append(out, *ct)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastActivity != out[j].LastActivity {
			return out[i].LastActivity > out[j].LastActivity
		}
		return out[i].PhoneNumber < out[j].PhoneNumber
	})
	return out
}

// Contact returns a single contact snapshot.
func (c *Cache) Contact(phone string) (Contact, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ct, ok := c.contacts[phone]
	if !ok {
		return Contact{}, false
	}
	return *ct, true
}

// Messages returns the loaded window for a contact, ascending.
func (c *Cache) Messages(phone string) []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	w, ok := c.windows[phone]
	if !ok {
		return nil
	}
	return append([]Message(nil), w.messages...)
}

// FindMessage looks a message up by server id across all loaded
// windows.
func (c *Cache) FindMessage(serverID string) (Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, w := range c.windows {
		for i := range w.messages {
			if w.messages[i].ServerID == serverID {
				return w.messages[i], true
			}
		}
	}
	return Message{}, false
}

// Window returns the pagination window bounds for a contact.
func (c *Cache) Window(phone string) Window {
	c.mu.RLock()
	defer c.mu.RUnlock()
	w, ok := c.windows[phone]
	if !ok || len(w.messages) == 0 {
		var none Window
		if ok {
			none.HasMore = w.hasMore
			none.Loaded = w.loaded
		}
		return none
	}
	return Window{
		OldestID: w.messages[0].ID(),
		NewestID: w.messages[len(w.messages)-1].ID(),
		HasMore:  w.hasMore,
		Loaded:   w.loaded,
	}
}

func (c *Cache) ensureContact(phone string) *Contact {
	ct, ok := c.contacts[phone]
	if !ok {
		ct = &Contact{PhoneNumber: phone}
		c.contacts[phone] = ct
	}
	return ct
}

func (c *Cache) ensureWindow(phone string) *window {
	w, ok := c.windows[phone]
	if !ok {
		w = &window{}
		c.windows[phone] = w
	}
	return w
}

func (c *Cache) touchContact(phone string, ts int64) {
	ct := c.ensureContact(phone)
	if ts > ct.LastActivity {
		ct.LastActivity = ts
	}
}

func baseTempID(id string) string {
	if i := strings.IndexByte(id, '#'); i >= 0 {
		return id[:i]
	}
	return id
}

func newestTimestamp(msgs []Message) int64 {
	if len(msgs) == 0 {
		return 0
	}
	return msgs[len(msgs)-1].CreatedAt
}
