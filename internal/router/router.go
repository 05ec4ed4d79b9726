// Package router is the dispatch core of the client. A single
// goroutine serially consumes live-connection frames, completions of
// asynchronous gateway calls, and user intents, and applies them to the
// data cache and notification center. Serializing here keeps merge
// decisions ordered without spreading locks through the handlers.
package router

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sms-terminal/smsterm/internal/bus"
	"github.com/sms-terminal/smsterm/internal/cache"
	"github.com/sms-terminal/smsterm/internal/conn"
	"github.com/sms-terminal/smsterm/internal/gateway"
	"github.com/sms-terminal/smsterm/internal/notify"
	"github.com/sms-terminal/smsterm/internal/wire"
	"go.uber.org/zap"
)

// DefaultPageSize is the number of messages requested per history page.
const DefaultPageSize = 20

// Gateway is the subset of the HTTP client the router calls.
type Gateway interface {
	ListContacts(ctx context.Context) ([]gateway.Contact, error)
	ListMessages(ctx context.Context, phone, cursor string, limit int) (*gateway.MessagePage, error)
	FetchDeliveryReport(ctx context.Context, messageID string) (*gateway.DeliveryReport, error)
	DeviceInfo(ctx context.Context) (*gateway.DeviceInfo, error)
	UpdateContactName(ctx context.Context, phone, name string) (*gateway.Contact, error)
}

// Submitter is the send pipeline as the router sees it.
type Submitter interface {
	Submit(ctx context.Context, phone, body string) (string, error)
}

// Config tunes the router.
type Config struct {
	PageSize int
}

// ReportAttached is the payload of cache.report_attached bus events.
type ReportAttached struct {
	MessageID   string
	PhoneNumber string
	Status      string
	ReportedAt  int64
}

// Router owns the dispatch loop.
type Router struct {
	gw       Gateway
	cache    *cache.Cache
	pipeline Submitter
	center   *notify.Center
	bus      *bus.Bus
	logger   *zap.Logger
	pageSize int

	frames      <-chan *wire.Frame
	connSub     *bus.Subscription
	intents     chan func(ctx context.Context)
	completions chan func()

	cancel context.CancelFunc
	done   chan struct{}

	// Owned by the dispatch goroutine.
	focused      string
	wasConnected bool

	snapMu sync.RWMutex
	device gateway.DeviceInfo
}

// New wires a router over the given components. frames is the live
// connection's frame stream; pass nil when running offline.
func New(cfg Config, gw Gateway, c *cache.Cache, pipeline Submitter, center *notify.Center, b *bus.Bus, frames <-chan *wire.Frame, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	return &Router{
		gw:          gw,
		cache:       c,
		pipeline:    pipeline,
		center:      center,
		bus:         b,
		logger:      logger,
		pageSize:    cfg.PageSize,
		frames:      frames,
		intents:     make(chan func(ctx context.Context), 64),
		completions: make(chan func(), 64),
		done:        make(chan struct{}),
	}
}

// Start launches the dispatch goroutine. It returns once the loop is
// running; Stop tears it down.
func (r *Router) Start(ctx context.Context) error {
	if r.cancel != nil {
		return fmt.Errorf("router already started")
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.connSub = r.bus.Subscribe("conn.", 16)
	go r.run(ctx)
	return nil
}

// Stop shuts the dispatch loop down and waits for it to exit.
func (r *Router) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
}

func (r *Router) run(ctx context.Context) {
	defer close(r.done)
	defer r.connSub.Close()

	frames := r.frames
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-frames:
			if !ok {
				// Connection manager shut down; keep serving
				// intents so the UI stays usable offline.
				frames = nil
				continue
			}
			r.handleFrame(frame)
		case ev := <-r.connSub.C():
			if change, ok := ev.Payload.(conn.StateChange); ok {
				r.handleStateChange(ctx, change)
			}
		case fn := <-r.completions:
			fn()
		case fn := <-r.intents:
			fn(ctx)
		}
	}
}

// post queues an intent for the dispatch goroutine.
func (r *Router) post(fn func(ctx context.Context)) {
	select {
	case r.intents <- fn:
	case <-r.done:
	}
}

// complete posts the result of an asynchronous gateway call back onto
// the dispatch goroutine.
func (r *Router) complete(fn func()) {
	select {
	case r.completions <- fn:
	case <-r.done:
	}
}

// FocusContact marks a conversation as on screen. Unread is cleared and
// the newest page is loaded if the window is empty.
func (r *Router) FocusContact(phone string) {
	r.post(func(ctx context.Context) {
		r.focused = phone
		r.cache.ClearUnread(phone)
		r.publish(bus.KindContactsUpdated, phone)
		if !r.cache.Window(phone).Loaded {
			r.loadInitialPage(ctx, phone)
		}
	})
}

// Blur clears the focused conversation.
func (r *Router) Blur() {
	r.post(func(context.Context) {
		r.focused = ""
	})
}

// RequestOlderPage extends the focused window downward by one page.
// A request while a fetch is already in flight, or when the server has
// no more history, is a no-op.
func (r *Router) RequestOlderPage(phone string) {
	r.post(func(ctx context.Context) {
		w := r.cache.Window(phone)
		if !w.Loaded || !w.HasMore {
			return
		}
		if err := r.cache.BeginFetch(phone); err != nil {
			return
		}
		go func() {
			page, err := r.gw.ListMessages(ctx, phone, w.OldestID, r.pageSize)
			r.complete(func() {
				r.cache.EndFetch(phone)
				if err != nil {
					r.logger.Warn("older page fetch failed",
						zap.String("phone", phone), zap.Error(err))
					return
				}
				r.cache.ApplyOlderPage(phone, pageToMessages(page), page.HasMore)
				r.publish(bus.KindWindowExtended, phone)
			})
		}()
	})
}

// SubmitMessage hands a message to the send pipeline. The pipeline
// inserts the pending record before any network call, so the UI updates
// immediately; failures surface as send.failed bus events.
func (r *Router) SubmitMessage(phone, body string) {
	r.post(func(ctx context.Context) {
		go func() {
			if _, err := r.pipeline.Submit(ctx, phone, body); err != nil {
				r.center.Enqueue(notify.Notification{
					Kind:        notify.KindDeliveryUpdate,
					PhoneNumber: phone,
					Title:       "Send failed",
					Body:        err.Error(),
				})
			}
		}()
	})
}

// EditFriendlyName forwards a rename to the gateway and merges it into
// the cache once the server confirms.
func (r *Router) EditFriendlyName(phone, name string) {
	r.post(func(ctx context.Context) {
		go func() {
			ct, err := r.gw.UpdateContactName(ctx, phone, name)
			r.complete(func() {
				if err != nil {
					r.logger.Warn("contact rename failed",
						zap.String("phone", phone), zap.Error(err))
					return
				}
				r.cache.SetFriendlyName(ct.PhoneNumber, ct.FriendlyName)
				r.publish(bus.KindContactsUpdated, ct.PhoneNumber)
			})
		}()
	})
}

// RefreshDeliveryReports polls the gateway for reports on sent messages
// in a contact's window that have none yet. Live connections push
// reports as frames; this is the HTTP fallback.
func (r *Router) RefreshDeliveryReports(phone string) {
	r.post(func(ctx context.Context) {
		var ids []string
		for _, m := range r.cache.Messages(phone) {
			if m.Direction == cache.Outbound && m.ServerID != "" && m.Report == nil && m.Status == cache.StatusSent {
				ids = append(ids, m.ServerID)
			}
		}
		if len(ids) == 0 {
			return
		}
		go func() {
			for _, id := range ids {
				rep, err := r.gw.FetchDeliveryReport(ctx, id)
				if err != nil {
					r.logger.Warn("delivery report fetch failed",
						zap.String("message_id", id), zap.Error(err))
					continue
				}
				if rep == nil {
					continue
				}
				r.complete(func() {
					r.handleDeliveryReport(&wire.DeliveryReport{
						MessageID:   rep.MessageID,
						Status:      rep.Status,
						DeliveredAt: rep.DeliveredAt,
					})
				})
			}
		}()
	})
}

// RefreshContacts reloads the contact list from the gateway.
func (r *Router) RefreshContacts() {
	r.post(r.refreshContacts)
}

func (r *Router) refreshContacts(ctx context.Context) {
	go func() {
		contacts, err := r.gw.ListContacts(ctx)
		r.complete(func() {
			if err != nil {
				r.logger.Warn("contact list fetch failed", zap.Error(err))
				return
			}
			r.cache.UpsertContacts(contactsToCache(contacts))
			r.publish(bus.KindContactsUpdated, "")
		})
	}()
}

// RefreshDeviceInfo polls the gateway for the device snapshot.
func (r *Router) RefreshDeviceInfo() {
	r.post(func(ctx context.Context) {
		go func() {
			info, err := r.gw.DeviceInfo(ctx)
			r.complete(func() {
				if err != nil {
					r.logger.Warn("device info fetch failed", zap.Error(err))
					return
				}
				r.setDevice(*info)
				r.publish(bus.KindDeviceStatus, *info)
			})
		}()
	})
}

// Device returns the last known device snapshot.
func (r *Router) Device() gateway.DeviceInfo {
	r.snapMu.RLock()
	defer r.snapMu.RUnlock()
	return r.device
}

func (r *Router) setDevice(info gateway.DeviceInfo) {
	r.snapMu.Lock()
	r.device = info
	r.snapMu.Unlock()
}

func (r *Router) handleFrame(frame *wire.Frame) {
	switch frame.Type {
	case wire.TypeNewMessage:
		r.handleNewMessage(frame.NewMessage)
	case wire.TypeDeliveryReport:
		r.handleDeliveryReport(frame.DeliveryReport)
	case wire.TypeDeviceStatus:
		r.handleDeviceStatus(frame.DeviceStatus)
	}
}

func (r *Router) handleNewMessage(m *wire.NewMessage) {
	msg := cache.Message{
		ServerID:    m.MessageID,
		TempID:      m.TempID,
		PhoneNumber: m.PhoneNumber,
		Direction:   cache.Inbound,
		Body:        m.Body,
		PartCount:   m.PartCount,
		Status:      cache.StatusDelivered,
		CreatedAt:   m.CreatedAt,
	}
	if m.Outgoing {
		msg.Direction = cache.Outbound
		msg.Status = cache.StatusSent
	}

	res := r.cache.MergeIncoming(msg)
	if !res.Inserted && !res.Confirmed {
		return
	}
	if msg.PhoneNumber == r.focused {
		r.cache.ClearUnread(msg.PhoneNumber)
	}
	if res.Extended {
		r.publish(bus.KindWindowExtended, msg.PhoneNumber)
	}
	r.publish(bus.KindMessageMerged, msg.PhoneNumber)

	if res.Inserted && msg.Direction == cache.Inbound && msg.PhoneNumber != r.focused {
		r.center.Enqueue(notify.Notification{
			Kind:        notify.KindNewMessage,
			PhoneNumber: msg.PhoneNumber,
			MessageID:   msg.ServerID,
			Title:       r.displayName(msg.PhoneNumber),
			Body:        truncate(msg.Body, 80),
		})
	}
}

func (r *Router) handleDeliveryReport(rep *wire.DeliveryReport) {
	prev, found := r.cache.AttachReport(rep.MessageID, cache.DeliveryReport{
		Status:      rep.Status,
		DeliveredAt: rep.DeliveredAt,
	})
	if !found {
		return
	}
	if msg, ok := r.cache.FindMessage(rep.MessageID); ok {
		r.publish(bus.KindMessageMerged, msg.PhoneNumber)
		r.publish(bus.KindReportAttached, ReportAttached{
			MessageID:   rep.MessageID,
			PhoneNumber: msg.PhoneNumber,
			Status:      rep.Status,
			ReportedAt:  rep.DeliveredAt,
		})
	}

	// Notify only on a terminal transition, not on repeats of the
	// same status.
	terminal := rep.Status == string(cache.StatusDelivered) || rep.Status == string(cache.StatusFailed)
	if !terminal || string(prev) == rep.Status {
		return
	}
	title := "Message delivered"
	if rep.Status == string(cache.StatusFailed) {
		title = "Message failed"
	}
	r.center.Enqueue(notify.Notification{
		Kind:      notify.KindDeliveryUpdate,
		MessageID: rep.MessageID,
		Title:     title,
	})
}

func (r *Router) handleDeviceStatus(ds *wire.DeviceStatus) {
	prev := r.Device()
	next := prev
	next.State = ds.State
	next.SignalStrength = ds.SignalStrength
	next.BatteryLevel = ds.BatteryLevel
	r.setDevice(next)
	r.publish(bus.KindDeviceStatus, next)

	if prev.State != ds.State {
		r.center.Enqueue(notify.Notification{
			Kind:  notify.KindDeviceStatus,
			Title: "Modem " + ds.State,
		})
	}
}

func (r *Router) handleStateChange(ctx context.Context, change conn.StateChange) {
	switch change.To {
	case conn.Connected:
		if r.wasConnected {
			// Back after a drop: the window may have holes, so
			// reload the focused conversation and the contact
			// list rather than trusting the cached range.
			r.resync(ctx)
			r.center.Enqueue(notify.Notification{
				Kind:  notify.KindConnectionState,
				Title: "Reconnected",
			})
		}
		r.wasConnected = true
	case conn.Reconnecting:
		if change.Status.Attempt == 1 {
			r.center.Enqueue(notify.Notification{
				Kind:  notify.KindConnectionState,
				Title: "Connection lost",
				Body:  "retrying in background",
			})
		}
	case conn.Disconnected:
		if change.Status.Fatal {
			r.center.Enqueue(notify.Notification{
				Kind:  notify.KindConnectionState,
				Title: "Disconnected",
				Body:  change.Status.LastError,
			})
		}
	}
}

func (r *Router) resync(ctx context.Context) {
	r.refreshContacts(ctx)
	if r.focused != "" {
		r.loadInitialPage(ctx, r.focused)
	}
}

// loadInitialPage fetches the newest page and replaces the contact's
// window with it.
func (r *Router) loadInitialPage(ctx context.Context, phone string) {
	if err := r.cache.BeginFetch(phone); err != nil {
		return
	}
	go func() {
		page, err := r.gw.ListMessages(ctx, phone, "", r.pageSize)
		r.complete(func() {
			r.cache.EndFetch(phone)
			if err != nil {
				r.logger.Warn("initial page fetch failed",
					zap.String("phone", phone), zap.Error(err))
				return
			}
			r.cache.ApplyInitialPage(phone, pageToMessages(page), page.HasMore)
			r.publish(bus.KindWindowExtended, phone)
		})
	}()
}

func (r *Router) publish(kind string, payload any) {
	r.bus.Publish(bus.Event{Kind: kind, Timestamp: time.Now(), Payload: payload})
}

func (r *Router) displayName(phone string) string {
	if ct, ok := r.cache.Contact(phone); ok && ct.FriendlyName != "" {
		return ct.FriendlyName
	}
	return phone
}

// pageToMessages converts a newest-first gateway page into the
// ascending order the cache keeps.
func pageToMessages(page *gateway.MessagePage) []cache.Message {
	out := make([]cache.Message, 0, len(page.Messages))
	for i := len(page.Messages) - 1; i >= 0; i-- {
		out = append(out, messageToCache(page.Messages[i]))
	}
	return out
}

func messageToCache(m gateway.Message) cache.Message {
	msg := cache.Message{
		ServerID:    m.MessageID,
		PhoneNumber: m.PhoneNumber,
		Direction:   cache.Inbound,
		Body:        m.Body,
		PartCount:   m.PartCount,
		Status:      cache.StatusDelivered,
		CreatedAt:   m.CreatedAt,
	}
	if m.Outgoing {
		msg.Direction = cache.Outbound
		msg.Status = cache.StatusSent
		if m.Status != "" {
			msg.Status = cache.Status(m.Status)
		}
	}
	return msg
}

func contactsToCache(contacts []gateway.Contact) []cache.Contact {
	out := make([]cache.Contact, len(contacts))
	for i, c := range contacts {
		out[i] = cache.Contact{
			PhoneNumber:  c.PhoneNumber,
			FriendlyName: c.FriendlyName,
			LastActivity: c.LastActivity,
			UnreadCount:  c.UnreadCount,
		}
	}
	return out
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
