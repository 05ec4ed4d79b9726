package router

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sms-terminal/smsterm/internal/bus"
	"github.com/sms-terminal/smsterm/internal/cache"
	"github.com/sms-terminal/smsterm/internal/conn"
	"github.com/sms-terminal/smsterm/internal/gateway"
	"github.com/sms-terminal/smsterm/internal/notify"
	"github.com/sms-terminal/smsterm/internal/wire"
)

type fakeGateway struct {
	mu           sync.Mutex
	contacts     []gateway.Contact
	page         *gateway.MessagePage
	reports      map[string]*gateway.DeliveryReport
	listCalls    int
	contactCalls int
	cursors      []string
	release      chan struct{} // when non-nil, ListMessages blocks until closed
}

func (g *fakeGateway) ListContacts(context.Context) ([]gateway.Contact, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.contactCalls++
	return g.contacts, nil
}

func (g *fakeGateway) ListMessages(_ context.Context, phone, cursor string, limit int) (*gateway.MessagePage, error) {
	g.mu.Lock()
	g.listCalls++
	g.cursors = append(g.cursors, cursor)
	release := g.release
	page := g.page
	g.mu.Unlock()
	if release != nil {
		<-release
	}
	if page == nil {
		return &gateway.MessagePage{}, nil
	}
	return page, nil
}

func (g *fakeGateway) FetchDeliveryReport(_ context.Context, messageID string) (*gateway.DeliveryReport, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	rep, ok := g.reports[messageID]
	if !ok {
		return nil, nil
	}
	return rep, nil
}

func (g *fakeGateway) DeviceInfo(context.Context) (*gateway.DeviceInfo, error) {
	return &gateway.DeviceInfo{State: "online", SignalStrength: 21}, nil
}

func (g *fakeGateway) UpdateContactName(_ context.Context, phone, name string) (*gateway.Contact, error) {
	return &gateway.Contact{PhoneNumber: phone, FriendlyName: name}, nil
}

func (g *fakeGateway) calls() (list, contacts int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.listCalls, g.contactCalls
}

type fakeSubmitter struct {
	mu    sync.Mutex
	phone string
	body  string
}

func (s *fakeSubmitter) Submit(_ context.Context, phone, body string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phone, s.body = phone, body
	return "temp-1", nil
}

type fixture struct {
	router *Router
	gw     *fakeGateway
	cache  *cache.Cache
	center *notify.Center
	bus    *bus.Bus
	frames chan *wire.Frame
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		gw:     &fakeGateway{},
		cache:  cache.New(),
		bus:    bus.New(),
		frames: make(chan *wire.Frame, 16),
	}
	f.center = notify.NewCenter(f.bus)
	f.router = New(Config{}, f.gw, f.cache, &fakeSubmitter{}, f.center, f.bus, f.frames, nil)
	if err := f.router.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(f.router.Stop)
	return f
}

// waitUntil polls cond until it holds or the deadline passes.
func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func newMessageFrame(id, phone, body string, ts int64) *wire.Frame {
	return &wire.Frame{
		Type: wire.TypeNewMessage,
		NewMessage: &wire.NewMessage{
			MessageID:   id,
			PhoneNumber: phone,
			Body:        body,
			CreatedAt:   ts,
		},
	}
}

func TestInboundFrameMergesAndNotifies(t *testing.T) {
	f := newFixture(t)

	f.frames <- newMessageFrame("m1", "+111", "hello", 100)

	waitUntil(t, func() bool { return len(f.cache.Messages("+111")) == 1 })
	ct, _ := f.cache.Contact("+111")
	if ct.UnreadCount != 1 {
		t.Errorf("unread = %d, want 1", ct.UnreadCount)
	}

	notes := f.center.Current()
	if len(notes) != 1 || notes[0].Kind != notify.KindNewMessage {
		t.Fatalf("notifications = %+v", notes)
	}
	if notes[0].PhoneNumber != "+111" {
		t.Errorf("notification phone = %s", notes[0].PhoneNumber)
	}
}

func TestFocusedContactSkipsNotification(t *testing.T) {
	f := newFixture(t)
	f.gw.page = &gateway.MessagePage{}

	f.router.FocusContact("+111")
	waitUntil(t, func() bool { return f.cache.Window("+111").Loaded })

	f.frames <- newMessageFrame("m1", "+111", "hello", 100)
	waitUntil(t, func() bool { return len(f.cache.Messages("+111")) == 1 })

	if notes := f.center.Current(); len(notes) != 0 {
		t.Errorf("focused contact should not notify, got %+v", notes)
	}
	ct, _ := f.cache.Contact("+111")
	if ct.UnreadCount != 0 {
		t.Errorf("focused contact unread = %d, want 0", ct.UnreadCount)
	}
}

func TestDuplicateFrameIsIdempotent(t *testing.T) {
	f := newFixture(t)

	f.frames <- newMessageFrame("m1", "+111", "hello", 100)
	f.frames <- newMessageFrame("m1", "+111", "hello", 100)
	f.frames <- newMessageFrame("m2", "+111", "again", 200)

	waitUntil(t, func() bool { return len(f.cache.Messages("+111")) == 2 })
	ct, _ := f.cache.Contact("+111")
	if ct.UnreadCount != 2 {
		t.Errorf("unread = %d, want 2 (duplicate must not bump)", ct.UnreadCount)
	}
}

func TestFocusLoadsInitialPage(t *testing.T) {
	f := newFixture(t)
	// Gateway pages are newest first.
	f.gw.page = &gateway.MessagePage{
		Messages: []gateway.Message{
			{MessageID: "m3", PhoneNumber: "+111", Body: "c", CreatedAt: 300},
			{MessageID: "m2", PhoneNumber: "+111", Body: "b", CreatedAt: 200},
			{MessageID: "m1", PhoneNumber: "+111", Body: "a", CreatedAt: 100},
		},
		HasMore: true,
	}

	f.router.FocusContact("+111")
	waitUntil(t, func() bool { return f.cache.Window("+111").Loaded })

	msgs := f.cache.Messages("+111")
	if len(msgs) != 3 {
		t.Fatalf("loaded %d messages, want 3", len(msgs))
	}
	if msgs[0].ServerID != "m1" || msgs[2].ServerID != "m3" {
		t.Errorf("messages not ascending: %s .. %s", msgs[0].ServerID, msgs[2].ServerID)
	}
	w := f.cache.Window("+111")
	if !w.HasMore || w.OldestID != "m1" {
		t.Errorf("window = %+v", w)
	}
}

func TestOlderPageUsesOldestCursor(t *testing.T) {
	f := newFixture(t)
	f.gw.page = &gateway.MessagePage{
		Messages: []gateway.Message{
			{MessageID: "m2", PhoneNumber: "+111", CreatedAt: 200},
		},
		HasMore: true,
	}
	f.router.FocusContact("+111")
	waitUntil(t, func() bool { return f.cache.Window("+111").Loaded })

	f.gw.mu.Lock()
	f.gw.page = &gateway.MessagePage{
		Messages: []gateway.Message{{MessageID: "m1", PhoneNumber: "+111", CreatedAt: 100}},
	}
	f.gw.mu.Unlock()

	f.router.RequestOlderPage("+111")
	waitUntil(t, func() bool { return len(f.cache.Messages("+111")) == 2 })

	f.gw.mu.Lock()
	cursors := append([]string(nil), f.gw.cursors...)
	f.gw.mu.Unlock()
	if len(cursors) != 2 || cursors[0] != "" || cursors[1] != "m2" {
		t.Errorf("cursors = %v, want [\"\" m2]", cursors)
	}
	if f.cache.Window("+111").HasMore {
		t.Error("window still reports more history")
	}
}

func TestOlderPageRequestsCoalesce(t *testing.T) {
	f := newFixture(t)
	f.gw.page = &gateway.MessagePage{
		Messages: []gateway.Message{{MessageID: "m2", PhoneNumber: "+111", CreatedAt: 200}},
		HasMore:  true,
	}
	f.router.FocusContact("+111")
	waitUntil(t, func() bool { return f.cache.Window("+111").Loaded })

	release := make(chan struct{})
	f.gw.mu.Lock()
	f.gw.release = release
	f.gw.mu.Unlock()

	f.router.RequestOlderPage("+111")
	waitUntil(t, func() bool { list, _ := f.gw.calls(); return list == 2 })
	f.router.RequestOlderPage("+111")
	f.router.RequestOlderPage("+111")

	// Give the extra requests a chance to (wrongly) start.
	time.Sleep(50 * time.Millisecond)
	if list, _ := f.gw.calls(); list != 2 {
		t.Errorf("ListMessages calls = %d, want 2 (one initial, one in flight)", list)
	}
	close(release)
}

func TestDeliveryReportNotifiesOnTerminalTransitionOnly(t *testing.T) {
	f := newFixture(t)
	f.cache.InsertPending(cache.Message{
		TempID: "t1", PhoneNumber: "+111", Direction: cache.Outbound,
		Status: cache.StatusPending, CreatedAt: 100,
	})
	f.cache.ConfirmSent("+111", "t1", "m1")

	// A non-terminal report must not notify.
	f.frames <- &wire.Frame{Type: wire.TypeDeliveryReport, DeliveryReport: &wire.DeliveryReport{
		MessageID: "m1", Status: "sent",
	}}
	f.frames <- &wire.Frame{Type: wire.TypeDeliveryReport, DeliveryReport: &wire.DeliveryReport{
		MessageID: "m1", Status: "delivered", DeliveredAt: 150,
	}}

	waitUntil(t, func() bool {
		msgs := f.cache.Messages("+111")
		return len(msgs) == 1 && msgs[0].Status == cache.StatusDelivered
	})

	notes := f.center.Current()
	if len(notes) != 1 || notes[0].Kind != notify.KindDeliveryUpdate {
		t.Fatalf("notifications = %+v", notes)
	}
	if notes[0].Title != "Message delivered" {
		t.Errorf("title = %q", notes[0].Title)
	}
}

func TestDeviceStatusFrameUpdatesSnapshot(t *testing.T) {
	f := newFixture(t)

	f.frames <- &wire.Frame{Type: wire.TypeDeviceStatus, DeviceStatus: &wire.DeviceStatus{
		State: "offline", SignalStrength: 99,
	}}

	waitUntil(t, func() bool { return f.router.Device().State == "offline" })
	if notes := f.center.Current(); len(notes) != 1 || notes[0].Kind != notify.KindDeviceStatus {
		t.Fatalf("notifications = %+v", notes)
	}
}

func TestReconnectResyncsFocusedWindow(t *testing.T) {
	f := newFixture(t)
	f.gw.page = &gateway.MessagePage{
		Messages: []gateway.Message{{MessageID: "m1", PhoneNumber: "+111", CreatedAt: 100}},
	}
	f.router.FocusContact("+111")
	waitUntil(t, func() bool { return f.cache.Window("+111").Loaded })

	connect := func() {
		f.bus.Publish(bus.Event{Kind: bus.KindConnStateChanged, Payload: conn.StateChange{
			To: conn.Connected, Status: conn.Status{State: conn.Connected},
		}})
	}
	drop := func() {
		f.bus.Publish(bus.Event{Kind: bus.KindConnStateChanged, Payload: conn.StateChange{
			From: conn.Connected, To: conn.Reconnecting,
			Status: conn.Status{State: conn.Reconnecting, Attempt: 1},
		}})
	}

	// First connect is not a resync.
	connect()
	time.Sleep(20 * time.Millisecond)
	list0, contacts0 := f.gw.calls()
	if contacts0 != 0 {
		t.Fatalf("contacts fetched on first connect: %d", contacts0)
	}

	drop()
	connect()
	waitUntil(t, func() bool {
		list, contacts := f.gw.calls()
		return list == list0+1 && contacts == 1
	})

	waitUntil(t, func() bool {
		for _, n := range f.center.Current() {
			if n.Kind == notify.KindConnectionState && n.Title == "Reconnected" {
				return true
			}
		}
		return false
	})
}

func TestRefreshDeliveryReportsPollsUnreported(t *testing.T) {
	f := newFixture(t)
	f.cache.InsertPending(cache.Message{
		TempID: "t1", PhoneNumber: "+111", Direction: cache.Outbound,
		Status: cache.StatusPending, CreatedAt: 100,
	})
	f.cache.ConfirmSent("+111", "t1", "m1")
	f.gw.reports = map[string]*gateway.DeliveryReport{
		"m1": {MessageID: "m1", Status: "delivered", DeliveredAt: 150},
	}

	f.router.RefreshDeliveryReports("+111")
	waitUntil(t, func() bool {
		msgs := f.cache.Messages("+111")
		return len(msgs) == 1 && msgs[0].Status == cache.StatusDelivered
	})
	if rep := f.cache.Messages("+111")[0].Report; rep == nil || rep.DeliveredAt != 150 {
		t.Errorf("report = %+v", rep)
	}
}

func TestEditFriendlyName(t *testing.T) {
	f := newFixture(t)

	f.router.EditFriendlyName("+111", "Alice")
	waitUntil(t, func() bool {
		ct, ok := f.cache.Contact("+111")
		return ok && ct.FriendlyName == "Alice"
	})
}
