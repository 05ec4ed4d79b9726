package app

import (
	"context"

	"github.com/sms-terminal/smsterm/internal/bus"
	"github.com/sms-terminal/smsterm/internal/cache"
	"github.com/sms-terminal/smsterm/internal/router"
	"github.com/sms-terminal/smsterm/internal/store"
	"go.uber.org/zap"
)

// Persister writes cache changes through to the on-disk phonebook and
// delivery timeline. It subscribes to "cache." events on the bus, so
// the router never blocks on disk.
type Persister struct {
	db     *store.DB
	cache  *cache.Cache
	bus    *bus.Bus
	logger *zap.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPersister creates a write-through persister.
func NewPersister(db *store.DB, c *cache.Cache, b *bus.Bus, logger *zap.Logger) *Persister {
	return &Persister{db: db, cache: c, bus: b, logger: logger, done: make(chan struct{})}
}

// Start subscribes to cache events on the bus.
func (p *Persister) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	sub := p.bus.Subscribe("cache.", 256)

	go func() {
		defer close(p.done)
		defer sub.Close()
		for {
			select {
			case evt := <-sub.C():
				p.handleEvent(evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the persister and waits for the loop to exit.
func (p *Persister) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
}

func (p *Persister) handleEvent(evt bus.Event) {
	switch evt.Kind {
	case bus.KindContactsUpdated:
		// Single-contact events (rename, merged message) carry the
		// phone number; a full listing refresh carries none.
		if phone, ok := evt.Payload.(string); ok && phone != "" {
			p.persistContact(phone)
		} else {
			p.persistContacts()
		}
	case bus.KindReportAttached:
		rep, ok := evt.Payload.(router.ReportAttached)
		if !ok {
			return
		}
		err := p.db.AppendDeliveryEvent(&store.DeliveryEvent{
			MessageID:   rep.MessageID,
			PhoneNumber: rep.PhoneNumber,
			Status:      rep.Status,
			ReportedAt:  rep.ReportedAt,
		})
		if err != nil {
			p.logger.Error("failed to persist delivery event",
				zap.String("message_id", rep.MessageID), zap.Error(err))
		}
	}
}

func (p *Persister) persistContact(phone string) {
	ct, ok := p.cache.Contact(phone)
	if !ok {
		return
	}
	err := p.db.UpsertContact(&store.Contact{
		PhoneNumber:  ct.PhoneNumber,
		FriendlyName: ct.FriendlyName,
		LastActivity: ct.LastActivity,
	})
	if err != nil {
		p.logger.Error("failed to persist contact",
			zap.String("phone", phone), zap.Error(err))
	}
}

func (p *Persister) persistContacts() {
	contacts := p.cache.Contacts()
	rows := make([]store.Contact, len(contacts))
	for i, c := range contacts {
		rows[i] = store.Contact{
			PhoneNumber:  c.PhoneNumber,
			FriendlyName: c.FriendlyName,
			LastActivity: c.LastActivity,
		}
	}
	if err := p.db.BulkUpsertContacts(rows); err != nil {
		p.logger.Error("failed to persist phonebook", zap.Error(err))
	}
}

// SeedCache preloads the in-memory contact list from the phonebook so
// the UI has names before the first gateway sync completes.
func (p *Persister) SeedCache() error {
	rows, err := p.db.ListContacts(500, 0)
	if err != nil {
		return err
	}
	contacts := make([]cache.Contact, len(rows))
	for i, r := range rows {
		contacts[i] = cache.Contact{
			PhoneNumber:  r.PhoneNumber,
			FriendlyName: r.FriendlyName,
			LastActivity: r.LastActivity,
		}
	}
	p.cache.UpsertContacts(contacts)
	return nil
}
