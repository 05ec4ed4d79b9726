package store

import (
	"fmt"
	"path/filepath"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := testDB(t)

	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 1 {
		t.Errorf("version = %d, want 1", result.Version)
	}
}

func TestUpsertContactPreservesName(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertContact(&Contact{PhoneNumber: "+111", FriendlyName: "Alice", LastActivity: 100}); err != nil {
		t.Fatal(err)
	}
	// A later sync without a name must not erase the stored one.
	if err := db.UpsertContact(&Contact{PhoneNumber: "+111", LastActivity: 200}); err != nil {
		t.Fatal(err)
	}

	c, err := db.getContact("+111")
	if err != nil {
		t.Fatal(err)
	}
	if c == nil {
		t.Fatal("contact not found")
	}
	if c.FriendlyName != "Alice" {
		t.Errorf("name = %q, want Alice", c.FriendlyName)
	}
	if c.LastActivity != 200 {
		t.Errorf("last activity = %d, want 200", c.LastActivity)
	}
}

func TestUpsertContactKeepsNewestActivity(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertContact(&Contact{PhoneNumber: "+111", LastActivity: 300}); err != nil {
		t.Fatal(err)
	}
	// A stale sync must not move activity backwards.
	if err := db.UpsertContact(&Contact{PhoneNumber: "+111", LastActivity: 100}); err != nil {
		t.Fatal(err)
	}

	c, err := db.getContact("+111")
	if err != nil {
		t.Fatal(err)
	}
	if c.LastActivity != 300 {
		t.Errorf("last activity = %d, want 300", c.LastActivity)
	}
}

func TestListContactsOrdersByActivity(t *testing.T) {
	db := testDB(t)

	contacts := []Contact{
		{PhoneNumber: "+111", FriendlyName: "Old", LastActivity: 100},
		{PhoneNumber: "+222", FriendlyName: "New", LastActivity: 300},
		{PhoneNumber: "+333", FriendlyName: "Mid", LastActivity: 200},
	}
	if err := db.BulkUpsertContacts(contacts); err != nil {
		t.Fatal(err)
	}

	got, err := db.ListContacts(10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d contacts, want 3", len(got))
	}
	if got[0].PhoneNumber != "+222" || got[2].PhoneNumber != "+111" {
		t.Errorf("order = %s, %s, %s", got[0].PhoneNumber, got[1].PhoneNumber, got[2].PhoneNumber)
	}
}

func TestGetContactUnknown(t *testing.T) {
	db := testDB(t)
	c, err := db.getContact("+999")
	if err != nil {
		t.Fatal(err)
	}
	if c != nil {
		t.Errorf("got %+v, want nil", c)
	}
}

func TestDeliveryTimelineTrims(t *testing.T) {
	db := testDB(t)

	for i := 0; i < 15; i++ {
		err := db.AppendDeliveryEvent(&DeliveryEvent{
			MessageID:  fmt.Sprintf("m%d", i),
			Status:     "delivered",
			ReportedAt: int64(i * 100),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	events, err := db.RecentDeliveryEvents()
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 10 {
		t.Fatalf("timeline has %d entries, want 10", len(events))
	}
	if events[0].MessageID != "m14" {
		t.Errorf("newest = %s, want m14", events[0].MessageID)
	}
	if events[9].MessageID != "m5" {
		t.Errorf("oldest kept = %s, want m5", events[9].MessageID)
	}
}
