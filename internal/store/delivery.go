package store

import "fmt"

// deliveryTimelineMax bounds the persisted delivery report timeline.
const deliveryTimelineMax = 10

// AppendDeliveryEvent records a delivery report and trims the timeline
// to the newest entries.
func (db *DB) AppendDeliveryEvent(ev *DeliveryEvent) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
		INSERT INTO delivery_events (message_id, phone_number, status, reported_at)
		VALUES (?, ?, ?, ?)`,
		ev.MessageID, ev.PhoneNumber, ev.Status, ev.ReportedAt); err != nil {
		return fmt.Errorf("insert delivery event: %w", err)
	}
	if _, err := tx.Exec(`
		DELETE FROM delivery_events WHERE id NOT IN (
			SELECT id FROM delivery_events ORDER BY id DESC LIMIT ?)`,
		deliveryTimelineMax); err != nil {
		return fmt.Errorf("trim delivery timeline: %w", err)
	}
	return tx.Commit()
}

// RecentDeliveryEvents returns the timeline newest first.
func (db *DB) RecentDeliveryEvents() ([]DeliveryEvent, error) {
	rows, err := db.Query(`
		SELECT id, message_id, phone_number, status, reported_at
		FROM delivery_events
		ORDER BY id DESC
		LIMIT ?`, deliveryTimelineMax)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DeliveryEvent
	for rows.Next() {
		var ev DeliveryEvent
		if err := rows.Scan(&ev.ID, &ev.MessageID, &ev.PhoneNumber, &ev.Status, &ev.ReportedAt); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
