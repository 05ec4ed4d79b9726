package store

import (
	"database/sql"
	"fmt"
	"time"
)

// UpsertContact inserts or updates a phonebook entry. An empty friendly
// name never overwrites a stored one.
func (db *DB) UpsertContact(c *Contact) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO contacts (phone_number, friendly_name, last_activity, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(phone_number) DO UPDATE SET
			friendly_name = CASE WHEN excluded.friendly_name != '' THEN excluded.friendly_name ELSE contacts.friendly_name END,
			last_activity = MAX(excluded.last_activity, contacts.last_activity),
			updated_at = excluded.updated_at`,
		c.PhoneNumber, c.FriendlyName, c.LastActivity, now)
	return err
}

// BulkUpsertContacts upserts multiple entries in a single transaction.
func (db *DB) BulkUpsertContacts(contacts []Contact) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixMilli()
	for _, c := range contacts {
		if _, err := tx.Exec(`
			INSERT INTO contacts (phone_number, friendly_name, last_activity, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(phone_number) DO UPDATE SET
				friendly_name = CASE WHEN excluded.friendly_name != '' THEN excluded.friendly_name ELSE contacts.friendly_name END,
				last_activity = MAX(excluded.last_activity, contacts.last_activity),
				updated_at = excluded.updated_at`,
			c.PhoneNumber, c.FriendlyName, c.LastActivity, now); err != nil {
			return fmt.Errorf("upsert contact %q: %w", c.PhoneNumber, err)
		}
	}
	return tx.Commit()
}

// getContact returns a phonebook entry, or nil when unknown.
func (db *DB) getContact(phone string) (*Contact, error) {
	var c Contact
	err := db.QueryRow(`SELECT phone_number, friendly_name, last_activity FROM contacts WHERE phone_number = ?`, phone).
		Scan(&c.PhoneNumber, &c.FriendlyName, &c.LastActivity)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListContacts returns phonebook entries ordered by last activity
// descending.
func (db *DB) ListContacts(limit, offset int) ([]Contact, error) {
	rows, err := db.Query(`
		SELECT phone_number, friendly_name, last_activity
		FROM contacts
		ORDER BY last_activity DESC, phone_number ASC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.PhoneNumber, &c.FriendlyName, &c.LastActivity); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ContactCount returns the number of phonebook entries.
func (db *DB) ContactCount() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM contacts`).Scan(&count)
	return count, err
}
