package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/rivo/tview"
	"github.com/sms-terminal/smsterm/internal/cache"
)

// PhonebookList is the contact list table.
type PhonebookList struct {
	*tview.Table
	all      []cache.Contact
	contacts []cache.Contact
	filter   string
}

// NewPhonebookList creates the phonebook table.
func NewPhonebookList() *PhonebookList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false)
	table.SetBorder(true).SetTitle(" Phonebook ")

	return &PhonebookList{Table: table}
}

// Update refreshes the table with new contacts.
func (pl *PhonebookList) Update(contacts []cache.Contact) {
	pl.all = contacts
	pl.render()
}

// SetFilter narrows the list to contacts whose name or number contains
// the given substring, case-insensitive. Empty clears the filter.
func (pl *PhonebookList) SetFilter(filter string) {
	pl.filter = strings.ToLower(filter)
	pl.render()
}

func (pl *PhonebookList) render() {
	row, _ := pl.GetSelection()
	pl.contacts = pl.contacts[:0]
	for _, c := range pl.all {
		if pl.matches(c) {
			pl.contacts = append(pl.contacts, c)
		}
	}
	pl.Clear()

	pl.SetCell(0, 0, tview.NewTableCell(" Contact").SetSelectable(false).SetTextColor(tview.Styles.SecondaryTextColor))
	pl.SetCell(0, 1, tview.NewTableCell(" Number").SetSelectable(false).SetTextColor(tview.Styles.SecondaryTextColor))
	pl.SetCell(0, 2, tview.NewTableCell(" Last").SetSelectable(false).SetTextColor(tview.Styles.SecondaryTextColor))

	for i, c := range pl.contacts {
		name := c.FriendlyName
		if name == "" {
			name = c.PhoneNumber
		}
		if c.UnreadCount > 0 {
			name = fmt.Sprintf("* %s (%d)", name, c.UnreadCount)
		}
		pl.SetCell(i+1, 0, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(name))).SetMaxWidth(30).SetExpansion(2))
		pl.SetCell(i+1, 1, tview.NewTableCell(" "+c.PhoneNumber).SetMaxWidth(18).SetExpansion(1))
		pl.SetCell(i+1, 2, tview.NewTableCell(" "+formatTimestamp(c.LastActivity)).SetMaxWidth(12))
	}

	if row > len(pl.contacts) {
		row = len(pl.contacts)
	}
	if row < 1 {
		row = 1
	}
	pl.Select(row, 0)
}

func (pl *PhonebookList) matches(c cache.Contact) bool {
	if pl.filter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.FriendlyName), pl.filter) ||
		strings.Contains(strings.ToLower(c.PhoneNumber), pl.filter)
}

// SelectedContact returns the phone number of the selected row.
func (pl *PhonebookList) SelectedContact() string {
	row, _ := pl.GetSelection()
	idx := row - 1 // account for header
	if idx >= 0 && idx < len(pl.contacts) {
		return pl.contacts[idx].PhoneNumber
	}
	return ""
}

func formatTimestamp(sec int64) string {
	if sec == 0 {
		return ""
	}
	t := time.Unix(sec, 0)
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("01/02")
}
