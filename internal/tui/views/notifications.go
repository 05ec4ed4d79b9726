package views

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
	"github.com/sms-terminal/smsterm/internal/notify"
)

// NotificationBar renders the live notification queue above the status
// bar. Height returns how many rows it currently needs so the layout
// can collapse it when the queue is empty.
type NotificationBar struct {
	*tview.TextView
	count int
}

// NewNotificationBar creates the notification area.
func NewNotificationBar() *NotificationBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	return &NotificationBar{TextView: tv}
}

// Update renders the current queue, newest last.
func (nb *NotificationBar) Update(notes []notify.Notification) {
	nb.count = len(notes)
	var b strings.Builder
	for _, n := range notes {
		title := tview.Escape(sanitizeForTerminal(n.Title))
		if n.Body != "" {
			body := tview.Escape(sanitizeForTerminal(strings.ReplaceAll(n.Body, "\n", " ")))
			fmt.Fprintf(&b, " [orange]•[-] [::b]%s[-:-:-] %s\n", title, body)
		} else {
			fmt.Fprintf(&b, " [orange]•[-] [::b]%s[-:-:-]\n", title)
		}
	}
	nb.SetText(strings.TrimRight(b.String(), "\n"))
}

// Height returns the number of rows the bar needs.
func (nb *NotificationBar) Height() int {
	return nb.count
}
