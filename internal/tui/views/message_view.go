package views

import (
	"fmt"

	"github.com/rivo/tview"
	"github.com/sms-terminal/smsterm/internal/cache"
)

// MessageView displays the loaded window of one conversation.
type MessageView struct {
	*tview.TextView
	hasMore bool
}

// NewMessageView creates the conversation view.
func NewMessageView() *MessageView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	tv.SetBorder(true).SetTitle(" Messages ")

	return &MessageView{TextView: tv}
}

// SetContactName updates the title with the contact name.
func (mv *MessageView) SetContactName(name string) {
	mv.SetTitle(fmt.Sprintf(" %s ", name))
}

// Update renders the window, oldest first.
func (mv *MessageView) Update(msgs []cache.Message, hasMore bool) {
	mv.hasMore = hasMore
	mv.Clear()

	if hasMore {
		_, _ = fmt.Fprint(mv, "[::d]-- older messages above, PgUp to load --[-:-:-]\n\n")
	}
	for _, m := range msgs {
		sender := "Them"
		if m.Direction == cache.Outbound {
			sender = "You"
		}
		line := fmt.Sprintf("[::b]%s[-:-:-] [::d]%s %s[-:-:-]\n%s\n\n",
			sender, formatTimestamp(m.CreatedAt), statusMark(m),
			tview.Escape(sanitizeForTerminal(m.Body)))
		_, _ = fmt.Fprint(mv, line)
	}

	mv.ScrollToEnd()
}

func statusMark(m cache.Message) string {
	if m.Direction != cache.Outbound {
		return ""
	}
	switch m.Status {
	case cache.StatusPending:
		return "…"
	case cache.StatusSent:
		return "✓"
	case cache.StatusDelivered:
		return "✓✓"
	case cache.StatusFailed:
		return "[red]failed[-]"
	}
	return ""
}
