package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/sms-terminal/smsterm/internal/compose"
)

// Composer is the text input for sending messages. The label shows the
// encoded length and part count of the draft as it is typed.
type Composer struct {
	*tview.InputField
	limits compose.Limits
	onSend func(text string)
}

// NewComposer creates a new message composer.
func NewComposer(limits compose.Limits) *Composer {
	input := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)

	c := &Composer{InputField: input, limits: limits}

	input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && c.onSend != nil {
			text := c.GetText()
			if text != "" {
				c.onSend(text)
				c.SetText("")
				c.SetLabel(" > ")
			}
		}
	})
	input.SetChangedFunc(func(text string) {
		c.SetLabel(c.counter(text))
	})

	return c
}

// SetOnSend sets the callback when a message is sent.
func (c *Composer) SetOnSend(fn func(text string)) {
	c.onSend = fn
}

func (c *Composer) counter(text string) string {
	if text == "" {
		return " > "
	}
	parts := compose.Split(text, c.limits)
	n := compose.EncodedLength(text, compose.DetectCharset(text))
	if len(parts) > 1 {
		return fmt.Sprintf(" %d/%dp > ", n, len(parts))
	}
	return fmt.Sprintf(" %d > ", n)
}
