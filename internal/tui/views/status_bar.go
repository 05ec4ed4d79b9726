package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/rivo/tview"
	"github.com/sms-terminal/smsterm/internal/conn"
	"github.com/sms-terminal/smsterm/internal/gateway"
)

// StatusBar displays the connection state and the device snapshot.
type StatusBar struct {
	*tview.TextView
	status conn.Status
	device gateway.DeviceInfo
	flash  string
}

// NewStatusBar creates the status bar.
func NewStatusBar() *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)

	return &StatusBar{TextView: tv}
}

// SetConnStatus updates the connection segment.
func (sb *StatusBar) SetConnStatus(s conn.Status) {
	sb.status = s
	sb.render()
}

// SetDevice updates the device segment.
func (sb *StatusBar) SetDevice(d gateway.DeviceInfo) {
	sb.device = d
	sb.render()
}

// Refresh re-renders time-dependent segments such as the retry
// countdown.
func (sb *StatusBar) Refresh() {
	sb.render()
}

// SetFlash sets a temporary message.
func (sb *StatusBar) SetFlash(msg string) {
	sb.flash = msg
	sb.render()
}

func (sb *StatusBar) render() {
	var b strings.Builder

	state := string(sb.status.State)
	if state == "" {
		state = string(conn.Disconnected)
	}
	fmt.Fprintf(&b, " [::b]%s[-:-:-]", state)
	if sb.status.State == conn.Reconnecting && !sb.status.NextRetryAt.IsZero() {
		wait := time.Until(sb.status.NextRetryAt).Round(time.Second)
		if wait > 0 {
			fmt.Fprintf(&b, " [::d](attempt %d, retry in %s)[-:-:-]", sb.status.Attempt, wait)
		}
	}

	if sb.device.State != "" {
		fmt.Fprintf(&b, " | modem %s %s", sb.device.State, signalBars(sb.device.SignalStrength))
		if sb.device.BatteryLevel > 0 {
			fmt.Fprintf(&b, " %d%%", sb.device.BatteryLevel)
		}
	}

	if sb.flash != "" {
		fmt.Fprintf(&b, " | [orange]%s[-]", sb.flash)
	}

	sb.SetText(b.String())
}

// signalBars renders the RSSI as a bar gauge. 99 means unknown.
func signalBars(rssi int) string {
	if rssi == 99 || rssi < 0 {
		return "▁▁▁▁?"
	}
	if rssi > 31 {
		rssi = 31
	}
	filled := rssi * 4 / 31
	return strings.Repeat("▮", filled) + strings.Repeat("▯", 4-filled)
}
