package views

import (
	"fmt"

	"github.com/rivo/tview"
	"github.com/sms-terminal/smsterm/internal/gateway"
	"github.com/sms-terminal/smsterm/internal/store"
)

// DeviceView shows the modem snapshot and the recent delivery report
// timeline.
type DeviceView struct {
	*tview.TextView
}

// NewDeviceView creates the device info page.
func NewDeviceView() *DeviceView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true).SetTitle(" Device ")
	return &DeviceView{TextView: tv}
}

// Update renders the snapshot and timeline.
func (dv *DeviceView) Update(info gateway.DeviceInfo, timeline []store.DeliveryEvent) {
	dv.Clear()

	state := info.State
	if state == "" {
		state = "unknown"
	}
	fmt.Fprintf(dv, " [::b]State:[-:-:-]   %s\n", state)
	if info.Model != "" {
		fmt.Fprintf(dv, " [::b]Model:[-:-:-]   %s\n", info.Model)
	}
	fmt.Fprintf(dv, " [::b]Signal:[-:-:-]  %s (rssi %d)\n", signalBars(info.SignalStrength), info.SignalStrength)
	if info.BatteryLevel > 0 {
		fmt.Fprintf(dv, " [::b]Battery:[-:-:-] %d%%\n", info.BatteryLevel)
	}
	if info.PartLimit > 0 {
		fmt.Fprintf(dv, " [::b]Part limit:[-:-:-] %d\n", info.PartLimit)
	}

	if len(timeline) > 0 {
		fmt.Fprint(dv, "\n [::b]Recent delivery reports[-:-:-]\n")
		for _, ev := range timeline {
			fmt.Fprintf(dv, "  %s  %s  %s\n", formatTimestamp(ev.ReportedAt), ev.Status, ev.MessageID)
		}
	}
}
