// Package tui is the terminal front end. All rendering runs on the
// tview event loop; domain state arrives exclusively through bus
// events, so views never touch the network.
package tui

import (
	"context"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/sms-terminal/smsterm/internal/bus"
	"github.com/sms-terminal/smsterm/internal/cache"
	"github.com/sms-terminal/smsterm/internal/compose"
	"github.com/sms-terminal/smsterm/internal/conn"
	"github.com/sms-terminal/smsterm/internal/notify"
	"github.com/sms-terminal/smsterm/internal/router"
	"github.com/sms-terminal/smsterm/internal/store"
	"github.com/sms-terminal/smsterm/internal/tui/ui"
	"github.com/sms-terminal/smsterm/internal/tui/views"
)

// StartView selects which page the app opens on.
type StartView string

const (
	ViewPhonebook StartView = "phonebook"
	ViewMessages  StartView = "messages"
	ViewCompose   StartView = "compose"
)

// Options configures the TUI shell.
type Options struct {
	StartView   StartView
	PhoneNumber string // contact to open for ViewMessages/ViewCompose
	Theme       string
	Limits      compose.Limits
}

// App is the main TUI application shell.
type App struct {
	app   *tview.Application
	pages *tview.Pages
	root  *tview.Flex
	theme *ui.Theme

	rt     *router.Router
	cache  *cache.Cache
	center *notify.Center
	db     *store.DB
	bus    *bus.Bus

	phonebook  *views.PhonebookList
	msgView    *views.MessageView
	composer   *views.Composer
	statusBar  *views.StatusBar
	notifBar   *views.NotificationBar
	deviceView *views.DeviceView

	opts   Options
	active string // focused conversation, "" on the phonebook page
	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI application.
func NewApp(rt *router.Router, c *cache.Cache, center *notify.Center, db *store.DB, b *bus.Bus, opts Options) *App {
	ctx, cancel := context.WithCancel(context.Background())
	if opts.Limits.GSM7 <= 0 {
		opts.Limits = compose.DefaultLimits
	}

	a := &App{
		app:        tview.NewApplication(),
		pages:      tview.NewPages(),
		theme:      ui.ByName(opts.Theme),
		rt:         rt,
		cache:      c,
		center:     center,
		db:         db,
		bus:        b,
		phonebook:  views.NewPhonebookList(),
		msgView:    views.NewMessageView(),
		composer:   views.NewComposer(opts.Limits),
		statusBar:  views.NewStatusBar(),
		notifBar:   views.NewNotificationBar(),
		deviceView: views.NewDeviceView(),
		opts:       opts,
		ctx:        ctx,
		cancel:     cancel,
	}

	a.applyTheme()
	a.setupCallbacks()
	a.setupLayout()

	return a
}

func (a *App) applyTheme() {
	tview.Styles.PrimitiveBackgroundColor = a.theme.BgColor
	tview.Styles.PrimaryTextColor = a.theme.FgColor
	tview.Styles.BorderColor = a.theme.BorderColor
	tview.Styles.TitleColor = a.theme.TitleColor
	a.statusBar.SetBackgroundColor(a.theme.StatusBarBg)
}

func (a *App) setupCallbacks() {
	a.phonebook.SetSelectedFunc(func(row, col int) {
		if phone := a.phonebook.SelectedContact(); phone != "" {
			a.openConversation(phone)
		}
	})

	a.composer.SetOnSend(func(text string) {
		if a.active == "" {
			return
		}
		a.rt.SubmitMessage(a.active, text)
	})
}

func (a *App) setupLayout() {
	convFlex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.msgView, 0, 1, false).
		AddItem(a.composer, 1, 0, false)

	a.pages.AddPage("phonebook", a.phonebook, true, true)
	a.pages.AddPage("conversation", convFlex, true, false)
	a.pages.AddPage("device", a.deviceView, true, false)

	a.root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.notifBar, 0, 0, false).
		AddItem(a.statusBar, 1, 0, false)

	a.app.SetRoot(a.root, true)
	a.app.SetInputCapture(a.handleKey)
}

func (a *App) handleKey(event *tcell.EventKey) *tcell.EventKey {
	currentPage, _ := a.pages.GetFrontPage()

	if event.Key() == tcell.KeyEscape {
		switch currentPage {
		case "conversation", "device", "rename":
			a.closeToPhonebook()
			return nil
		}
	}

	// Let text input widgets handle all keys normally.
	if _, ok := a.app.GetFocus().(*tview.InputField); ok {
		return event
	}

	if currentPage == "conversation" {
		switch {
		case event.Key() == tcell.KeyPgUp:
			row, _ := a.msgView.GetScrollOffset()
			if row == 0 {
				a.rt.RequestOlderPage(a.active)
			}
			return event
		case event.Key() == tcell.KeyRune && event.Rune() == 'i':
			a.app.SetFocus(a.composer.InputField)
			return nil
		}
	}

	if event.Key() == tcell.KeyRune {
		switch event.Rune() {
		case 'q':
			a.app.Stop()
			return nil
		case 'd':
			a.showDevice()
			return nil
		case 'n':
			a.center.Dismiss()
			a.refreshNotifications()
			return nil
		case 'N':
			a.center.DismissAll()
			a.refreshNotifications()
			return nil
		case 'r':
			if currentPage == "phonebook" {
				if phone := a.phonebook.SelectedContact(); phone != "" {
					a.showRename(phone)
				}
				return nil
			}
		case '/':
			if currentPage == "phonebook" {
				a.showFilter()
				return nil
			}
		}
	}

	return event
}

func (a *App) openConversation(phone string) {
	a.active = phone
	a.rt.FocusContact(phone)
	a.rt.RefreshDeliveryReports(phone)
	a.msgView.SetContactName(a.displayName(phone))
	a.refreshConversation()
	a.pages.SwitchToPage("conversation")
	a.app.SetFocus(a.msgView)
}

func (a *App) closeToPhonebook() {
	if name, _ := a.pages.GetFrontPage(); name == "rename" {
		a.pages.RemovePage("rename")
	}
	a.active = ""
	a.rt.Blur()
	a.pages.SwitchToPage("phonebook")
	a.app.SetFocus(a.phonebook)
}

func (a *App) showDevice() {
	timeline, err := a.db.RecentDeliveryEvents()
	if err != nil {
		a.statusBar.SetFlash("timeline: " + err.Error())
	}
	a.deviceView.Update(a.rt.Device(), timeline)
	a.pages.SwitchToPage("device")
	a.rt.RefreshDeviceInfo()
}

func (a *App) showRename(phone string) {
	input := tview.NewInputField().
		SetLabel(" New name: ").
		SetFieldWidth(30)
	if ct, ok := a.cache.Contact(phone); ok {
		input.SetText(ct.FriendlyName)
	}
	input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter {
			if name := input.GetText(); name != "" {
				a.rt.EditFriendlyName(phone, name)
			}
		}
		a.pages.RemovePage("rename")
		a.app.SetFocus(a.phonebook)
	})

	form := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(nil, 0, 1, false).
		AddItem(input, 1, 0, true).
		AddItem(nil, 0, 1, false)
	a.pages.AddPage("rename", form, true, true)
	a.app.SetFocus(input)
}

func (a *App) showFilter() {
	input := tview.NewInputField().
		SetLabel(" / ").
		SetFieldWidth(0)
	input.SetChangedFunc(a.phonebook.SetFilter)
	input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEscape {
			a.phonebook.SetFilter("")
		}
		a.root.RemoveItem(input)
		a.app.SetFocus(a.phonebook)
	})

	a.root.RemoveItem(a.statusBar)
	a.root.AddItem(input, 1, 0, true)
	a.root.AddItem(a.statusBar, 1, 0, false)
	a.app.SetFocus(input)
}

func (a *App) displayName(phone string) string {
	if ct, ok := a.cache.Contact(phone); ok && ct.FriendlyName != "" {
		return ct.FriendlyName
	}
	return phone
}

func (a *App) refreshConversation() {
	if a.active == "" {
		return
	}
	w := a.cache.Window(a.active)
	a.msgView.Update(a.cache.Messages(a.active), w.HasMore)
}

func (a *App) refreshNotifications() {
	notes := a.center.Current()
	a.notifBar.Update(notes)
	a.root.ResizeItem(a.notifBar, a.notifBar.Height(), 0)
}

// Run starts the TUI application and blocks until quit.
func (a *App) Run() error {
	a.startEventLoop()
	a.startTicker()

	a.phonebook.Update(a.cache.Contacts())
	switch a.opts.StartView {
	case ViewMessages, ViewCompose:
		if a.opts.PhoneNumber != "" {
			a.openConversation(a.opts.PhoneNumber)
			if a.opts.StartView == ViewCompose {
				a.app.SetFocus(a.composer.InputField)
			}
		}
	}

	return a.app.Run()
}

// startEventLoop forwards bus events into tview redraws.
func (a *App) startEventLoop() {
	sub := a.bus.Subscribe("", 128)
	go func() {
		defer sub.Close()
		for {
			select {
			case evt := <-sub.C():
				a.app.QueueUpdateDraw(func() { a.handleEvent(evt) })
			case <-a.ctx.Done():
				return
			}
		}
	}()
}

func (a *App) handleEvent(evt bus.Event) {
	switch evt.Kind {
	case bus.KindConnStateChanged:
		if change, ok := evt.Payload.(conn.StateChange); ok {
			a.statusBar.SetConnStatus(change.Status)
		}
	case bus.KindContactsUpdated:
		a.phonebook.Update(a.cache.Contacts())
	case bus.KindMessageMerged, bus.KindWindowExtended, bus.KindSendAccepted, bus.KindSendFailed:
		if phone, ok := evt.Payload.(string); ok && phone == a.active {
			a.refreshConversation()
		}
		a.phonebook.Update(a.cache.Contacts())
	case bus.KindDeviceStatus:
		a.statusBar.SetDevice(a.rt.Device())
		if name, _ := a.pages.GetFrontPage(); name == "device" {
			timeline, _ := a.db.RecentDeliveryEvents()
			a.deviceView.Update(a.rt.Device(), timeline)
		}
	case bus.KindNotification:
		a.refreshNotifications()
	}
}

// startTicker drives notification expiry and the reconnect countdown,
// which change with time rather than with events.
func (a *App) startTicker() {
	ticker := time.NewTicker(time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				a.app.QueueUpdateDraw(func() {
					a.refreshNotifications()
					a.statusBar.Refresh()
				})
			case <-a.ctx.Done():
				return
			}
		}
	}()
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
