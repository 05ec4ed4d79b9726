package ui

import "github.com/gdamore/tcell/v2"

// Theme holds color constants for the TUI.
type Theme struct {
	BgColor          tcell.Color
	FgColor          tcell.Color
	BorderColor      tcell.Color
	BorderFocusColor tcell.Color
	TableHeaderFg    tcell.Color
	TableCursorFg    tcell.Color
	TableCursorBg    tcell.Color
	TitleColor       tcell.Color
	OutboundColor    tcell.Color
	InboundColor     tcell.Color
	PendingColor     tcell.Color
	FailedColor      tcell.Color
	NotifyColor      tcell.Color
	StatusBarBg      tcell.Color
}

// DefaultTheme returns the dark theme.
func DefaultTheme() *Theme {
	return &Theme{
		BgColor:          tcell.ColorBlack,
		FgColor:          tcell.ColorCadetBlue,
		BorderColor:      tcell.ColorDodgerBlue,
		BorderFocusColor: tcell.ColorLightSkyBlue,
		TableHeaderFg:    tcell.ColorWhite,
		TableCursorFg:    tcell.ColorBlack,
		TableCursorBg:    tcell.ColorAqua,
		TitleColor:       tcell.ColorFuchsia,
		OutboundColor:    tcell.ColorLightGreen,
		InboundColor:     tcell.ColorWhite,
		PendingColor:     tcell.ColorGray,
		FailedColor:      tcell.ColorOrangeRed,
		NotifyColor:      tcell.ColorNavajoWhite,
		StatusBarBg:      tcell.ColorDarkSlateGray,
	}
}

// LightTheme returns a theme for light terminals.
func LightTheme() *Theme {
	return &Theme{
		BgColor:          tcell.ColorWhite,
		FgColor:          tcell.ColorBlack,
		BorderColor:      tcell.ColorDarkBlue,
		BorderFocusColor: tcell.ColorBlue,
		TableHeaderFg:    tcell.ColorBlack,
		TableCursorFg:    tcell.ColorWhite,
		TableCursorBg:    tcell.ColorDarkBlue,
		TitleColor:       tcell.ColorDarkMagenta,
		OutboundColor:    tcell.ColorDarkGreen,
		InboundColor:     tcell.ColorBlack,
		PendingColor:     tcell.ColorGray,
		FailedColor:      tcell.ColorRed,
		NotifyColor:      tcell.ColorDarkOrange,
		StatusBarBg:      tcell.ColorLightGray,
	}
}

// ByName resolves a theme from the config value, falling back to the
// dark default.
func ByName(name string) *Theme {
	if name == "light" {
		return LightTheme()
	}
	return DefaultTheme()
}
