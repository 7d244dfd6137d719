package tui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/veloxcase/veloxcase-tui/internal/shell"
)

// Theme is the color palette applied to every primitive.
type Theme struct {
	Name          shell.Theme
	Background    tcell.Color
	Foreground    tcell.Color
	SecondaryText tcell.Color
	HeaderBg      tcell.Color
	Border        tcell.Color
	Accent        tcell.Color
	Success       tcell.Color
	Warning       tcell.Color
	Error         tcell.Color
	FieldBg       tcell.Color
	SelectionBg   tcell.Color
	SelectionText tcell.Color
}

var (
	darkTheme = Theme{
		Name:          shell.ThemeDark,
		Background:    tcell.NewRGBColor(0x0f, 0x17, 0x2a),
		Foreground:    tcell.NewRGBColor(0xe2, 0xe8, 0xf0),
		SecondaryText: tcell.NewRGBColor(0x94, 0xa3, 0xb8),
		HeaderBg:      tcell.NewRGBColor(0x1e, 0x29, 0x3b),
		Border:        tcell.NewRGBColor(0x33, 0x41, 0x55),
		Accent:        tcell.NewRGBColor(0x81, 0x8c, 0xf8),
		Success:       tcell.NewRGBColor(0x34, 0xd3, 0x99),
		Warning:       tcell.NewRGBColor(0xfb, 0xbf, 0x24),
		Error:         tcell.NewRGBColor(0xf8, 0x71, 0x71),
		FieldBg:       tcell.NewRGBColor(0x1e, 0x29, 0x3b),
		SelectionBg:   tcell.NewRGBColor(0x43, 0x38, 0xca),
		SelectionText: tcell.NewRGBColor(0xff, 0xff, 0xff),
	}
	lightTheme = Theme{
		Name:          shell.ThemeLight,
		Background:    tcell.NewRGBColor(0xf8, 0xfa, 0xfc),
		Foreground:    tcell.NewRGBColor(0x0f, 0x17, 0x2a),
		SecondaryText: tcell.NewRGBColor(0x64, 0x74, 0x8b),
		HeaderBg:      tcell.NewRGBColor(0xe2, 0xe8, 0xf0),
		Border:        tcell.NewRGBColor(0xcb, 0xd5, 0xe1),
		Accent:        tcell.NewRGBColor(0x4f, 0x46, 0xe5),
		Success:       tcell.NewRGBColor(0x05, 0x96, 0x69),
		Warning:       tcell.NewRGBColor(0xd9, 0x77, 0x06),
		Error:         tcell.NewRGBColor(0xdc, 0x26, 0x26),
		FieldBg:       tcell.NewRGBColor(0xff, 0xff, 0xff),
		SelectionBg:   tcell.NewRGBColor(0xc7, 0xd2, 0xfe),
		SelectionText: tcell.NewRGBColor(0x0f, 0x17, 0x2a),
	}
)

// ResolveTheme returns the palette for a theme name.
func ResolveTheme(name shell.Theme) Theme {
	if name == shell.ThemeLight {
		return lightTheme
	}
	return darkTheme
}

// ThemeTags are tview color tags for a Theme, for use in dynamic-color text.
type ThemeTags struct {
	Foreground    string
	SecondaryText string
	Border        string
	Accent        string
	Success       string
	Warning       string
	Error         string
}

// NewThemeTags converts theme colors to "[#rrggbb]" tags.
func NewThemeTags(t Theme) ThemeTags {
	return ThemeTags{
		Foreground:    colorTag(t.Foreground),
		SecondaryText: colorTag(t.SecondaryText),
		Border:        colorTag(t.Border),
		Accent:        colorTag(t.Accent),
		Success:       colorTag(t.Success),
		Warning:       colorTag(t.Warning),
		Error:         colorTag(t.Error),
	}
}

func colorTag(c tcell.Color) string {
	return fmt.Sprintf("[#%06x]", c.Hex())
}

func selectionStyle(t Theme) tcell.Style {
	return tcell.StyleDefault.Background(t.SelectionBg).Foreground(t.SelectionText)
}
