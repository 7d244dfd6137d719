package tui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/veloxcase/veloxcase-tui/internal/api"
)

// HistoryView lists past synchronizations.
type HistoryView struct {
	app   *App
	root  *tview.Flex
	table *tview.Table
	info  *tview.TextView
}

// NewHistoryView builds the history page.
func NewHistoryView(app *App) *HistoryView {
	hv := &HistoryView{app: app}

	hv.table = tview.NewTable().
		SetSelectable(true, false).
		SetFixed(1, 0)
	hv.table.SetBorder(true).SetTitle(" Sync history ")

	hv.info = tview.NewTextView().SetDynamicColors(true)

	hv.root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(hv.table, 0, 1, true).
		AddItem(hv.info, 1, 0, false)

	hv.ApplyTheme(app.theme)
	return hv
}

// Primitive returns the page root.
func (hv *HistoryView) Primitive() tview.Primitive { return hv.root }

// Focus returns the primitive that should receive focus.
func (hv *HistoryView) Focus() tview.Primitive { return hv.table }

// ApplyTheme updates colors to match the active theme.
func (hv *HistoryView) ApplyTheme(theme Theme) {
	hv.root.SetBackgroundColor(theme.Background)
	hv.table.SetBackgroundColor(theme.Background).
		SetBorderColor(theme.Border).
		SetTitleColor(theme.Foreground)
	hv.table.SetSelectedStyle(selectionStyle(theme))
	hv.info.SetBackgroundColor(theme.Background)
	hv.render()
}

func (hv *HistoryView) render() {
	theme := hv.app.theme
	tags := hv.app.themeTags
	entries := hv.app.core.History.Entries()

	hv.table.Clear()
	for col, header := range []string{"Date", "Issue", "Case", "Status"} {
		hv.table.SetCell(0, col, tview.NewTableCell(header).
			SetTextColor(theme.SecondaryText).
			SetSelectable(false))
	}
	for i, e := range entries {
		row := i + 1
		hv.table.SetCell(row, 0, tview.NewTableCell(tview.Escape(e.Date)).SetTextColor(theme.SecondaryText))
		hv.table.SetCell(row, 1, tview.NewTableCell(tview.Escape(e.Task)).SetTextColor(theme.Foreground))
		hv.table.SetCell(row, 2, tview.NewTableCell(tview.Escape(e.Case)).
			SetTextColor(theme.Foreground).
			SetExpansion(1))
		hv.table.SetCell(row, 3, tview.NewTableCell(tview.Escape(e.Status)).
			SetTextColor(statusColor(theme, e.Status)))
	}

	switch {
	case hv.app.core.History.Loading():
		hv.info.SetText(fmt.Sprintf("%sLoading history...[-]", tags.Accent))
	case len(entries) == 0:
		hv.info.SetText(fmt.Sprintf("%sNo synchronizations yet. Ctrl+R: refresh[-]", tags.SecondaryText))
	default:
		hv.info.SetText(fmt.Sprintf("%s%d entries • Ctrl+R: refresh[-]", tags.SecondaryText, len(entries)))
	}
}

func statusColor(theme Theme, status string) tcell.Color {
	switch status {
	case api.StatusSuccess:
		return theme.Success
	case api.StatusDuplicate:
		return theme.Warning
	default:
		return theme.Error
	}
}
