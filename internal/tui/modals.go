package tui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/veloxcase/veloxcase-tui/internal/api"
)

const (
	pageDuplicate = "duplicate"
	pageActivity  = "activity"
	pageContact   = "contact"
)

// DuplicateModal asks whether an existing case should be overwritten.
type DuplicateModal struct {
	app   *App
	modal *tview.Modal
	task  string
}

const (
	buttonOverwrite = "Overwrite"
	buttonCancel    = "Cancel"
)

// NewDuplicateModal creates the duplicate confirmation modal.
func NewDuplicateModal(app *App) *DuplicateModal {
	dm := &DuplicateModal{app: app}
	dm.modal = tview.NewModal().
		AddButtons([]string{buttonOverwrite, buttonCancel}).
		SetDoneFunc(func(_ int, label string) {
			if label == buttonOverwrite {
				dm.confirm()
				return
			}
			dm.cancel()
		})
	dm.ApplyTheme(app.theme)
	return dm
}

// ApplyTheme updates modal colors to match the active theme.
func (dm *DuplicateModal) ApplyTheme(theme Theme) {
	dm.modal.SetBackgroundColor(theme.HeaderBg).
		SetTextColor(theme.Foreground).
		SetButtonBackgroundColor(theme.Accent).
		SetButtonTextColor(theme.SelectionText)
	dm.modal.SetBorderColor(theme.Warning)
}

// Show displays the modal for a paused sync.
func (dm *DuplicateModal) Show(dup api.SyncResult) {
	dm.task = dup.Task
	text := fmt.Sprintf("⚠️ A test case already exists for %s.\n\n%s\n\nOverwrite it with the current issue content?",
		dup.Task, dup.Detail())
	dm.modal.SetText(text)
	dm.modal.SetFocus(0)
	if !dm.app.pages.HasPage(pageDuplicate) {
		dm.app.pages.AddPage(pageDuplicate, dm.modal, true, true)
	}
	dm.app.pages.ShowPage(pageDuplicate)
	dm.app.pages.SendToFront(pageDuplicate)
	dm.app.app.SetFocus(dm.modal)
}

// Visible reports whether the modal is on screen.
func (dm *DuplicateModal) Visible() bool {
	return dm.app.pages.HasPage(pageDuplicate)
}

// Hide removes the modal.
func (dm *DuplicateModal) Hide() {
	if !dm.Visible() {
		return
	}
	dm.app.pages.RemovePage(pageDuplicate)
	dm.app.focusCurrentView()
}

func (dm *DuplicateModal) confirm() {
	dm.Hide()
	dm.app.forceUpdate()
}

func (dm *DuplicateModal) cancel() {
	dm.Hide()
	dm.app.core.Dashboard.DismissDuplicate()
}

// HandleKey handles y/n shortcuts and passes everything else to the buttons.
func (dm *DuplicateModal) HandleKey(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyEscape:
		dm.cancel()
		return nil
	case tcell.KeyRune:
		switch event.Rune() {
		case 'y', 'Y':
			dm.confirm()
			return nil
		case 'n', 'N':
			dm.cancel()
			return nil
		}
	}
	return event
}

// TextModal is a scrollable read-only overlay with a title and help line.
type TextModal struct {
	app          *App
	page         string
	modal        *tview.Flex
	modalContent *tview.Flex
	textView     *tview.TextView
	helpView     *tview.TextView
}

// NewTextModal creates a modal registered under page.
func NewTextModal(app *App, page, title string, width, height int) *TextModal {
	tm := &TextModal{app: app, page: page}

	tm.textView = tview.NewTextView()
	tm.textView.SetDynamicColors(true).
		SetWrap(true).
		SetWordWrap(true).
		SetScrollable(true)
	tm.textView.SetBorder(true).
		SetTitle(fmt.Sprintf(" %s ", title))

	tm.helpView = tview.NewTextView()
	tm.helpView.SetText("Esc: close • ↑↓/j/k: scroll")
	tm.helpView.SetTextAlign(tview.AlignCenter)

	tm.modalContent = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(tm.textView, 0, 1, true).
		AddItem(tm.helpView, 1, 0, false)
	tm.modalContent.SetBorderPadding(0, 0, 1, 1)

	tm.modal = tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().
			SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(tm.modalContent, height, 0, true).
			AddItem(nil, 0, 1, false), width, 0, true).
		AddItem(nil, 0, 1, false)

	tm.ApplyTheme(app.theme)
	return tm
}

// ApplyTheme updates modal colors to match the active theme.
func (tm *TextModal) ApplyTheme(theme Theme) {
	tm.textView.SetTextColor(theme.Foreground).
		SetBackgroundColor(theme.HeaderBg)
	tm.textView.SetBorderColor(theme.Accent).
		SetTitleColor(theme.Foreground)
	tm.helpView.SetTextColor(theme.SecondaryText).
		SetBackgroundColor(theme.HeaderBg)
	tm.modalContent.SetBackgroundColor(theme.HeaderBg)
	tm.modal.SetBackgroundColor(theme.Background)
}

// Show displays text, which may contain color tags.
func (tm *TextModal) Show(text string) {
	tm.textView.SetText(text).ScrollToBeginning()
	if !tm.app.pages.HasPage(tm.page) {
		tm.app.pages.AddPage(tm.page, tm.modal, true, true)
	}
	tm.app.pages.ShowPage(tm.page)
	tm.app.pages.SendToFront(tm.page)
	tm.app.app.SetFocus(tm.textView)
}

// Text returns the displayed text without color tags.
func (tm *TextModal) Text() string {
	return tm.textView.GetText(true)
}

// Visible reports whether the modal is on screen.
func (tm *TextModal) Visible() bool {
	return tm.app.pages.HasPage(tm.page)
}

// Hide removes the modal.
func (tm *TextModal) Hide() {
	if !tm.Visible() {
		return
	}
	tm.app.pages.RemovePage(tm.page)
	tm.app.focusCurrentView()
}

// HandleKey closes on Esc or q and scrolls otherwise.
func (tm *TextModal) HandleKey(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyEscape, tcell.KeyEnter:
		tm.Hide()
		return nil
	case tcell.KeyRune:
		switch event.Rune() {
		case 'q':
			tm.Hide()
			return nil
		case 'j':
			row, col := tm.textView.GetScrollOffset()
			tm.textView.ScrollTo(row+1, col)
			return nil
		case 'k':
			row, col := tm.textView.GetScrollOffset()
			if row > 0 {
				tm.textView.ScrollTo(row-1, col)
			}
			return nil
		}
	}
	return event
}
