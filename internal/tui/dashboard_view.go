package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/veloxcase/veloxcase-tui/internal/api"
	"github.com/veloxcase/veloxcase-tui/internal/dashboard"
)

// DashboardView is the sync screen: folder picker, issue input with a live
// preview, the results of the last sync and the counters.
type DashboardView struct {
	app       *App
	root      *tview.Flex
	stats     *tview.TextView
	repo      *tview.InputField
	folders   *tview.List
	newFolder *tview.InputField
	issue     *tview.InputField
	preview   *tview.TextView
	results   *tview.Table
	help      *tview.TextView

	// folderIDs maps list rows to folder ids.
	folderIDs []int64
	focusable []tview.Primitive
	focusIdx  int
	rendering bool

	previewKey  string
	previewText string
}

// NewDashboardView builds the dashboard page.
func NewDashboardView(app *App) *DashboardView {
	dv := &DashboardView{app: app}
	ctrl := app.core.Dashboard

	dv.stats = tview.NewTextView().SetDynamicColors(true)
	dv.stats.SetBorder(true).SetTitle(" Stats ")

	dv.repo = tview.NewInputField().
		SetLabel("Repository ").
		SetFieldWidth(10).
		SetAcceptanceFunc(tview.InputFieldInteger)
	dv.repo.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter {
			dv.applyRepo()
		}
	})

	dv.folders = tview.NewList().
		ShowSecondaryText(false).
		SetHighlightFullLine(true)
	dv.folders.SetBorder(true).SetTitle(" Folders ")
	dv.folders.SetSelectedFunc(func(index int, _, _ string, _ rune) {
		if index >= 0 && index < len(dv.folderIDs) {
			ctrl.SetSelectedFolder(dv.folderIDs[index])
			dv.render()
		}
	})

	dv.newFolder = tview.NewInputField().
		SetLabel("New folder ")
	dv.newFolder.SetChangedFunc(func(text string) {
		if !dv.rendering {
			ctrl.SetNewFolderName(text)
		}
	})
	dv.newFolder.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter {
			dv.createFolder()
		}
	})

	dv.issue = tview.NewInputField().
		SetLabel("Issue key(s) ").
		SetPlaceholder("PROJ-123 or PROJ-1, PROJ-2")
	dv.issue.SetChangedFunc(func(text string) {
		if !dv.rendering {
			ctrl.SetIssueInput(text)
			dv.render()
		}
	})
	dv.issue.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter {
			dv.synchronize()
		}
	})

	dv.preview = tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(true).
		SetWordWrap(true)
	dv.preview.SetBorder(true).SetTitle(" Preview ")

	dv.results = tview.NewTable().
		SetBorders(false).
		SetSelectable(true, false).
		SetFixed(1, 0)
	dv.results.SetBorder(true).SetTitle(" Results ")

	dv.help = tview.NewTextView().SetDynamicColors(true)

	left := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(dv.stats, 5, 0, false).
		AddItem(dv.repo, 1, 0, false).
		AddItem(dv.folders, 0, 1, true).
		AddItem(dv.newFolder, 1, 0, false)

	right := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(dv.issue, 1, 0, false).
		AddItem(dv.preview, 7, 0, false).
		AddItem(dv.results, 0, 1, false).
		AddItem(dv.help, 1, 0, false)

	dv.root = tview.NewFlex().
		AddItem(left, 0, 2, true).
		AddItem(right, 0, 3, false)
	dv.root.SetInputCapture(dv.handleKey)

	dv.focusable = []tview.Primitive{dv.issue, dv.folders, dv.newFolder, dv.repo, dv.results}

	dv.ApplyTheme(app.theme)
	return dv
}

// Primitive returns the page root.
func (dv *DashboardView) Primitive() tview.Primitive { return dv.root }

// Focus returns the primitive that should receive focus.
func (dv *DashboardView) Focus() tview.Primitive { return dv.focusable[dv.focusIdx] }

// ApplyTheme updates colors to match the active theme.
func (dv *DashboardView) ApplyTheme(theme Theme) {
	dv.root.SetBackgroundColor(theme.Background)
	for _, box := range []*tview.Box{dv.stats.Box, dv.folders.Box, dv.preview.Box, dv.results.Box} {
		box.SetBackgroundColor(theme.Background).
			SetBorderColor(theme.Border).
			SetTitleColor(theme.Foreground)
	}
	dv.help.SetBackgroundColor(theme.Background)
	for _, field := range []*tview.InputField{dv.repo, dv.newFolder, dv.issue} {
		field.SetFieldBackgroundColor(theme.FieldBg).
			SetFieldTextColor(theme.Foreground).
			SetLabelColor(theme.SecondaryText).
			SetPlaceholderTextColor(theme.SecondaryText).
			SetBackgroundColor(theme.Background)
	}
	dv.folders.SetMainTextColor(theme.Foreground).
		SetSelectedBackgroundColor(theme.SelectionBg).
		SetSelectedTextColor(theme.SelectionText)
	dv.results.SetSelectedStyle(selectionStyle(theme))
	dv.previewKey = ""
	dv.render()
}

func (dv *DashboardView) handleKey(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyTab:
		dv.focusIdx = (dv.focusIdx + 1) % len(dv.focusable)
		dv.app.app.SetFocus(dv.Focus())
		return nil
	case tcell.KeyBacktab:
		dv.focusIdx = (dv.focusIdx + len(dv.focusable) - 1) % len(dv.focusable)
		dv.app.app.SetFocus(dv.Focus())
		return nil
	}
	return event
}

func (dv *DashboardView) applyRepo() {
	id, err := strconv.ParseInt(strings.TrimSpace(dv.repo.GetText()), 10, 64)
	if err != nil || id <= 0 {
		dv.app.core.Toasts.Error("Enter a valid repository id.")
		dv.render()
		return
	}
	dv.app.core.Dashboard.SetRepoID(id)
	dv.render()
	dv.app.goAsync(func(ctx context.Context) {
		_ = dv.app.core.Dashboard.FetchFolders(ctx)
		dv.app.QueueUpdateDraw(dv.render)
	})
}

func (dv *DashboardView) createFolder() {
	name := dv.newFolder.GetText()
	dv.app.goAsync(func(ctx context.Context) {
		_ = dv.app.core.Dashboard.CreateFolder(ctx, name)
		dv.app.QueueUpdateDraw(dv.render)
	})
}

func (dv *DashboardView) synchronize() {
	dv.app.goAsync(func(ctx context.Context) {
		_, _ = dv.app.core.Dashboard.Synchronize(ctx)
		dv.app.QueueUpdateDraw(dv.render)
	})
	dv.render()
}

// render copies the controller state into the widgets.
func (dv *DashboardView) render() {
	state := dv.app.core.Dashboard.State()
	tags := dv.app.themeTags

	dv.rendering = true
	if dv.issue.GetText() != state.IssueInput {
		dv.issue.SetText(state.IssueInput)
	}
	if dv.newFolder.GetText() != state.NewFolderName {
		dv.newFolder.SetText(state.NewFolderName)
	}
	repoText := ""
	if state.RepoID > 0 {
		repoText = strconv.FormatInt(state.RepoID, 10)
	}
	if dv.app.app.GetFocus() != dv.repo && dv.repo.GetText() != repoText {
		dv.repo.SetText(repoText)
	}
	dv.rendering = false

	dv.issue.SetLabel(fieldLabel("Issue key(s)", state.Errors.IssueInput))
	dv.newFolder.SetLabel(fieldLabel("New folder", state.Errors.NewFolderName))

	dv.stats.SetText(fmt.Sprintf("%sCases[-]   %d\n%sImages[-]  %d\n%sToday[-]   %d",
		tags.SecondaryText, state.Stats.TotalCases,
		tags.SecondaryText, state.Stats.TotalImages,
		tags.SecondaryText, state.Stats.TodaySyncs))

	dv.renderFolders(state)
	dv.renderPreview(state)
	dv.renderResults(state)

	status := fmt.Sprintf("%sEnter: sync • Tab: next field • Enter on a folder: select[-]", tags.SecondaryText)
	if state.Syncing {
		status = fmt.Sprintf("%s⏳ Synchronizing...[-]", tags.Accent)
	}
	dv.help.SetText(status)

	dv.app.syncDuplicateModal(state)
}

func (dv *DashboardView) renderFolders(state dashboard.State) {
	title := " Folders "
	if state.FoldersLoading {
		title = " Folders (loading) "
	}
	if state.Errors.Folder {
		title = " Folders (!) pick a target "
		dv.folders.SetBorderColor(dv.app.theme.Error)
	} else {
		dv.folders.SetBorderColor(dv.app.theme.Border)
	}
	dv.folders.SetTitle(title)

	current := dv.folders.GetCurrentItem()
	dv.folders.Clear()
	dv.folderIDs = dv.folderIDs[:0]
	names := folderNames(state.Folders)
	for i, f := range state.Folders {
		marker := "  "
		if f.ID == state.SelectedFolder {
			marker = "● "
			current = i
		}
		dv.folders.AddItem(marker+tview.Escape(names[i]), "", 0, nil)
		dv.folderIDs = append(dv.folderIDs, f.ID)
	}
	if current >= 0 && current < len(state.Folders) {
		dv.folders.SetCurrentItem(current)
	}
}

// folderNames returns display names, with the parent name prefixed for
// nested folders.
func folderNames(folders []api.Folder) []string {
	byID := make(map[int64]string, len(folders))
	for _, f := range folders {
		byID[f.ID] = f.Name
	}
	names := make([]string, len(folders))
	for i, f := range folders {
		names[i] = f.Name
		if f.ParentID != nil {
			if parent, ok := byID[*f.ParentID]; ok {
				names[i] = parent + " / " + f.Name
			}
		}
	}
	return names
}

func (dv *DashboardView) renderPreview(state dashboard.State) {
	tags := dv.app.themeTags
	switch {
	case state.PreviewLoading:
		dv.preview.SetText(fmt.Sprintf("%sLoading preview...[-]", tags.SecondaryText))
	case state.Preview != nil:
		if state.Preview.Key != dv.previewKey {
			_, _, width, _ := dv.preview.GetInnerRect()
			dv.previewKey = state.Preview.Key
			dv.previewText = renderMarkdown(previewMarkdown(*state.Preview), dv.app.theme.Name, width)
		}
		dv.preview.SetText(dv.previewText)
	default:
		dv.previewKey = ""
		dv.preview.SetText(fmt.Sprintf("%sType a single issue key to see its summary.[-]", tags.SecondaryText))
	}
}

func (dv *DashboardView) renderResults(state dashboard.State) {
	theme := dv.app.theme
	dv.results.Clear()
	for col, header := range []string{"Issue", "Status", "Case / message", "Images"} {
		dv.results.SetCell(0, col, tview.NewTableCell(header).
			SetTextColor(theme.SecondaryText).
			SetSelectable(false))
	}
	for i, r := range state.Results {
		row := i + 1
		dv.results.SetCell(row, 0, tview.NewTableCell(tview.Escape(r.Task)).SetTextColor(theme.Foreground))
		dv.results.SetCell(row, 1, tview.NewTableCell(r.Status).SetTextColor(statusColor(theme, r.Status)))
		dv.results.SetCell(row, 2, tview.NewTableCell(tview.Escape(r.Detail())).
			SetTextColor(theme.Foreground).
			SetExpansion(1))
		images := ""
		if r.Status == api.StatusSuccess {
			images = strconv.Itoa(r.Images)
		}
		dv.results.SetCell(row, 3, tview.NewTableCell(images).
			SetTextColor(theme.SecondaryText).
			SetAlign(tview.AlignRight))
	}
}
