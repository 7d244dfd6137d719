package tui

import (
	"context"
	"fmt"
	"slices"

	"github.com/rivo/tview"
	"github.com/veloxcase/veloxcase-tui/internal/settings"
)

// SettingsView edits the integration credentials and changes the password.
type SettingsView struct {
	app         *App
	root        *tview.Flex
	credentials *tview.Form
	password    *tview.Form
	oldPassword *tview.InputField
	newPassword *tview.InputField
	confirm     *tview.InputField
	info        *tview.TextView

	keys      []string
	fields    map[string]*tview.InputField
	rendering bool
}

// NewSettingsView builds the settings page.
func NewSettingsView(app *App) *SettingsView {
	sv := &SettingsView{app: app, fields: map[string]*tview.InputField{}}

	sv.credentials = tview.NewForm()
	sv.credentials.SetBorder(true).SetTitle(" Integration credentials ")

	sv.oldPassword = passwordField("Current password")
	sv.newPassword = passwordField("New password")
	sv.confirm = passwordField("Confirm password")
	for _, field := range []*tview.InputField{sv.oldPassword, sv.newPassword, sv.confirm} {
		field.SetChangedFunc(func(string) {
			if !sv.rendering {
				app.core.Settings.SetPasswordForm(sv.passwordForm())
				sv.render()
			}
		})
	}
	sv.password = tview.NewForm().
		AddFormItem(sv.oldPassword).
		AddFormItem(sv.newPassword).
		AddFormItem(sv.confirm).
		AddButton("Change password", sv.changePassword)
	sv.password.SetBorder(true).SetTitle(" Password ")

	sv.info = tview.NewTextView().SetDynamicColors(true)

	sv.root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(tview.NewFlex().
			AddItem(sv.credentials, 0, 3, true).
			AddItem(sv.password, 0, 2, false), 0, 1, true).
		AddItem(sv.info, 1, 0, false)

	sv.ApplyTheme(app.theme)
	return sv
}

func passwordField(label string) *tview.InputField {
	return tview.NewInputField().
		SetLabel(label + " ").
		SetFieldWidth(24).
		SetMaskCharacter('*')
}

// Primitive returns the page root.
func (sv *SettingsView) Primitive() tview.Primitive { return sv.root }

// Focus returns the primitive that should receive focus.
func (sv *SettingsView) Focus() tview.Primitive { return sv.credentials }

// ApplyTheme updates colors to match the active theme.
func (sv *SettingsView) ApplyTheme(theme Theme) {
	sv.root.SetBackgroundColor(theme.Background)
	for _, form := range []*tview.Form{sv.credentials, sv.password} {
		form.SetFieldBackgroundColor(theme.FieldBg).
			SetFieldTextColor(theme.Foreground).
			SetLabelColor(theme.SecondaryText).
			SetButtonBackgroundColor(theme.Accent).
			SetButtonTextColor(theme.SelectionText).
			SetBackgroundColor(theme.Background).
			SetBorderColor(theme.Border).
			SetTitleColor(theme.Foreground)
	}
	sv.info.SetBackgroundColor(theme.Background)
	sv.render()
}

func (sv *SettingsView) save() {
	sv.app.goAsync(func(ctx context.Context) {
		_ = sv.app.core.Settings.Save(ctx)
		sv.app.QueueUpdateDraw(sv.render)
	})
}

func (sv *SettingsView) changePassword() {
	form := sv.passwordForm()
	sv.app.goAsync(func(ctx context.Context) {
		_ = sv.app.core.Settings.ChangePassword(ctx, form.Old, form.New, form.Confirm)
		sv.app.QueueUpdateDraw(sv.render)
	})
}

func (sv *SettingsView) passwordForm() settings.PasswordForm {
	return settings.PasswordForm{
		Old:     sv.oldPassword.GetText(),
		New:     sv.newPassword.GetText(),
		Confirm: sv.confirm.GetText(),
	}
}

// rebuildCredentials recreates the form items when the key set changes.
func (sv *SettingsView) rebuildCredentials(keys []string) {
	sv.keys = keys
	sv.fields = make(map[string]*tview.InputField, len(keys))
	sv.credentials.Clear(true)

	mgr := sv.app.core.Settings
	for _, key := range keys {
		field := tview.NewInputField().
			SetLabel(settings.Label(key) + " ").
			SetFieldWidth(40)
		if settings.IsSensitive(key) {
			field.SetMaskCharacter('*')
		}
		field.SetChangedFunc(func(text string) {
			if !sv.rendering {
				mgr.Set(key, text)
			}
		})
		sv.fields[key] = field
		sv.credentials.AddFormItem(field)
	}
	if len(keys) > 0 {
		sv.credentials.AddButton("Save", sv.save)
	}
}

func (sv *SettingsView) render() {
	mgr := sv.app.core.Settings
	tags := sv.app.themeTags

	keys := mgr.Keys()
	sv.rendering = true
	if !slices.Equal(keys, sv.keys) {
		sv.rebuildCredentials(keys)
	}
	for key, field := range sv.fields {
		if v := mgr.Get(key); field.GetText() != v {
			field.SetText(v)
		}
	}

	form, errs := mgr.Password()
	for _, item := range []struct {
		field   *tview.InputField
		label   string
		value   string
		invalid bool
	}{
		{sv.oldPassword, "Current password", form.Old, errs.Old},
		{sv.newPassword, "New password", form.New, errs.New},
		{sv.confirm, "Confirm password", form.Confirm, errs.Confirm},
	} {
		if item.field.GetText() != item.value {
			item.field.SetText(item.value)
		}
		item.field.SetLabel(fieldLabel(item.label, item.invalid))
	}
	sv.rendering = false

	switch {
	case mgr.Loading():
		sv.info.SetText(fmt.Sprintf("%sWorking...[-]", tags.Accent))
	case len(keys) == 0:
		sv.info.SetText(fmt.Sprintf("%sNo credentials configured on the server.[-]", tags.SecondaryText))
	default:
		sv.info.SetText(fmt.Sprintf("%sValues whose name contains TOKEN or KEY are masked • Tab: next field[-]", tags.SecondaryText))
	}
}
