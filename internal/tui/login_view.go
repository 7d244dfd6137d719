package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/rivo/tview"
	"github.com/veloxcase/veloxcase-tui/internal/session"
)

const (
	loginButtonSubmit = 0
	loginButtonSwitch = 1
	loginButtonForgot = 2
)

// LoginView is the sign-in and registration form.
type LoginView struct {
	app      *App
	root     *tview.Flex
	title    *tview.TextView
	form     *tview.Form
	username *tview.InputField
	password *tview.InputField
	show     *tview.Checkbox
	strength *tview.TextView

	// rendering is set while render writes field values so the change
	// handlers do not echo them back into the session.
	rendering bool
}

// NewLoginView builds the login page.
func NewLoginView(app *App) *LoginView {
	lv := &LoginView{app: app}
	sess := app.core.Session

	lv.title = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)

	lv.username = tview.NewInputField().
		SetLabel("Username ").
		SetFieldWidth(32)
	lv.username.SetChangedFunc(func(text string) {
		if !lv.rendering {
			sess.SetUsername(text)
		}
	})

	lv.password = tview.NewInputField().
		SetLabel("Password ").
		SetFieldWidth(32).
		SetMaskCharacter('*')
	lv.password.SetChangedFunc(func(text string) {
		if lv.rendering {
			return
		}
		sess.SetPassword(text)
		lv.renderStrength()
	})

	lv.show = tview.NewCheckbox().
		SetLabel("Show password ")
	lv.show.SetChangedFunc(func(bool) {
		if !lv.rendering {
			sess.ToggleShowPassword()
			lv.render()
		}
	})

	lv.form = tview.NewForm().
		AddFormItem(lv.username).
		AddFormItem(lv.password).
		AddFormItem(lv.show).
		AddButton("Sign in", lv.submit).
		AddButton("Create an account", lv.switchMode).
		AddButton("Forgot password?", func() {
			sess.ForgotPassword()
			app.showContact()
		})
	lv.form.SetBorder(true)
	lv.form.SetButtonsAlign(tview.AlignCenter)

	lv.strength = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)

	inner := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(lv.title, 3, 0, false).
		AddItem(lv.form, 11, 0, true).
		AddItem(lv.strength, 1, 0, false)

	lv.root = tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().
			SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(inner, 15, 0, true).
			AddItem(nil, 0, 1, false), 56, 0, true).
		AddItem(nil, 0, 1, false)

	lv.ApplyTheme(app.theme)
	lv.render()
	return lv
}

// Primitive returns the page root.
func (lv *LoginView) Primitive() tview.Primitive { return lv.root }

// Focus returns the primitive that should receive focus.
func (lv *LoginView) Focus() tview.Primitive { return lv.form }

// ApplyTheme updates colors to match the active theme.
func (lv *LoginView) ApplyTheme(theme Theme) {
	lv.root.SetBackgroundColor(theme.Background)
	lv.title.SetBackgroundColor(theme.Background)
	lv.strength.SetBackgroundColor(theme.Background)
	lv.form.SetBackgroundColor(theme.HeaderBg)
	lv.form.SetBorderColor(theme.Border)
	lv.form.SetFieldBackgroundColor(theme.FieldBg).
		SetFieldTextColor(theme.Foreground).
		SetLabelColor(theme.SecondaryText).
		SetButtonBackgroundColor(theme.Accent).
		SetButtonTextColor(theme.SelectionText)
	lv.render()
}

func (lv *LoginView) switchMode() {
	sess := lv.app.core.Session
	sess.SetRegistering(!sess.Form().Registering)
	lv.render()
}

func (lv *LoginView) submit() {
	lv.app.goAsync(func(ctx context.Context) {
		// Errors surface as toasts and field flags.
		_ = lv.app.core.Session.Submit(ctx)
		lv.app.QueueUpdateDraw(lv.render)
	})
	lv.render()
}

// render copies the session form into the widgets.
func (lv *LoginView) render() {
	form := lv.app.core.Session.Form()
	tags := lv.app.themeTags

	lv.rendering = true
	if lv.username.GetText() != form.Username {
		lv.username.SetText(form.Username)
	}
	if lv.password.GetText() != form.Password {
		lv.password.SetText(form.Password)
	}
	if lv.show.IsChecked() != form.ShowPassword {
		lv.show.SetChecked(form.ShowPassword)
	}
	lv.rendering = false

	if form.ShowPassword {
		lv.password.SetMaskCharacter(0)
	} else {
		lv.password.SetMaskCharacter('*')
	}

	heading, submit, other := "Sign in to VeloxCase", "Sign in", "Create an account"
	if form.Registering {
		heading, submit, other = "Create a VeloxCase account", "Register", "I already have an account"
	}
	if form.Loading {
		submit = "Please wait..."
	}
	lv.title.SetText(fmt.Sprintf("\n%s%s[-]", tags.Accent, heading))
	lv.form.GetButton(loginButtonSubmit).SetLabel(submit)
	lv.form.GetButton(loginButtonSwitch).SetLabel(other)
	lv.form.GetButton(loginButtonForgot).SetDisabled(form.Registering)

	lv.username.SetLabel(fieldLabel("Username", form.Errors.Username))
	lv.password.SetLabel(fieldLabel("Password", form.Errors.Password))
	lv.renderStrength()
}

func (lv *LoginView) renderStrength() {
	form := lv.app.core.Session.Form()
	if !form.Registering || form.Password == "" {
		lv.strength.SetText("")
		return
	}
	lv.strength.SetText(strengthMeter(session.StrengthScore(form.Password), lv.app.themeTags))
}

// strengthMeter draws a four-segment bar for a 0-100 score.
func strengthMeter(score int, tags ThemeTags) string {
	filled := score / 25
	color, label := tags.Error, "weak"
	switch {
	case score >= 100:
		color, label = tags.Success, "strong"
	case score >= 50:
		color, label = tags.Warning, "fair"
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", 4-filled)
	return fmt.Sprintf("%s%s[-] %s%s[-]", color, bar, tags.SecondaryText, label)
}

// fieldLabel marks a form label whose value failed validation.
func fieldLabel(label string, invalid bool) string {
	if invalid {
		return label + " (!) "
	}
	return label + " "
}
