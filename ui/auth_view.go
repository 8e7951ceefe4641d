package ui

import (
	"context"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"gochat/session"
)

// showLoginView replaces the window content with the login form. notice is
// shown above the form, e.g. after a successful signup.
func (c *controller) showLoginView(notice string) {
	username := widget.NewEntry()
	username.SetPlaceHolder("Username")
	password := widget.NewPasswordEntry()
	password.SetPlaceHolder("Password")

	info := widget.NewLabel(notice)
	info.Alignment = fyne.TextAlignCenter
	if notice == "" {
		info.Hide()
	}

	errorLabel := widget.NewLabel("")
	errorLabel.Alignment = fyne.TextAlignCenter
	errorLabel.Importance = widget.DangerImportance
	errorLabel.Hide()

	showError := func(message string) {
		fyne.Do(func() {
			errorLabel.SetText(message)
			errorLabel.Show()
		})
	}

	submit := func() {
		go c.login(strings.TrimSpace(username.Text), password.Text, showError)
	}
	password.OnSubmitted = func(string) { submit() }

	loginBtn := widget.NewButton("Log in", submit)
	loginBtn.Importance = widget.HighImportance
	signupBtn := widget.NewButton("Create an account", func() {
		c.showSignupView()
	})

	form := container.NewVBox(
		widget.NewLabelWithStyle("GoChat", fyne.TextAlignCenter, fyne.TextStyle{Bold: true}),
		info,
		username,
		password,
		errorLabel,
		loginBtn,
		signupBtn,
	)
	if c.hasServerPicker() {
		form.Add(widget.NewButton("LAN servers", c.showServersDialog))
	}
	c.window.SetContent(container.NewCenter(container.NewGridWrap(fyne.NewSize(320, 0), form)))
	c.window.Canvas().Focus(username)
}

func (c *controller) login(username, password string, showError func(string)) {
	if username == "" || password == "" {
		showError("Username and password are required")
		return
	}

	result := c.client.Post(c.ctx, "/login", map[string]string{
		"username": username,
		"password": password,
	})
	if !result.Success {
		showError(loginFailureText(result.Error))
		return
	}

	var login struct {
		Token  string `json:"token"`
		UserID int64  `json:"user_id"`
	}
	if err := result.Decode(&login); err != nil {
		showError("Unexpected server response")
		return
	}

	if err := c.sessions.Begin(session.Session{
		Username: username,
		UserID:   login.UserID,
		Token:    login.Token,
	}); err != nil {
		showError(err.Error())
		return
	}

	fyne.Do(func() {
		c.showMainView()
	})
	c.startLoops()
}

func (c *controller) showSignupView() {
	username := widget.NewEntry()
	username.SetPlaceHolder("Username (at least 3 characters)")
	password := widget.NewPasswordEntry()
	password.SetPlaceHolder("Password (at least 4 characters)")
	confirm := widget.NewPasswordEntry()
	confirm.SetPlaceHolder("Confirm password")

	errorLabel := widget.NewLabel("")
	errorLabel.Alignment = fyne.TextAlignCenter
	errorLabel.Importance = widget.DangerImportance
	errorLabel.Hide()

	showError := func(message string) {
		fyne.Do(func() {
			errorLabel.SetText(message)
			errorLabel.Show()
		})
	}

	submit := func() {
		name := strings.TrimSpace(username.Text)
		if password.Text != confirm.Text {
			showError("Passwords do not match")
			return
		}
		go c.signup(name, password.Text, showError)
	}
	confirm.OnSubmitted = func(string) { submit() }

	signupBtn := widget.NewButton("Sign up", submit)
	signupBtn.Importance = widget.HighImportance
	backBtn := widget.NewButton("Back to login", func() {
		c.showLoginView("")
	})

	form := container.NewVBox(
		widget.NewLabelWithStyle("Create account", fyne.TextAlignCenter, fyne.TextStyle{Bold: true}),
		username,
		password,
		confirm,
		errorLabel,
		signupBtn,
		backBtn,
	)
	c.window.SetContent(container.NewCenter(container.NewGridWrap(fyne.NewSize(320, 0), form)))
	c.window.Canvas().Focus(username)
}

func (c *controller) signup(username, password string, showError func(string)) {
	result := c.client.Post(context.Background(), "/signup", map[string]string{
		"username": username,
		"password": password,
	})
	if !result.Success {
		showError(signupFailureText(result.Error))
		return
	}
	fyne.Do(func() {
		c.showLoginView("Account created, log in to continue")
	})
}
