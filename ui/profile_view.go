package ui

import (
	"net/url"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"gochat/models"
)

// showProfileDialog loads the caller's profile and lets them edit the
// display name, status line, and avatar reference.
func (c *controller) showProfileDialog() {
	go func() {
		result := c.client.Get(c.ctx, "/profile", url.Values{"username": {c.me()}})
		if !result.Success {
			c.statusf("Loading profile failed: %s", result.Error)
			return
		}
		var profile models.Profile
		if err := result.DecodeData(&profile); err != nil {
			c.statusf("Loading profile failed: %v", err)
			return
		}
		fyne.Do(func() {
			c.showProfileForm(profile)
		})
	}()
}

func (c *controller) showProfileForm(profile models.Profile) {
	displayName := widget.NewEntry()
	displayName.SetText(profile.DisplayName)
	status := widget.NewEntry()
	status.SetText(profile.Status)
	avatar := widget.NewEntry()
	avatar.SetText(profile.Avatar)
	avatar.SetPlaceHolder("Image URL or emoji")

	items := []*widget.FormItem{
		widget.NewFormItem("Display name", displayName),
		widget.NewFormItem("Status", status),
		widget.NewFormItem("Avatar", avatar),
	}

	dialog.ShowForm("Edit profile", "Save", "Cancel", items, func(save bool) {
		if !save {
			return
		}
		go c.saveProfile(models.Profile{
			Username:    profile.Username,
			DisplayName: displayName.Text,
			Status:      status.Text,
			Avatar:      avatar.Text,
		})
	}, c.window)
}

func (c *controller) saveProfile(profile models.Profile) {
	result := c.client.Put(c.ctx, "/profile", map[string]string{
		"display_name": profile.DisplayName,
		"status":       profile.Status,
		"avatar":       profile.Avatar,
	})
	if !result.Success {
		c.statusf("Saving profile failed: %s", result.Error)
		return
	}
	c.setStatus("Profile saved")
}
