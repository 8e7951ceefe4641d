package ui

import (
	"fmt"
	"net/url"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"gochat/models"
)

func (c *controller) buildFriendsPane() fyne.CanvasObject {
	c.friendsList = widget.NewList(
		func() int {
			c.friendsMu.RLock()
			defer c.friendsMu.RUnlock()
			return len(c.friends)
		},
		func() fyne.CanvasObject {
			name := widget.NewLabel("friend")
			name.TextStyle = fyne.TextStyle{Bold: true}
			status := widget.NewLabel("")
			status.Importance = widget.LowImportance
			return container.NewVBox(name, status)
		},
		func(id widget.ListItemID, item fyne.CanvasObject) {
			c.friendsMu.RLock()
			defer c.friendsMu.RUnlock()
			if id < 0 || id >= len(c.friends) {
				return
			}
			friend := c.friends[id]
			box := item.(*fyne.Container)
			box.Objects[0].(*widget.Label).SetText(friend.FriendName)
			box.Objects[1].(*widget.Label).SetText(friendStatusText(friend))
		},
	)
	c.friendsList.OnSelected = func(id widget.ListItemID) {
		c.friendsMu.RLock()
		var peer string
		if id >= 0 && id < len(c.friends) {
			peer = c.friends[id].FriendName
		}
		c.friendsMu.RUnlock()
		if peer != "" {
			c.openConversation(peer)
		}
	}

	addBtn := widget.NewButtonWithIcon("Add friend", theme.ContentAddIcon(), c.showAddFriendDialog)
	removeBtn := widget.NewButtonWithIcon("Remove", theme.DeleteIcon(), c.removeSelectedFriend)
	toolbar := container.NewHBox(addBtn, removeBtn)

	return container.NewBorder(toolbar, nil, nil, nil, c.friendsList)
}

// refreshFriends reloads the friends list from the server and caches it in
// the session file for the next offline start.
func (c *controller) refreshFriends() {
	userID := c.sessions.Current().UserID
	if userID <= 0 {
		return
	}
	result := c.client.Get(c.ctx, "/friend", url.Values{"user_id": {fmt.Sprint(userID)}})
	if !result.Success {
		c.statusf("Loading friends failed: %s", result.Error)
		return
	}
	var friends []models.Friend
	if err := result.DecodeData(&friends); err != nil {
		c.statusf("Loading friends failed: %v", err)
		return
	}

	c.friendsMu.Lock()
	c.friends = friends
	c.friendsMu.Unlock()

	if err := c.sessions.CacheFriends(friends); err != nil {
		c.statusf("Caching friends failed: %v", err)
	}
	fyne.Do(func() {
		if c.friendsList != nil {
			c.friendsList.Refresh()
		}
	})
}

// showAddFriendDialog searches accounts by username substring and adds the
// picked one as a friend.
func (c *controller) showAddFriendDialog() {
	search := widget.NewEntry()
	search.SetPlaceHolder("Search by username")

	var matches []models.User
	results := widget.NewList(
		func() int { return len(matches) },
		func() fyne.CanvasObject { return widget.NewLabel("user") },
		func(id widget.ListItemID, item fyne.CanvasObject) {
			if id >= 0 && id < len(matches) {
				item.(*widget.Label).SetText(matches[id].Username)
			}
		},
	)

	content := container.NewBorder(search, nil, nil, nil, results)
	d := dialog.NewCustom("Add friend", "Close", container.NewGridWrap(fyne.NewSize(300, 360), content), c.window)

	runSearch := func(filter string) {
		go func() {
			result := c.client.Get(c.ctx, "/user", url.Values{"username": {filter}})
			if !result.Success {
				c.statusf("Search failed: %s", result.Error)
				return
			}
			var users []models.User
			if err := result.Decode(&users); err != nil {
				c.statusf("Search failed: %v", err)
				return
			}
			fyne.Do(func() {
				matches = filterCandidates(users, c.me(), c.currentFriends())
				results.Refresh()
			})
		}()
	}
	search.OnChanged = runSearch
	search.OnSubmitted = runSearch

	results.OnSelected = func(id widget.ListItemID) {
		if id < 0 || id >= len(matches) {
			return
		}
		picked := matches[id]
		results.UnselectAll()
		go c.addFriend(picked)
		d.Hide()
	}

	d.Show()
	c.window.Canvas().Focus(search)
	runSearch("")
}

func (c *controller) addFriend(user models.User) {
	result := c.client.Post(c.ctx, "/friend", map[string]any{
		"user_id":     c.sessions.Current().UserID,
		"friend_id":   user.ID,
		"friend_name": user.Username,
	})
	if !result.Success {
		c.statusf("Adding %s failed: %s", user.Username, result.Error)
		return
	}
	c.statusf("Added %s", user.Username)
	c.refreshFriends()
}

func (c *controller) removeSelectedFriend() {
	c.friendsMu.RLock()
	var friend models.Friend
	found := false
	// The fyne list keeps its own selection; track the open conversation's
	// peer instead so removal follows what the user is looking at.
	for _, f := range c.friends {
		if f.FriendName == c.currentPeer() {
			friend = f
			found = true
			break
		}
	}
	c.friendsMu.RUnlock()
	if !found {
		c.setStatus("Select a friend's conversation first")
		return
	}

	dialog.ShowConfirm("Remove friend",
		fmt.Sprintf("Remove %s from your friends?", friend.FriendName),
		func(confirmed bool) {
			if !confirmed {
				return
			}
			go func() {
				result := c.client.Delete(c.ctx, "/friend", url.Values{"id": {fmt.Sprint(friend.ID)}})
				if !result.Success {
					c.statusf("Removing %s failed: %s", friend.FriendName, result.Error)
					return
				}
				c.statusf("Removed %s", friend.FriendName)
				c.refreshFriends()
			}()
		}, c.window)
}

func (c *controller) currentFriends() []models.Friend {
	c.friendsMu.RLock()
	defer c.friendsMu.RUnlock()
	return append([]models.Friend(nil), c.friends...)
}
