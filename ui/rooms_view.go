package ui

import (
	"net/url"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"gochat/models"
)

func (c *controller) buildRoomsPane() fyne.CanvasObject {
	c.roomsList = widget.NewList(
		func() int {
			c.roomsMu.RLock()
			defer c.roomsMu.RUnlock()
			return len(c.rooms)
		},
		func() fyne.CanvasObject {
			name := widget.NewLabel("peer")
			name.TextStyle = fyne.TextStyle{Bold: true}
			badge := widget.NewLabel("")
			badge.Importance = widget.HighImportance
			preview := widget.NewLabel("")
			preview.Importance = widget.LowImportance
			when := widget.NewLabel("")
			when.Importance = widget.LowImportance
			top := container.NewBorder(nil, nil, nil, badge, name)
			bottom := container.NewBorder(nil, nil, nil, when, preview)
			return container.NewVBox(top, bottom)
		},
		func(id widget.ListItemID, item fyne.CanvasObject) {
			c.roomsMu.RLock()
			defer c.roomsMu.RUnlock()
			if id < 0 || id >= len(c.rooms) {
				return
			}
			room := c.rooms[id]
			box := item.(*fyne.Container)
			top := box.Objects[0].(*fyne.Container)
			bottom := box.Objects[1].(*fyne.Container)

			top.Objects[0].(*widget.Label).SetText(roomTitle(room, c.me()))
			top.Objects[1].(*widget.Label).SetText(unreadBadge(room.UnreadCount))
			bottom.Objects[0].(*widget.Label).SetText(previewText(room.LastMessage))
			bottom.Objects[1].(*widget.Label).SetText(lastActivityText(room.LastMessage))
		},
	)
	c.roomsList.OnSelected = func(id widget.ListItemID) {
		c.roomsMu.RLock()
		var peer string
		if id >= 0 && id < len(c.rooms) {
			peer = models.Room{Participants: c.rooms[id].Participants}.Other(c.me())
		}
		c.roomsMu.RUnlock()
		if peer != "" {
			c.openConversation(peer)
		}
	}

	return c.roomsList
}

// refreshRooms reloads the room list with unread counters.
func (c *controller) refreshRooms() {
	me := c.me()
	if me == "" {
		return
	}
	result := c.client.Get(c.ctx, "/room/list", url.Values{"username": {me}})
	if !result.Success {
		c.statusf("Loading chats failed: %s", result.Error)
		return
	}
	var rooms []models.RoomSummary
	if err := result.Decode(&rooms); err != nil {
		c.statusf("Loading chats failed: %v", err)
		return
	}
	sortRoomsByActivity(rooms)

	c.roomsMu.Lock()
	c.rooms = rooms
	c.roomsMu.Unlock()

	fyne.Do(func() {
		if c.roomsList != nil {
			c.roomsList.Refresh()
		}
	})
}
